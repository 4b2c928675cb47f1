// Package overlay serves a read-only HTTP view of the live game for
// stream overlays and debugging. It never accepts writes; the only
// mutation path in the client is the capital action channel.
package overlay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mogul/internal/game"
	"mogul/internal/protocol"
	"mogul/internal/stats"
)

type Server struct {
	source protocol.SnapshotSource
	log    *slog.Logger
	mux    *chi.Mux
}

func New(source protocol.SnapshotSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{source: source, log: logger, mux: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/pools/{owner}", s.handlePool)
		r.Get("/spending/{player}", s.handleSpending)
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, game.ErrNoSnapshot.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"turn":    snap.Turn,
		"players": snap.Players,
		"pools":   snap.Pools,
		"bonds":   snap.Bonds,
	})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, game.ErrNoSnapshot.Error())
		return
	}
	owner := chi.URLParam(r, "owner")
	pool := snap.PoolFor(owner)
	if pool == nil {
		writeError(w, http.StatusNotFound, game.ErrUnknownOwner.Error())
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, game.ErrNoSnapshot.Error())
		return
	}
	player := chi.URLParam(r, "player")
	breakdown := stats.Aggregate(player, snap.Ledger, snap.Log)

	out := map[string]any{"player": player, "total": breakdown.Total}
	for _, cat := range stats.Categories {
		out[cat.String()] = map[string]float64{
			"total":   breakdown.Totals[cat],
			"percent": breakdown.Percents[cat],
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
