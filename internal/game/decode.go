package game

import (
	"encoding/json"
	"fmt"

	"mogul/internal/market"
)

// Wire decoding. The server's JSON omits fields that are at their
// defaults, so the wire types use pointers and each absent field is
// resolved to an explicit default here rather than relying on zero
// values falling out of the unmarshal.

type snapshotWire struct {
	Turn       *int          `json:"turn"`
	Players    []playerWire  `json:"players"`
	Pools      []poolWire    `json:"pools"`
	Bonds      []bondWire    `json:"bonds"`
	Ledger     []LedgerEntry `json:"ledger"`
	Log        []string      `json:"log"`
	LastAction *LastAction   `json:"last_action"`
}

type playerWire struct {
	Name    string   `json:"name"`
	Cash    *float64 `json:"cash"`
	InLobby *bool    `json:"in_lobby"`
}

type poolWire struct {
	Owner         string              `json:"owner"`
	PoolValue     *float64            `json:"pool_value"`
	OwnerFraction *float64            `json:"owner_fraction"`
	Holdings      map[string]float64  `json:"holdings"`
	Rules         *market.PoolRules   `json:"rules"`
	History       []market.PoolSample `json:"history"`
}

type bondWire struct {
	Owner       string              `json:"owner"`
	AllowBonds  *bool               `json:"allow_bonds"`
	RatePercent *float64            `json:"rate_percent"`
	PeriodTurns *int                `json:"period_turns"`
	Holdings    map[string]float64  `json:"holdings"`
	History     []market.RateSample `json:"history"`
}

// DecodeSnapshot parses one state frame payload.
func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var wire snapshotWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := &Snapshot{
		Turn:       intOr(wire.Turn, 0),
		Ledger:     wire.Ledger,
		Log:        wire.Log,
		LastAction: wire.LastAction,
	}
	for _, p := range wire.Players {
		snap.Players = append(snap.Players, Player{
			Name:    p.Name,
			Cash:    floatOr(p.Cash, 0),
			InLobby: boolOr(p.InLobby, true),
		})
	}
	for _, w := range wire.Pools {
		snap.Pools = append(snap.Pools, resolvePool(w))
	}
	for _, w := range wire.Bonds {
		snap.Bonds = append(snap.Bonds, market.BondSeries{
			Owner:       w.Owner,
			AllowBonds:  boolOr(w.AllowBonds, false),
			RatePercent: floatOr(w.RatePercent, 0),
			PeriodTurns: intOr(w.PeriodTurns, 1),
			Holdings:    w.Holdings,
			History:     w.History,
		})
	}
	return snap, nil
}

func resolvePool(w poolWire) market.OwnershipPool {
	pool := market.OwnershipPool{
		Owner:     w.Owner,
		PoolValue: floatOr(w.PoolValue, 0),
		Holdings:  w.Holdings,
		History:   w.History,
	}
	if w.Rules != nil {
		pool.Rules = *w.Rules
	}
	if w.OwnerFraction != nil {
		pool.OwnerFraction = *w.OwnerFraction
		return pool
	}
	// Absent owner fraction: the owner holds whatever the investors
	// don't, or the whole pool when there are no investors.
	held := 0.0
	for _, frac := range w.Holdings {
		held += frac
	}
	pool.OwnerFraction = 1 - held
	if pool.OwnerFraction < 0 {
		pool.OwnerFraction = 0
	}
	return pool
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
