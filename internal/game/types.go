package game

import (
	"mogul/internal/identity"
	"mogul/internal/market"
)

// Snapshot is one authoritative game state as published by the server.
// It is immutable once decoded: each new frame replaces the previous
// snapshot wholesale, so readers never see a half-updated state.
type Snapshot struct {
	Turn       int                    `json:"turn"`
	Players    []Player               `json:"players"`
	Pools      []market.OwnershipPool `json:"pools"`
	Bonds      []market.BondSeries    `json:"bonds"`
	Ledger     []LedgerEntry          `json:"ledger"`
	Log        []string               `json:"log"`
	LastAction *LastAction            `json:"last_action"`
}

type Player struct {
	Name    string  `json:"name"`
	Cash    float64 `json:"cash"`
	InLobby bool    `json:"in_lobby"`
}

// LedgerEntry is one typed money movement from the server's ledger.
type LedgerEntry struct {
	Type   string  `json:"type"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// LastAction describes the most recent capital action the server
// applied or denied. The reconciliation poll diffs against it.
type LastAction struct {
	Type   string `json:"type"`
	Owner  string `json:"owner"`
	Actor  string `json:"actor"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

const (
	StatusApplied = "applied"
	StatusDenied  = "denied"
)

// Matches reports whether this event corresponds to the submitted
// action, comparing names through the identity normalizer.
func (a *LastAction) Matches(actionType, owner, actor string) bool {
	if a == nil {
		return false
	}
	return a.Type == actionType &&
		identity.Equal(a.Owner, owner) &&
		identity.Equal(a.Actor, actor)
}

// PoolFor finds the ownership pool issued by the named player.
func (s *Snapshot) PoolFor(owner string) *market.OwnershipPool {
	for i := range s.Pools {
		if identity.Equal(s.Pools[i].Owner, owner) {
			return &s.Pools[i]
		}
	}
	return nil
}

// BondFor finds the bond series issued by the named player.
func (s *Snapshot) BondFor(owner string) *market.BondSeries {
	for i := range s.Bonds {
		if identity.Equal(s.Bonds[i].Owner, owner) {
			return &s.Bonds[i]
		}
	}
	return nil
}

// PlayerFor finds a player record by display name.
func (s *Snapshot) PlayerFor(name string) *Player {
	for i := range s.Players {
		if identity.Equal(s.Players[i].Name, name) {
			return &s.Players[i]
		}
	}
	return nil
}
