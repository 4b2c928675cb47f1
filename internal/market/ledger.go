// Package market holds the capital-markets ownership model: dollar
// pools fractionally held by investors, principal-denominated bond
// series, the owner-configured guard rails, and the pure projection
// math that previews how a pool dilutes or concentrates under an
// investment or redemption.
//
// Nothing in this package mutates a pool. The authoritative copies
// live server-side and arrive wholesale in each snapshot; the client
// only projects hypothetical outcomes for preview and validation.
package market

import (
	"errors"

	"mogul/internal/identity"
)

const (
	// FractionTolerance bounds the acceptable drift on the conservation
	// invariant ownerFraction + sum(holdings) == 1.
	FractionTolerance = 1e-6

	// MinActionAmount is the integer currency granularity for any
	// invest or redeem request.
	MinActionAmount = 1.0
)

var (
	ErrUnknownOwner   = errors.New("no pool or bond series for that owner")
	ErrNegativeAmount = errors.New("amount must be positive")
)

// ActionKind distinguishes invest from redeem.
type ActionKind int

const (
	Invest ActionKind = iota
	Redeem
)

func (k ActionKind) String() string {
	if k == Redeem {
		return "redeem"
	}
	return "invest"
}

// Instrument distinguishes the two capital instruments.
type Instrument int

const (
	Stock Instrument = iota
	Bond
)

func (i Instrument) String() string {
	if i == Bond {
		return "bond"
	}
	return "stock"
}

// PoolRules are the owner-configured guard rails on a stock pool.
// Disabled limits keep their last configured value so toggling a rule
// back on restores the previous threshold.
type PoolRules struct {
	AllowInvesting       bool    `json:"allow_investing"`
	EnforceMinBuy        bool    `json:"enforce_min_buy"`
	MinBuy               float64 `json:"min_buy"`
	EnforceMinPoolTotal  bool    `json:"enforce_min_pool_total"`
	MinPoolTotal         float64 `json:"min_pool_total"`
	EnforceMinPoolOwner  bool    `json:"enforce_min_pool_owner"`
	MinOwnerStakePercent float64 `json:"min_owner_stake_percent"`
}

// PoolSample is one append-only history point, display-only.
type PoolSample struct {
	Turn      int     `json:"turn"`
	PoolValue float64 `json:"pool_value"`
}

// RateSample is one append-only bond rate point, display-only.
type RateSample struct {
	Turn        int     `json:"turn"`
	RatePercent float64 `json:"rate_percent"`
}

// OwnershipPool is the stock-like instrument issued by one player.
// Holdings map investor display names to fractions of PoolValue;
// OwnerFraction plus the holding fractions sum to 1 (within
// FractionTolerance) whenever PoolValue is positive.
type OwnershipPool struct {
	Owner         string             `json:"owner"`
	PoolValue     float64            `json:"pool_value"`
	OwnerFraction float64            `json:"owner_fraction"`
	Holdings      map[string]float64 `json:"holdings"`
	Rules         PoolRules          `json:"rules"`
	History       []PoolSample       `json:"history"`
}

// HoldingFraction returns the actor's fraction of the pool, matching
// the holdings key through the identity normalizer. Zero if absent.
func (p *OwnershipPool) HoldingFraction(actor string) float64 {
	for name, frac := range p.Holdings {
		if identity.Equal(name, actor) {
			return frac
		}
	}
	return 0
}

// HoldingDollars returns the actor's current dollar stake.
func (p *OwnershipPool) HoldingDollars(actor string) float64 {
	return p.HoldingFraction(actor) * p.PoolValue
}

// OwnerDollars returns the owner's current dollar stake.
func (p *OwnershipPool) OwnerDollars() float64 {
	return p.OwnerFraction * p.PoolValue
}

// Conserved reports whether the fraction conservation invariant holds.
// Empty pools are trivially conserved.
func (p *OwnershipPool) Conserved() bool {
	if p.PoolValue <= 0 {
		return true
	}
	sum := p.OwnerFraction
	for _, frac := range p.Holdings {
		sum += frac
	}
	return sum > 1-FractionTolerance && sum < 1+FractionTolerance
}

// BondSeries is the fixed-income instrument issued by one player.
// Holdings are principal dollars, not fractions: bonds do not dilute.
type BondSeries struct {
	Owner       string             `json:"owner"`
	AllowBonds  bool               `json:"allow_bonds"`
	RatePercent float64            `json:"rate_percent"`
	PeriodTurns int                `json:"period_turns"`
	Holdings    map[string]float64 `json:"holdings"`
	History     []RateSample       `json:"history"`
}

// Principal returns the actor's outstanding principal. Zero if absent.
func (b *BondSeries) Principal(actor string) float64 {
	for name, amount := range b.Holdings {
		if identity.Equal(name, actor) {
			return amount
		}
	}
	return 0
}

// TotalPrincipal sums all outstanding principal on the series.
func (b *BondSeries) TotalPrincipal() float64 {
	total := 0.0
	for _, amount := range b.Holdings {
		total += amount
	}
	return total
}

// CouponFor returns the payout one period yields on a principal at the
// series' current rate.
func (b *BondSeries) CouponFor(principal float64) float64 {
	if principal <= 0 {
		return 0
	}
	return principal * b.RatePercent / 100
}
