package market

import (
	"fmt"

	"mogul/internal/identity"
)

// Violation messages are user-facing strings, shown inline while the
// player types. They are not errors: input can always be corrected.

// CheckInvest evaluates a proposed stock investment against the owner's
// guard rails. The checks run in a fixed order and every tripped rule
// is reported, so identical inputs always produce the identical list.
func CheckInvest(pool *OwnershipPool, actor string, amount float64) []string {
	var violations []string
	if !pool.Rules.AllowInvesting {
		violations = append(violations, fmt.Sprintf("%s is not accepting investments", pool.Owner))
	}
	if amount < MinActionAmount {
		violations = append(violations, "amount must be at least $1")
	}
	if pool.Rules.EnforceMinBuy && amount < pool.Rules.MinBuy {
		violations = append(violations, fmt.Sprintf("minimum buy-in is $%.0f", pool.Rules.MinBuy))
	}
	if pool.Rules.EnforceMinPoolTotal && pool.PoolValue+amount < pool.Rules.MinPoolTotal {
		violations = append(violations, fmt.Sprintf("pool total would stay below the $%.0f minimum", pool.Rules.MinPoolTotal))
	}
	if pool.Rules.EnforceMinPoolOwner {
		proj := Project(pool, actor, amount, false)
		if proj.OwnerPercentAfter < pool.Rules.MinOwnerStakePercent {
			violations = append(violations, fmt.Sprintf("owner stake would drop below %.0f%%", pool.Rules.MinOwnerStakePercent))
		}
	}
	return violations
}

// CheckRedeem evaluates a proposed stock redemption. Redemption is the
// investor's right regardless of the owner's rules; an amount above the
// actor's stake is clamped by the projection engine, not rejected here.
func CheckRedeem(pool *OwnershipPool, actor string, amount float64) []string {
	var violations []string
	if amount < MinActionAmount {
		violations = append(violations, "amount must be at least $1")
	}
	if pool.HoldingDollars(actor) <= 0 && !identity.Equal(pool.Owner, actor) {
		violations = append(violations, fmt.Sprintf("you hold no stake in %s's pool", pool.Owner))
	}
	return violations
}

// CheckBondBuy evaluates a proposed bond purchase. Bond series carry
// only the enable flag; pool guard rails are stock-scoped.
func CheckBondBuy(series *BondSeries, amount float64) []string {
	var violations []string
	if !series.AllowBonds {
		violations = append(violations, fmt.Sprintf("%s is not issuing bonds", series.Owner))
	}
	if amount < MinActionAmount {
		violations = append(violations, "amount must be at least $1")
	}
	return violations
}

// CheckBondRedeem evaluates a proposed bond redemption. As with stocks,
// over-asks are clamped to outstanding principal.
func CheckBondRedeem(series *BondSeries, actor string, amount float64) []string {
	var violations []string
	if amount < MinActionAmount {
		violations = append(violations, "amount must be at least $1")
	}
	if series.Principal(actor) <= 0 {
		violations = append(violations, fmt.Sprintf("you hold no %s bonds", series.Owner))
	}
	return violations
}
