package market

import (
	"math"

	"mogul/internal/identity"
)

// Projection is the before/after view of one hypothetical invest or
// redeem. Derived, displayed, discarded; never persisted.
type Projection struct {
	PoolValueBefore    float64
	PoolValueAfter     float64
	ActorDollarBefore  float64
	ActorDollarAfter   float64
	ActorPercentBefore float64
	ActorPercentAfter  float64
	OwnerDollarBefore  float64
	OwnerDollarAfter   float64
	OwnerPercentBefore float64
	OwnerPercentAfter  float64
	AppliedAmount      float64
}

// Project computes the dilution (invest) or concentration (redeem)
// outcome for an actor moving amount dollars against a pool.
//
// The rule in both directions: every holder except the actor keeps
// their absolute dollar stake; only the denominator moves. Investing
// grows the pool, so everyone else's percentage shrinks. Redeeming
// shrinks it, so everyone else's percentage grows. Redemptions are
// clamped to the actor's current stake rather than rejected.
//
// Percentages divide by max(poolValueAfter, 1) so an emptied pool
// never divides by zero. A zero-value pool is treated as a single
// implicit owner-only slice until the first dollar arrives.
func Project(pool *OwnershipPool, actor string, amount float64, redeem bool) Projection {
	ownerIsActor := identity.Equal(pool.Owner, actor)

	poolBefore := pool.PoolValue
	ownerFracBefore := pool.OwnerFraction
	if poolBefore <= 0 {
		poolBefore = 0
		ownerFracBefore = 1
	}

	actorBefore := pool.HoldingFraction(actor) * poolBefore
	ownerBefore := ownerFracBefore * poolBefore
	if ownerIsActor {
		actorBefore = ownerBefore
	}

	var applied float64
	if redeem {
		applied = math.Min(math.Max(0, amount), actorBefore)
	} else {
		applied = math.Max(0, amount)
	}

	delta := applied
	if redeem {
		delta = -applied
	}
	poolAfter := poolBefore + delta
	actorAfter := actorBefore + delta

	ownerAfter := ownerBefore
	if ownerIsActor {
		ownerAfter = actorAfter
	}

	denomBefore := math.Max(poolBefore, 1)
	denomAfter := math.Max(poolAfter, 1)

	return Projection{
		PoolValueBefore:    poolBefore,
		PoolValueAfter:     poolAfter,
		ActorDollarBefore:  actorBefore,
		ActorDollarAfter:   actorAfter,
		ActorPercentBefore: actorBefore / denomBefore * 100,
		ActorPercentAfter:  actorAfter / denomAfter * 100,
		OwnerDollarBefore:  ownerBefore,
		OwnerDollarAfter:   ownerAfter,
		OwnerPercentBefore: ownerBefore / denomBefore * 100,
		OwnerPercentAfter:  ownerAfter / denomAfter * 100,
		AppliedAmount:      applied,
	}
}

// ProjectBond is the principal-denominated analogue for bond series.
// Bonds neither dilute nor concentrate: the "pool" is the summed
// outstanding principal and every percentage is a share of it.
func ProjectBond(series *BondSeries, actor string, amount float64, redeem bool) Projection {
	totalBefore := series.TotalPrincipal()
	actorBefore := series.Principal(actor)

	var applied float64
	if redeem {
		applied = math.Min(math.Max(0, amount), actorBefore)
	} else {
		applied = math.Max(0, amount)
	}

	delta := applied
	if redeem {
		delta = -applied
	}
	totalAfter := totalBefore + delta
	actorAfter := actorBefore + delta

	denomBefore := math.Max(totalBefore, 1)
	denomAfter := math.Max(totalAfter, 1)

	return Projection{
		PoolValueBefore:    totalBefore,
		PoolValueAfter:     totalAfter,
		ActorDollarBefore:  actorBefore,
		ActorDollarAfter:   actorAfter,
		ActorPercentBefore: actorBefore / denomBefore * 100,
		ActorPercentAfter:  actorAfter / denomAfter * 100,
		AppliedAmount:      applied,
	}
}
