package market

import (
	"strings"
	"testing"
)

func restrictedPool() *OwnershipPool {
	return &OwnershipPool{
		Owner:         "Avery",
		PoolValue:     100,
		OwnerFraction: 1.0,
		Rules: PoolRules{
			AllowInvesting:       true,
			EnforceMinBuy:        true,
			MinBuy:               10,
			EnforceMinPoolTotal:  true,
			MinPoolTotal:         50,
			EnforceMinPoolOwner:  true,
			MinOwnerStakePercent: 60,
		},
	}
}

func TestCheckInvestOrder(t *testing.T) {
	pool := restrictedPool()
	pool.Rules.AllowInvesting = false

	// Amount 0.5 trips closed-pool, granularity and min-buy in order.
	violations := CheckInvest(pool, "Blair", 0.5)
	if len(violations) != 3 {
		t.Fatalf("expected 3 violations, got %v", violations)
	}
	if !strings.Contains(violations[0], "not accepting") {
		t.Fatalf("allowInvesting must be reported first, got %q", violations[0])
	}
	if !strings.Contains(violations[1], "at least $1") {
		t.Fatalf("granularity must be second, got %q", violations[1])
	}
	if !strings.Contains(violations[2], "buy-in") {
		t.Fatalf("min buy must be third, got %q", violations[2])
	}
}

func TestCheckInvestOwnerStake(t *testing.T) {
	pool := restrictedPool()

	// $66 in would leave the owner at 100/166 ~ 60.2%: allowed.
	if v := CheckInvest(pool, "Blair", 66); len(v) != 0 {
		t.Fatalf("expected clean check, got %v", v)
	}

	// $70 in would leave the owner at 100/170 ~ 58.8%: blocked.
	v := CheckInvest(pool, "Blair", 70)
	if len(v) != 1 || !strings.Contains(v[0], "owner stake") {
		t.Fatalf("expected owner-stake violation, got %v", v)
	}
}

func TestCheckInvestMinPoolTotal(t *testing.T) {
	pool := restrictedPool()
	pool.PoolValue = 10
	pool.Rules.EnforceMinPoolOwner = false

	v := CheckInvest(pool, "Blair", 15)
	if len(v) != 1 || !strings.Contains(v[0], "pool total") {
		t.Fatalf("expected pool-total violation, got %v", v)
	}
	if v := CheckInvest(pool, "Blair", 40); len(v) != 0 {
		t.Fatalf("meeting the floor should pass, got %v", v)
	}
}

func TestCheckInvestDeterministic(t *testing.T) {
	pool := restrictedPool()
	pool.Rules.AllowInvesting = false
	first := CheckInvest(pool, "Blair", 0.25)
	second := CheckInvest(pool, "Blair", 0.25)
	if len(first) != len(second) {
		t.Fatalf("violation count drifted: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("violation order drifted at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestCheckRedeem(t *testing.T) {
	pool := restrictedPool()
	pool.OwnerFraction = 0.5
	pool.Holdings = map[string]float64{"Blair": 0.5}

	// Redemption ignores the owner's guard rails entirely.
	pool.Rules.AllowInvesting = false
	if v := CheckRedeem(pool, "Blair", 30); len(v) != 0 {
		t.Fatalf("redeem must ignore invest rules, got %v", v)
	}

	// Over-asks pass validation; the projection clamps them.
	if v := CheckRedeem(pool, "Blair", 9_999); len(v) != 0 {
		t.Fatalf("over-ask should clamp, not fail validation, got %v", v)
	}

	if v := CheckRedeem(pool, "Dana", 30); len(v) != 1 {
		t.Fatalf("expected a no-stake violation, got %v", v)
	}
}

func TestCheckBond(t *testing.T) {
	series := &BondSeries{Owner: "Avery", AllowBonds: false, RatePercent: 5, PeriodTurns: 4}
	if v := CheckBondBuy(series, 50); len(v) != 1 || !strings.Contains(v[0], "not issuing") {
		t.Fatalf("expected closed-series violation, got %v", v)
	}
	series.AllowBonds = true
	if v := CheckBondBuy(series, 50); len(v) != 0 {
		t.Fatalf("expected clean bond check, got %v", v)
	}
	if v := CheckBondRedeem(series, "Blair", 10); len(v) != 1 {
		t.Fatalf("expected no-bond violation, got %v", v)
	}
	series.Holdings = map[string]float64{"Blair (2)": 40}
	if v := CheckBondRedeem(series, "blair", 10); len(v) != 0 {
		t.Fatalf("suffixed holder should redeem cleanly, got %v", v)
	}
}
