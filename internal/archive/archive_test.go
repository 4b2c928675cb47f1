package archive

import (
	"context"
	"path/filepath"
	"testing"

	"mogul/internal/game"
	"mogul/internal/market"
)

func TestRecordAndReadBack(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "mogul.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	snap := &game.Snapshot{
		Turn: 5,
		Pools: []market.OwnershipPool{
			{Owner: "Avery", PoolValue: 120},
		},
		Bonds: []market.BondSeries{
			{Owner: "Blair", RatePercent: 4.5},
		},
	}
	if err := store.RecordSnapshot(ctx, snap); err != nil {
		t.Fatalf("record: %v", err)
	}

	// A replayed frame for the same turn must not duplicate samples.
	snap.Pools[0].PoolValue = 999
	if err := store.RecordSnapshot(ctx, snap); err != nil {
		t.Fatalf("record replay: %v", err)
	}

	snap.Turn = 6
	snap.Pools[0].PoolValue = 150
	if err := store.RecordSnapshot(ctx, snap); err != nil {
		t.Fatalf("record turn 6: %v", err)
	}

	history, err := store.PoolHistory(ctx, "avery (2)")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(history))
	}
	if history[0].Turn != 5 || history[0].PoolValue != 120 {
		t.Fatalf("turn 5 sample rewritten: %+v", history[0])
	}
	if history[1].Turn != 6 || history[1].PoolValue != 150 {
		t.Fatalf("turn 6 sample wrong: %+v", history[1])
	}

	rates, err := store.BondHistory(ctx, "Blair")
	if err != nil {
		t.Fatalf("bond history: %v", err)
	}
	if len(rates) != 2 || rates[0].RatePercent != 4.5 {
		t.Fatalf("unexpected bond history: %+v", rates)
	}
}
