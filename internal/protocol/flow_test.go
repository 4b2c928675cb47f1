package protocol

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"mogul/internal/game"
	"mogul/internal/market"
)

func snapshotWithPool() *game.Snapshot {
	return &game.Snapshot{
		Turn: 3,
		Pools: []market.OwnershipPool{{
			Owner:         "Avery",
			PoolValue:     100,
			OwnerFraction: 1.0,
			Rules:         market.PoolRules{AllowInvesting: true},
		}},
	}
}

type fakeSource struct {
	mu   sync.Mutex
	snap *game.Snapshot
}

func (s *fakeSource) Latest() *game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *fakeSource) set(snap *game.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

type fakeSubmitter struct {
	ack *Ack
	err error
	got []Action
}

func (f *fakeSubmitter) Submit(_ context.Context, a Action) (*Ack, error) {
	f.got = append(f.got, a)
	return f.ack, f.err
}

func TestFlowPreviewBlockedByViolations(t *testing.T) {
	snap := snapshotWithPool()
	snap.Pools[0].Rules = market.PoolRules{
		AllowInvesting:       true,
		EnforceMinPoolOwner:  true,
		MinOwnerStakePercent: 60,
	}

	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	violations, err := flow.UpdateAmount(snap, 70)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected one owner-stake violation, got %v", violations)
	}
	if _, err := flow.Preview(snap); !errors.Is(err, ErrViolations) {
		t.Fatalf("preview must be blocked, got %v", err)
	}
	if flow.State() != StateInput {
		t.Fatalf("blocked preview must stay in input, got %s", flow.State())
	}
}

func TestFlowPreviewAndCancel(t *testing.T) {
	snap := snapshotWithPool()
	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	if _, err := flow.UpdateAmount(snap, 50); err != nil {
		t.Fatalf("update: %v", err)
	}
	proj, err := flow.Preview(snap)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if proj.PoolValueAfter != 150 || proj.ActorDollarAfter != 50 {
		t.Fatalf("unexpected projection %+v", proj)
	}
	if flow.State() != StatePreviewing {
		t.Fatalf("state = %s want previewing", flow.State())
	}
	if err := flow.Cancel(); err != nil {
		t.Fatalf("cancel from previewing: %v", err)
	}
	if flow.State() != StateInput {
		t.Fatalf("cancel must return to input")
	}
}

func TestFlowCannotCancelAfterSubmit(t *testing.T) {
	snap := snapshotWithPool()
	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	if _, err := flow.Preview(snap); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if err := flow.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	flow.MarkSubmitted(time.Now())
	if err := flow.Cancel(); !errors.Is(err, ErrUncancelable) {
		t.Fatalf("expected ErrUncancelable, got %v", err)
	}
	if _, err := flow.UpdateAmount(snap, 10); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight while awaiting, got %v", err)
	}
}

func TestFlowObserveApplied(t *testing.T) {
	snap := snapshotWithPool()
	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	flow.Preview(snap)
	flow.Confirm()
	now := time.Now()
	flow.MarkSubmitted(now)

	confirmed := snapshotWithPool()
	confirmed.LastAction = &game.LastAction{
		Type: "invest", Owner: "Avery (2)", Actor: "blair", Status: game.StatusApplied,
	}
	outcome, done := flow.Observe(confirmed, now.Add(PollInterval))
	if !done || outcome.State != StateSettled {
		t.Fatalf("expected settled, got %+v done=%t", outcome, done)
	}
}

func TestFlowObserveDenied(t *testing.T) {
	snap := snapshotWithPool()
	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	flow.Preview(snap)
	flow.Confirm()
	now := time.Now()
	flow.MarkSubmitted(now)

	denied := snapshotWithPool()
	denied.LastAction = &game.LastAction{
		Type: "invest", Owner: "Avery", Actor: "Blair", Status: game.StatusDenied, Reason: "pool closed mid-turn",
	}
	outcome, done := flow.Observe(denied, now.Add(PollInterval))
	if !done || outcome.State != StateDenied {
		t.Fatalf("expected denied, got %+v", outcome)
	}
	if outcome.Message != "pool closed mid-turn" {
		t.Fatalf("server reason must surface, got %q", outcome.Message)
	}
}

func TestFlowObserveTimeout(t *testing.T) {
	snap := snapshotWithPool()
	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	flow.Preview(snap)
	flow.Confirm()
	now := time.Now()
	flow.MarkSubmitted(now)

	// Unrelated events never match.
	unrelated := snapshotWithPool()
	unrelated.LastAction = &game.LastAction{Type: "rent", Owner: "Casey", Actor: "Dana", Status: game.StatusApplied}
	if _, done := flow.Observe(unrelated, now.Add(PollInterval)); done {
		t.Fatalf("unrelated event must not resolve the flow")
	}

	outcome, done := flow.Observe(unrelated, now.Add(ReconcileTimeout))
	if !done || outcome.State != StateTimedOut {
		t.Fatalf("expected optimistic timeout, got %+v", outcome)
	}
	if outcome.State == StateDenied {
		t.Fatalf("timeout must not read as denial")
	}
}

func TestRunnerStructuralRejection(t *testing.T) {
	snap := snapshotWithPool()
	source := &fakeSource{snap: snap}
	sub := &fakeSubmitter{ack: &Ack{OK: false, Message: "malformed frame"}}
	runner := NewRunner(sub, source, nil)
	runner.Poll = time.Millisecond

	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	if _, err := flow.Preview(snap); err != nil {
		t.Fatalf("preview: %v", err)
	}
	outcome, err := runner.Execute(context.Background(), flow)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome.State != StateInput || !strings.Contains(outcome.Message, "malformed") {
		t.Fatalf("structural rejection must return to input with the message, got %+v", outcome)
	}
	if flow.State() != StateInput {
		t.Fatalf("flow state = %s want input", flow.State())
	}
}

func TestRunnerSettlesOnMatchingEvent(t *testing.T) {
	snap := snapshotWithPool()
	source := &fakeSource{snap: snap}
	sub := &fakeSubmitter{}
	runner := NewRunner(sub, source, nil)
	runner.Poll = time.Millisecond

	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	if _, err := flow.Preview(snap); err != nil {
		t.Fatalf("preview: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		confirmed := snapshotWithPool()
		confirmed.LastAction = &game.LastAction{Type: "invest", Owner: "Avery", Actor: "Blair", Status: game.StatusApplied}
		source.set(confirmed)
	}()

	outcome, err := runner.Execute(context.Background(), flow)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome.State != StateSettled {
		t.Fatalf("expected settled, got %+v", outcome)
	}
	if len(sub.got) != 1 || sub.got[0].RequestID == "" {
		t.Fatalf("expected one tagged submission, got %+v", sub.got)
	}
}

func TestRunnerCancelledByContext(t *testing.T) {
	snap := snapshotWithPool()
	source := &fakeSource{snap: snap}
	runner := NewRunner(&fakeSubmitter{}, source, nil)
	runner.Poll = time.Millisecond

	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	if _, err := flow.Preview(snap); err != nil {
		t.Fatalf("preview: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := runner.Execute(ctx, flow); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestRunnerRejectsSecondSubmission(t *testing.T) {
	snap := snapshotWithPool()
	flow := NewFlow(market.Invest, market.Stock, "Avery", "Blair")
	flow.UpdateAmount(snap, 50)
	flow.Preview(snap)
	flow.Confirm()
	flow.MarkSubmitted(time.Now())

	runner := NewRunner(&fakeSubmitter{}, &fakeSource{snap: snap}, nil)
	if _, err := runner.Execute(context.Background(), flow); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight on double submit, got %v", err)
	}
}

func TestActionTypeStrings(t *testing.T) {
	tests := []struct {
		kind       market.ActionKind
		instrument market.Instrument
		want       string
	}{
		{kind: market.Invest, instrument: market.Stock, want: "invest"},
		{kind: market.Redeem, instrument: market.Stock, want: "redeem"},
		{kind: market.Invest, instrument: market.Bond, want: "bond_buy"},
		{kind: market.Redeem, instrument: market.Bond, want: "bond_redeem"},
	}
	for _, tc := range tests {
		a := NewAction(tc.kind, tc.instrument, "Avery", "Blair", 10)
		if a.Type() != tc.want {
			t.Fatalf("type = %q want %q", a.Type(), tc.want)
		}
	}
}
