// Package protocol implements the two-phase capital action flow:
// amount entry with live rule checks, a projected preview, submission
// over the broadcast action channel, and optimistic reconciliation
// against subsequent snapshots.
//
// The action channel is event-sourced, not an RPC. A synchronous ack
// only arrives for structural failures; a rules denial surfaces later
// in a snapshot's lastAction field, if at all. The Flow therefore
// never trusts the ack alone: it watches the snapshot feed until it
// sees a matching applied or denied event, and after ReconcileTimeout
// it assumes success. That assumption can be a silent false positive,
// corrected visually by the next snapshot; it is the accepted cost of
// staying responsive on a channel with no reply guarantee.
package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mogul/internal/game"
	"mogul/internal/market"
)

const (
	// PollInterval is the reconciliation poll cadence.
	PollInterval = 120 * time.Millisecond
	// ReconcileTimeout bounds how long a submitted action waits for a
	// matching snapshot event before it is optimistically settled.
	ReconcileTimeout = 2 * time.Second
)

// State is the flow's position in the commit protocol.
type State int

const (
	StateInput State = iota
	StatePreviewing
	StateConfirming
	StateAwaitingReconciliation
	StateSettled
	StateDenied
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateInput:
		return "input"
	case StatePreviewing:
		return "previewing"
	case StateConfirming:
		return "confirming"
	case StateAwaitingReconciliation:
		return "awaiting-reconciliation"
	case StateSettled:
		return "settled"
	case StateDenied:
		return "denied"
	case StateTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the flow has resolved.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateDenied || s == StateTimedOut
}

var (
	ErrNotPreviewing = errors.New("no previewed action to confirm")
	ErrInFlight      = errors.New("an action is already awaiting reconciliation")
	ErrViolations    = errors.New("guard-rail violations outstanding")
	ErrUncancelable  = errors.New("a submitted action cannot be cancelled")
)

// Action is one proposed capital movement. Transient: it lives for a
// single protocol run and is never persisted. RequestID tags the wire
// frame so the server can correlate its synchronous ack.
type Action struct {
	Kind       market.ActionKind
	Instrument market.Instrument
	Owner      string
	Actor      string
	Amount     float64
	RequestID  string
}

// NewAction builds a tagged action.
func NewAction(kind market.ActionKind, instrument market.Instrument, owner, actor string, amount float64) Action {
	return Action{
		Kind:       kind,
		Instrument: instrument,
		Owner:      owner,
		Actor:      actor,
		Amount:     amount,
		RequestID:  uuid.NewString(),
	}
}

// Type is the wire action-type string, also used to match lastAction.
func (a Action) Type() string {
	if a.Instrument == market.Bond {
		if a.Kind == market.Redeem {
			return "bond_redeem"
		}
		return "bond_buy"
	}
	return a.Kind.String()
}

// Outcome is the resolution the caller displays.
type Outcome struct {
	State   State
	Message string
}

// Flow is the protocol state machine. It is pure: every transition is
// an explicit method call, timers and I/O live in the Runner, and
// identical inputs always produce identical transitions, so tests can
// drive it with fabricated snapshots and clocks.
type Flow struct {
	action     Action
	state      State
	violations []string
	projection market.Projection
	deadline   time.Time
}

// NewFlow opens a flow in the Input state for the given instrument.
func NewFlow(kind market.ActionKind, instrument market.Instrument, owner, actor string) *Flow {
	return &Flow{
		action: NewAction(kind, instrument, owner, actor, 0),
		state:  StateInput,
	}
}

func (f *Flow) State() State         { return f.state }
func (f *Flow) Action() Action       { return f.action }
func (f *Flow) Violations() []string { return f.violations }

// Projection returns the preview computed on entry to Previewing.
func (f *Flow) Projection() market.Projection { return f.projection }

// UpdateAmount records the candidate amount and re-runs the rule
// validator against the current snapshot. Violations are returned for
// display; they never block further typing.
func (f *Flow) UpdateAmount(snap *game.Snapshot, amount float64) ([]string, error) {
	if f.state.Terminal() || f.state == StateAwaitingReconciliation {
		return nil, ErrInFlight
	}
	f.state = StateInput
	f.action.Amount = amount
	violations, err := f.validate(snap)
	if err != nil {
		return nil, err
	}
	f.violations = violations
	return violations, nil
}

// Preview moves Input → Previewing, allowed only with a clean rule
// check. The projection computed here is the one the confirmation
// screen shows; Runner submits the same action unchanged, so the two
// call sites cannot drift.
func (f *Flow) Preview(snap *game.Snapshot) (market.Projection, error) {
	if f.state != StateInput {
		return market.Projection{}, fmt.Errorf("preview from %s: %w", f.state, ErrNotPreviewing)
	}
	violations, err := f.validate(snap)
	if err != nil {
		return market.Projection{}, err
	}
	f.violations = violations
	if len(violations) > 0 {
		return market.Projection{}, ErrViolations
	}
	proj, err := f.project(snap)
	if err != nil {
		return market.Projection{}, err
	}
	f.projection = proj
	f.state = StatePreviewing
	return proj, nil
}

// Cancel returns from Previewing to Input. Once the action has been
// handed to the channel there is nothing to cancel; only the outcome
// can be observed.
func (f *Flow) Cancel() error {
	switch f.state {
	case StatePreviewing, StateInput:
		f.state = StateInput
		return nil
	default:
		return ErrUncancelable
	}
}

// Confirm moves Previewing → Confirming. The Runner calls this just
// before handing the action to the submitter.
func (f *Flow) Confirm() error {
	if f.state == StateAwaitingReconciliation {
		return ErrInFlight
	}
	if f.state != StatePreviewing {
		return ErrNotPreviewing
	}
	f.state = StateConfirming
	return nil
}

// MarkSubmitted records that the channel accepted the frame and arms
// the reconciliation deadline.
func (f *Flow) MarkSubmitted(now time.Time) {
	f.state = StateAwaitingReconciliation
	f.deadline = now.Add(ReconcileTimeout)
}

// MarkRejected handles a structural rejection: back to Input with the
// server's message, ready for corrected input.
func (f *Flow) MarkRejected(message string) Outcome {
	f.state = StateInput
	return Outcome{State: StateInput, Message: message}
}

// Observe reconciles against a snapshot. It reports a terminal
// outcome once a matching applied or denied event appears, or once
// the deadline passes with neither.
func (f *Flow) Observe(snap *game.Snapshot, now time.Time) (Outcome, bool) {
	if f.state != StateAwaitingReconciliation {
		return Outcome{}, false
	}
	if snap != nil && snap.LastAction.Matches(f.action.Type(), f.action.Owner, f.action.Actor) {
		switch snap.LastAction.Status {
		case game.StatusApplied:
			f.state = StateSettled
			return Outcome{State: StateSettled, Message: fmt.Sprintf("%s confirmed", f.action.Type())}, true
		case game.StatusDenied:
			f.state = StateDenied
			reason := snap.LastAction.Reason
			if reason == "" {
				reason = "denied by the server"
			}
			return Outcome{State: StateDenied, Message: reason}, true
		}
	}
	if !now.Before(f.deadline) {
		f.state = StateTimedOut
		return Outcome{State: StateTimedOut, Message: "submitted; no confirmation observed"}, true
	}
	return Outcome{}, false
}

func (f *Flow) validate(snap *game.Snapshot) ([]string, error) {
	if snap == nil {
		return nil, game.ErrNoSnapshot
	}
	switch f.action.Instrument {
	case market.Bond:
		series := snap.BondFor(f.action.Owner)
		if series == nil {
			return nil, game.ErrUnknownOwner
		}
		if f.action.Kind == market.Redeem {
			return market.CheckBondRedeem(series, f.action.Actor, f.action.Amount), nil
		}
		return market.CheckBondBuy(series, f.action.Amount), nil
	default:
		pool := snap.PoolFor(f.action.Owner)
		if pool == nil {
			return nil, game.ErrUnknownOwner
		}
		if f.action.Kind == market.Redeem {
			return market.CheckRedeem(pool, f.action.Actor, f.action.Amount), nil
		}
		return market.CheckInvest(pool, f.action.Actor, f.action.Amount), nil
	}
}

func (f *Flow) project(snap *game.Snapshot) (market.Projection, error) {
	redeem := f.action.Kind == market.Redeem
	if f.action.Instrument == market.Bond {
		series := snap.BondFor(f.action.Owner)
		if series == nil {
			return market.Projection{}, game.ErrUnknownOwner
		}
		return market.ProjectBond(series, f.action.Actor, f.action.Amount, redeem), nil
	}
	pool := snap.PoolFor(f.action.Owner)
	if pool == nil {
		return market.Projection{}, game.ErrUnknownOwner
	}
	return market.Project(pool, f.action.Actor, f.action.Amount, redeem), nil
}
