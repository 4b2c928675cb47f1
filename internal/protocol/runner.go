package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mogul/internal/game"
)

// Ack is the optional synchronous acknowledgment from the action
// channel. A nil *Ack means the channel said nothing, which is the
// normal case; OK=false signals a structural rejection.
type Ack struct {
	OK      bool
	Message string
}

// Submitter hands an action to the external channel.
type Submitter interface {
	Submit(ctx context.Context, action Action) (*Ack, error)
}

// SnapshotSource exposes the latest authoritative snapshot.
type SnapshotSource interface {
	Latest() *game.Snapshot
}

// Runner drives a previewed Flow through submission and the bounded
// reconciliation poll. It owns the only timer in the protocol and
// guarantees the ticker stops on every exit path, so repeated modal
// opens never leak timers.
type Runner struct {
	Submitter Submitter
	Source    SnapshotSource
	Log       *slog.Logger

	// Poll overrides PollInterval; tests shorten it.
	Poll time.Duration
}

func NewRunner(submitter Submitter, source SnapshotSource, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{Submitter: submitter, Source: source, Log: log, Poll: PollInterval}
}

// Execute submits the flow's action and reconciles it. The flow must
// be in Previewing. Context cancellation (modal close) stops the poll
// and returns ctx.Err(); the action itself is already in flight and
// cannot be recalled.
func (r *Runner) Execute(ctx context.Context, flow *Flow) (Outcome, error) {
	if err := flow.Confirm(); err != nil {
		return Outcome{}, err
	}
	action := flow.Action()

	ack, err := r.Submitter.Submit(ctx, action)
	if err != nil {
		r.Log.Warn("action submit failed", "type", action.Type(), "owner", action.Owner, "err", err)
		return flow.MarkRejected(fmt.Sprintf("submission failed: %v", err)), nil
	}
	if ack != nil && !ack.OK {
		r.Log.Info("action structurally rejected", "type", action.Type(), "reason", ack.Message)
		return flow.MarkRejected(ack.Message), nil
	}

	flow.MarkSubmitted(time.Now())
	r.Log.Info("action submitted",
		"type", action.Type(),
		"owner", action.Owner,
		"actor", action.Actor,
		"amount", action.Amount,
		"request_id", action.RequestID,
	)

	poll := r.Poll
	if poll <= 0 {
		poll = PollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-ticker.C:
			if outcome, done := flow.Observe(r.Source.Latest(), time.Now()); done {
				r.Log.Info("action reconciled", "type", action.Type(), "state", outcome.State.String(), "message", outcome.Message)
				return outcome, nil
			}
		}
	}
}
