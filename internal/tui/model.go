// Package tui is the live dashboard: pools, bonds and players from
// the snapshot feed, plus the invest/redeem modal. The modal is a
// thin shell over protocol.Flow; every state transition happens in
// the Flow, and the bubbletea event loop only feeds it input,
// snapshots and clock ticks.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"mogul/internal/game"
	"mogul/internal/market"
	"mogul/internal/protocol"
)

// Submitter matches feed.Client; narrowed for tests.
type Submitter interface {
	Submit(ctx context.Context, action protocol.Action) (*protocol.Ack, error)
}

type (
	snapshotMsg  *game.Snapshot
	submittedMsg struct {
		ack *protocol.Ack
		err error
	}
	reconcileTickMsg time.Time
)

// presetAmounts are the quick-pick investment sizes on the modal.
var presetAmounts = []float64{50, 100, 250, 500}

type modal struct {
	flow       *protocol.Flow
	input      textinput.Model
	violations []string
	projection market.Projection
	status     string
	preset     int
}

type Model struct {
	submitter Submitter
	snapshots <-chan *game.Snapshot
	actor     string

	snap   *game.Snapshot
	cursor int
	modal  *modal
	status string
	spin   spinner.Model
	width  int
}

func New(submitter Submitter, snapshots <-chan *game.Snapshot, actor string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		submitter: submitter,
		snapshots: snapshots,
		actor:     actor,
		spin:      sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.spin.Tick)
}

func (m Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.snapshots
		if !ok {
			return tea.QuitMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = msg
		// A fresh snapshot re-validates whatever the user is typing.
		if m.modal != nil && m.modal.flow.State() == protocol.StateInput {
			m.refreshViolations()
		}
		return m, m.waitForSnapshot()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case submittedMsg:
		return m.handleSubmitted(msg)

	case reconcileTickMsg:
		return m.handleReconcileTick(time.Time(msg))

	case tea.KeyMsg:
		if m.modal != nil {
			return m.updateModal(msg)
		}
		return m.updateDashboard(msg)
	}
	return m, nil
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.snap != nil && m.cursor < len(m.snap.Pools)-1 {
			m.cursor++
		}
	case "i":
		m.openModal(market.Invest, market.Stock)
	case "r":
		m.openModal(market.Redeem, market.Stock)
	case "b":
		m.openModal(market.Invest, market.Bond)
	}
	return m, nil
}

func (m *Model) openModal(kind market.ActionKind, instrument market.Instrument) {
	owner := m.selectedOwner(instrument)
	if owner == "" {
		return
	}
	input := textinput.New()
	input.Placeholder = "amount"
	input.Prompt = "$ "
	input.CharLimit = 12
	input.Focus()
	m.modal = &modal{
		flow:  protocol.NewFlow(kind, instrument, owner, m.actor),
		input: input,
	}
	m.status = ""
}

func (m Model) selectedOwner(instrument market.Instrument) string {
	if m.snap == nil {
		return ""
	}
	if instrument == market.Bond {
		if len(m.snap.Bonds) == 0 {
			return ""
		}
		idx := m.cursor
		if idx >= len(m.snap.Bonds) {
			idx = 0
		}
		return m.snap.Bonds[idx].Owner
	}
	if m.cursor >= len(m.snap.Pools) {
		return ""
	}
	return m.snap.Pools[m.cursor].Owner
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	md := m.modal
	state := md.flow.State()

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		switch state {
		case protocol.StatePreviewing:
			// Back to amount entry; nothing has been submitted yet.
			_ = md.flow.Cancel()
		case protocol.StateAwaitingReconciliation:
			// Closing the modal cancels the poll, never the submitted
			// action; the next snapshot shows its true outcome.
			m.modal = nil
			m.status = "action in flight; watch the next snapshot"
		default:
			m.modal = nil
		}
		return m, nil

	case "tab":
		if state == protocol.StateInput && len(presetAmounts) > 0 {
			md.preset = (md.preset + 1) % len(presetAmounts)
			md.input.SetValue(game.FormatDollars(presetAmounts[md.preset])[1:])
			m.refreshViolations()
		}
		return m, nil

	case "enter":
		switch state {
		case protocol.StateInput:
			proj, err := md.flow.Preview(m.snap)
			if err != nil {
				md.status = previewBlockedMessage(err)
				return m, nil
			}
			md.projection = proj
			md.status = ""
			return m, nil
		case protocol.StatePreviewing:
			return m, m.submitCmd()
		case protocol.StateSettled, protocol.StateDenied, protocol.StateTimedOut:
			m.modal = nil
			return m, nil
		}
		return m, nil
	}

	if state == protocol.StateInput {
		var cmd tea.Cmd
		md.input, cmd = md.input.Update(msg)
		m.refreshViolations()
		return m, cmd
	}
	return m, nil
}

func (m *Model) refreshViolations() {
	md := m.modal
	amount, err := game.ParseAmount(md.input.Value())
	if err != nil {
		md.violations = nil
		md.status = ""
		return
	}
	violations, err := md.flow.UpdateAmount(m.snap, amount)
	if err != nil {
		md.status = err.Error()
		return
	}
	md.violations = violations
	md.status = ""
}

// submitCmd confirms the flow and hands the action to the channel.
// The write plus ack wait is bounded by feed.AckWindow, short enough
// to run as a blocking command.
func (m Model) submitCmd() tea.Cmd {
	md := m.modal
	if err := md.flow.Confirm(); err != nil {
		return nil
	}
	action := md.flow.Action()
	submitter := m.submitter
	return func() tea.Msg {
		ack, err := submitter.Submit(context.Background(), action)
		return submittedMsg{ack: ack, err: err}
	}
}

func (m Model) handleSubmitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	md := m.modal
	if md == nil {
		return m, nil
	}
	if msg.err != nil {
		out := md.flow.MarkRejected("submission failed: " + msg.err.Error())
		md.status = out.Message
		return m, nil
	}
	if msg.ack != nil && !msg.ack.OK {
		out := md.flow.MarkRejected(msg.ack.Message)
		md.status = out.Message
		return m, nil
	}
	md.flow.MarkSubmitted(time.Now())
	md.status = ""
	return m, tea.Tick(protocol.PollInterval, func(t time.Time) tea.Msg {
		return reconcileTickMsg(t)
	})
}

func (m Model) handleReconcileTick(now time.Time) (tea.Model, tea.Cmd) {
	md := m.modal
	if md == nil || md.flow.State() != protocol.StateAwaitingReconciliation {
		// Modal closed or already resolved; let the timer die here.
		return m, nil
	}
	if outcome, done := md.flow.Observe(m.snap, now); done {
		md.status = outcome.Message
		return m, nil
	}
	return m, tea.Tick(protocol.PollInterval, func(t time.Time) tea.Msg {
		return reconcileTickMsg(t)
	})
}
