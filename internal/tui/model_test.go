package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mogul/internal/game"
	"mogul/internal/market"
	"mogul/internal/protocol"
)

type fakeSubmitter struct {
	got []protocol.Action
}

func (f *fakeSubmitter) Submit(_ context.Context, a protocol.Action) (*protocol.Ack, error) {
	f.got = append(f.got, a)
	return nil, nil
}

func testSnapshot() *game.Snapshot {
	return &game.Snapshot{
		Turn:    5,
		Players: []game.Player{{Name: "Avery", Cash: 1200, InLobby: true}, {Name: "Blair", Cash: 900, InLobby: true}},
		Pools: []market.OwnershipPool{{
			Owner:         "Avery",
			PoolValue:     100,
			OwnerFraction: 1.0,
			Rules:         market.PoolRules{AllowInvesting: true},
		}},
	}
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModalInvestHappyPath(t *testing.T) {
	sub := &fakeSubmitter{}
	m := New(sub, make(chan *game.Snapshot), "Blair")

	next, _ := m.Update(snapshotMsg(testSnapshot()))
	m = next.(Model)

	m, _ = press(t, m, "i")
	if m.modal == nil {
		t.Fatalf("i must open the invest modal")
	}
	m, _ = press(t, m, "5")
	m, _ = press(t, m, "0")
	if len(m.modal.violations) != 0 {
		t.Fatalf("clean amount must have no violations, got %v", m.modal.violations)
	}

	m, _ = press(t, m, "enter")
	if m.modal.flow.State() != protocol.StatePreviewing {
		t.Fatalf("enter must preview, state = %s", m.modal.flow.State())
	}
	if m.modal.projection.PoolValueAfter != 150 {
		t.Fatalf("projection pool after = %v want 150", m.modal.projection.PoolValueAfter)
	}

	m, cmd := press(t, m, "enter")
	if cmd == nil {
		t.Fatalf("confirm must produce a submit command")
	}
	next, tick := m.Update(cmd())
	m = next.(Model)
	if tick == nil {
		t.Fatalf("submission must arm the reconcile tick")
	}
	if m.modal.flow.State() != protocol.StateAwaitingReconciliation {
		t.Fatalf("state = %s want awaiting", m.modal.flow.State())
	}
	if len(sub.got) != 1 || sub.got[0].Amount != 50 {
		t.Fatalf("unexpected submissions %+v", sub.got)
	}

	confirmed := testSnapshot()
	confirmed.LastAction = &game.LastAction{Type: "invest", Owner: "Avery", Actor: "Blair", Status: game.StatusApplied}
	next, _ = m.Update(snapshotMsg(confirmed))
	m = next.(Model)
	next, _ = m.Update(reconcileTickMsg(time.Now().Add(protocol.PollInterval)))
	m = next.(Model)
	if m.modal.flow.State() != protocol.StateSettled {
		t.Fatalf("state = %s want settled", m.modal.flow.State())
	}
}

func TestModalEscBeforeSubmitDiscards(t *testing.T) {
	m := New(&fakeSubmitter{}, make(chan *game.Snapshot), "Blair")
	next, _ := m.Update(snapshotMsg(testSnapshot()))
	m = next.(Model)

	m, _ = press(t, m, "i")
	m, _ = press(t, m, "5")
	m, _ = press(t, m, "0")
	m, _ = press(t, m, "enter")
	if m.modal.flow.State() != protocol.StatePreviewing {
		t.Fatalf("state = %s want previewing", m.modal.flow.State())
	}

	m, _ = press(t, m, "esc")
	if m.modal == nil || m.modal.flow.State() != protocol.StateInput {
		t.Fatalf("esc from preview must return to amount entry")
	}
	m, _ = press(t, m, "esc")
	if m.modal != nil {
		t.Fatalf("esc from input must close the modal")
	}
}

func TestModalEscAfterSubmitKeepsActionInFlight(t *testing.T) {
	sub := &fakeSubmitter{}
	m := New(sub, make(chan *game.Snapshot), "Blair")
	next, _ := m.Update(snapshotMsg(testSnapshot()))
	m = next.(Model)

	m, _ = press(t, m, "i")
	m, _ = press(t, m, "5")
	m, _ = press(t, m, "0")
	m, _ = press(t, m, "enter")
	m, cmd := press(t, m, "enter")
	next, _ = m.Update(cmd())
	m = next.(Model)

	m, _ = press(t, m, "esc")
	if m.modal != nil {
		t.Fatalf("esc while awaiting must close the modal")
	}
	if m.status == "" {
		t.Fatalf("closing an in-flight modal must explain what happens next")
	}
	if len(sub.got) != 1 {
		t.Fatalf("the submitted action must not be retracted")
	}
}

func TestViolationsBlockPreview(t *testing.T) {
	snap := testSnapshot()
	snap.Pools[0].Rules = market.PoolRules{
		AllowInvesting: true,
		EnforceMinBuy:  true,
		MinBuy:         100,
	}
	m := New(&fakeSubmitter{}, make(chan *game.Snapshot), "Blair")
	next, _ := m.Update(snapshotMsg(snap))
	m = next.(Model)

	m, _ = press(t, m, "i")
	m, _ = press(t, m, "5")
	m, _ = press(t, m, "0")
	if len(m.modal.violations) == 0 {
		t.Fatalf("min-buy violation must show while typing")
	}
	m, _ = press(t, m, "enter")
	if m.modal.flow.State() != protocol.StateInput {
		t.Fatalf("preview must stay blocked, state = %s", m.modal.flow.State())
	}
}
