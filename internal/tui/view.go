package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mogul/internal/game"
	"mogul/internal/protocol"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	violationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(1, 2)
)

func (m Model) View() string {
	if m.snap == nil {
		return dimStyle.Render("waiting for the first snapshot... ") + m.spin.View()
	}
	if m.modal != nil {
		return m.viewModal()
	}
	return m.viewDashboard()
}

func (m Model) viewDashboard() string {
	var b strings.Builder
	snap := m.snap

	b.WriteString(titleStyle.Render(fmt.Sprintf("MOGUL — turn %d", snap.Turn)))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Stock pools"))
	b.WriteString("\n")
	if len(snap.Pools) == 0 {
		b.WriteString(dimStyle.Render("  nobody is issuing stock yet\n"))
	}
	for i, pool := range snap.Pools {
		line := fmt.Sprintf("  %-16s %10s  owner %5.1f%%  yours %s",
			pool.Owner,
			game.FormatDollars(pool.PoolValue),
			pool.OwnerFraction*100,
			game.FormatDollars(pool.HoldingDollars(m.actor)),
		)
		if !pool.Rules.AllowInvesting {
			line += dimStyle.Render("  [closed]")
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Bond series"))
	b.WriteString("\n")
	if len(snap.Bonds) == 0 {
		b.WriteString(dimStyle.Render("  nobody is issuing bonds yet\n"))
	}
	for _, series := range snap.Bonds {
		b.WriteString(fmt.Sprintf("  %-16s %5.2f%% per %d turns  principal %s\n",
			series.Owner,
			series.RatePercent,
			series.PeriodTurns,
			game.FormatDollars(series.TotalPrincipal()),
		))
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Players"))
	b.WriteString("\n")
	for _, p := range snap.Players {
		line := fmt.Sprintf("  %-16s %10s", p.Name, game.FormatDollars(p.Cash))
		if !p.InLobby {
			line += dimStyle.Render("  [away]")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(okStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ select · i invest · r redeem · b bonds · q quit"))
	return b.String()
}

func (m Model) viewModal() string {
	md := m.modal
	action := md.flow.Action()
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s — %s", strings.ToUpper(action.Type()), action.Owner)))
	b.WriteString("\n\n")

	switch md.flow.State() {
	case protocol.StateInput:
		b.WriteString(md.input.View())
		b.WriteString("\n")
		for _, v := range md.violations {
			b.WriteString(violationStyle.Render("  ✗ " + v))
			b.WriteString("\n")
		}
		if len(md.violations) == 0 && md.input.Value() != "" {
			b.WriteString(okStyle.Render("  ✓ passes all guard rails"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter preview · tab presets · esc close"))

	case protocol.StatePreviewing:
		p := md.projection
		b.WriteString(fmt.Sprintf("pool      %s → %s\n",
			game.FormatDollars(p.PoolValueBefore), game.FormatDollars(p.PoolValueAfter)))
		b.WriteString(fmt.Sprintf("you       %s (%.1f%%) → %s (%.1f%%)\n",
			game.FormatDollars(p.ActorDollarBefore), p.ActorPercentBefore,
			game.FormatDollars(p.ActorDollarAfter), p.ActorPercentAfter))
		b.WriteString(fmt.Sprintf("owner     %s (%.1f%%) → %s (%.1f%%)\n",
			game.FormatDollars(p.OwnerDollarBefore), p.OwnerPercentBefore,
			game.FormatDollars(p.OwnerDollarAfter), p.OwnerPercentAfter))
		if p.AppliedAmount != action.Amount {
			b.WriteString(dimStyle.Render(fmt.Sprintf("amount clamped to %s\n", game.FormatDollars(p.AppliedAmount))))
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("enter confirm · esc back"))

	case protocol.StateConfirming, protocol.StateAwaitingReconciliation:
		b.WriteString(m.spin.View())
		b.WriteString(" waiting for the table to confirm...\n\n")
		b.WriteString(dimStyle.Render("esc close (the action stays in flight)"))

	case protocol.StateSettled:
		b.WriteString(okStyle.Render("✓ " + md.status))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter close"))

	case protocol.StateDenied:
		b.WriteString(violationStyle.Render("✗ denied: " + md.status))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter close"))

	case protocol.StateTimedOut:
		b.WriteString(okStyle.Render("→ " + md.status))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("no confirmation arrived in time; assuming success"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("enter close"))
	}

	if md.status != "" && md.flow.State() == protocol.StateInput {
		b.WriteString("\n")
		b.WriteString(violationStyle.Render(md.status))
	}

	return modalStyle.Render(b.String())
}

func previewBlockedMessage(err error) string {
	switch {
	case errors.Is(err, protocol.ErrViolations):
		return "fix the guard-rail violations first"
	case errors.Is(err, game.ErrNoSnapshot):
		return "still waiting for game state"
	default:
		return err.Error()
	}
}
