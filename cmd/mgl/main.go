package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"mogul/internal/archive"
	cl "mogul/internal/cli"
	"mogul/internal/config"
	"mogul/internal/feed"
	"mogul/internal/game"
	"mogul/internal/market"
	"mogul/internal/overlay"
	"mogul/internal/protocol"
	"mogul/internal/stats"
	"mogul/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadClient()

	root := &cobra.Command{
		Use:          "mgl",
		Short:        "Mogul table client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newJoinCmd(&cfg),
		newLeaveCmd(),
		newPoolsCmd(&cfg),
		newBondsCmd(&cfg),
		newInvestCmd(&cfg),
		newRedeemCmd(&cfg),
		newBondActionCmd(&cfg),
		newRulesCmd(&cfg),
		newSpendingCmd(&cfg),
		newWatchCmd(&cfg),
		newOverlayCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// table is a live connection plus the first snapshot the server sent.
type table struct {
	client *feed.Client
	snap   *game.Snapshot
	name   string
	cancel context.CancelFunc
}

func (t *table) close() {
	t.cancel()
	_ = t.client.Close()
}

// connect dials the saved table and blocks until the first full state
// frame lands, so every command starts from a concrete snapshot.
func connect(ctx context.Context, cfg *config.ClientConfig) (*table, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("join a table first: %w", err)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancelDial()
	client, err := feed.Dial(dialCtx, sess.ServerURL, sess.PlayerName)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = client.Run(runCtx) }()

	updates := client.Subscribe()
	select {
	case snap, ok := <-updates:
		if !ok {
			cancel()
			_ = client.Close()
			return nil, errors.New("feed closed before the first snapshot")
		}
		return &table{client: client, snap: snap, name: sess.PlayerName, cancel: cancel}, nil
	case <-time.After(cfg.DialTimeout):
		cancel()
		_ = client.Close()
		return nil, errors.New("no snapshot received; is a game running?")
	}
}

func newJoinCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "join [name]",
		Short: "Join a table and save the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := cfg.PlayerName
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			}
			var err error
			if name == "" {
				name, err = promptRequired("Player name")
				if err != nil {
					return err
				}
			}

			ctx, cancelDial := context.WithTimeout(cmd.Context(), cfg.DialTimeout)
			defer cancelDial()
			client, err := feed.Dial(ctx, cfg.ServerURL, name)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := cl.SaveSession(cl.Session{
				ServerURL:  cfg.ServerURL,
				PlayerName: name,
				JoinedAt:   time.Now(),
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Joined %s as %s. Session saved.", cfg.ServerURL, name))
			return nil
		},
	}
}

func newLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Clear the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Left the table.")
			return nil
		},
	}
}

func newPoolsCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "pools [owner]",
		Short: "List stock pools or inspect one owner's pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			if len(args) == 0 {
				return renderPools(t.snap, t.name)
			}

			owner := strings.TrimSpace(args[0])
			pool := t.snap.PoolFor(owner)
			if pool == nil {
				return fmt.Errorf("no pool for %q", owner)
			}

			history, err := loadPoolHistory(cmd.Context(), cfg, t.snap, owner)
			if err != nil {
				printWarn(fmt.Sprintf("history unavailable: %v", err))
			}
			return renderPoolDetail(pool, t.name, history)
		},
	}
}

func newBondsCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "bonds [owner]",
		Short: "List bond series or inspect one owner's series",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			if len(args) == 0 {
				return renderBonds(t.snap, t.name)
			}

			owner := strings.TrimSpace(args[0])
			series := t.snap.BondFor(owner)
			if series == nil {
				return fmt.Errorf("no bond series for %q", owner)
			}

			history, err := loadBondHistory(cmd.Context(), cfg, t.snap, owner)
			if err != nil {
				printWarn(fmt.Sprintf("history unavailable: %v", err))
			}
			return renderBondDetail(series, t.name, history)
		},
	}
}

// loadPoolHistory records the live snapshot into the local archive and
// returns the accumulated samples for one owner.
func loadPoolHistory(ctx context.Context, cfg *config.ClientConfig, snap *game.Snapshot, owner string) ([]market.PoolSample, error) {
	store, err := archive.Open(ctx, cfg.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if err := store.RecordSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return store.PoolHistory(ctx, owner)
}

func loadBondHistory(ctx context.Context, cfg *config.ClientConfig, snap *game.Snapshot, owner string) ([]market.RateSample, error) {
	store, err := archive.Open(ctx, cfg.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if err := store.RecordSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return store.BondHistory(ctx, owner)
}

func newInvestCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "invest <owner> [amount]",
		Short: "Buy into another player's stock pool",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, cfg, market.Invest, market.Stock, args)
		},
	}
}

func newRedeemCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <owner> [amount]",
		Short: "Cash out part of a stock position",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, cfg, market.Redeem, market.Stock, args)
		},
	}
}

func newBondActionCmd(cfg *config.ClientConfig) *cobra.Command {
	bond := &cobra.Command{
		Use:   "bond",
		Short: "Bond series actions",
	}
	bond.AddCommand(&cobra.Command{
		Use:   "buy <owner> [amount]",
		Short: "Buy principal in another player's bond series",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, cfg, market.Invest, market.Bond, args)
		},
	})
	bond.AddCommand(&cobra.Command{
		Use:   "redeem <owner> [amount]",
		Short: "Redeem principal from a bond series",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, cfg, market.Redeem, market.Bond, args)
		},
	})
	return bond
}

// runAction is the shared preview-confirm-reconcile path behind
// invest, redeem and both bond subcommands.
func runAction(cmd *cobra.Command, cfg *config.ClientConfig, kind market.ActionKind, instrument market.Instrument, args []string) error {
	t, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer t.close()

	owner := strings.TrimSpace(args[0])
	amount, err := amountFromArgsOrPrompt(args, 1)
	if err != nil {
		return err
	}

	flow := protocol.NewFlow(kind, instrument, owner, t.name)
	violations, err := flow.UpdateAmount(t.snap, amount)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		renderViolations(violations)
		return errors.New("action blocked by pool rules")
	}

	projection, err := flow.Preview(t.snap)
	if err != nil {
		return err
	}
	renderProjection(flow.Action(), projection)

	ok, err := promptYesNo("Confirm", true)
	if err != nil {
		return err
	}
	if !ok {
		if err := flow.Cancel(); err != nil {
			return err
		}
		printInfo("Cancelled. Nothing was sent.")
		return nil
	}

	runner := protocol.NewRunner(t.client, t.client, newLogger())
	outcome, err := runner.Execute(cmd.Context(), flow)
	if err != nil {
		return err
	}
	renderOutcome(outcome)
	return nil
}

func newRulesCmd(cfg *config.ClientConfig) *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Show or change the guard rails on your pool",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "show [owner]",
		Short: "Show a pool's guard rails",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			owner := t.name
			if len(args) > 0 {
				owner = strings.TrimSpace(args[0])
			}
			pool := t.snap.PoolFor(owner)
			if pool == nil {
				return fmt.Errorf("no pool for %q", owner)
			}
			return renderRules(pool.Owner, pool.Rules)
		},
	})
	rules.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Change the guard rails on your own pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			current := market.PoolRules{}
			if pool := t.snap.PoolFor(t.name); pool != nil {
				current = pool.Rules
			}
			next, err := promptRules(current)
			if err != nil {
				return err
			}

			ack, err := t.client.SubmitRules(cmd.Context(), t.name, next)
			if err != nil {
				return err
			}
			if ack != nil && !ack.OK {
				return fmt.Errorf("rule change rejected: %s", ack.Message)
			}
			printSuccess("Rule change submitted. The next snapshot reflects it.")
			return nil
		},
	})
	return rules
}

func newSpendingCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "spending [player]",
		Short: "Break a player's spending down by category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			player := t.name
			if len(args) > 0 {
				player = strings.TrimSpace(args[0])
			}
			if t.snap.PlayerFor(player) == nil {
				return fmt.Errorf("no player named %q at this table", player)
			}
			breakdown := stats.Aggregate(player, t.snap.Ledger, t.snap.Log)
			return renderSpending(player, breakdown)
		},
	}
}

func newWatchCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard with interactive invest/redeem",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			model := tui.New(t.client, t.client.Subscribe(), t.name)
			program := tea.NewProgram(model, tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
}

func newOverlayCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "overlay",
		Short: "Serve a read-only HTTP view of the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer t.close()

			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			srv := overlay.New(t.client, logger)
			logger.Info("overlay listening", "addr", cfg.OverlayAddr)
			return http.ListenAndServe(cfg.OverlayAddr, srv.Handler())
		},
	}
}

func amountFromArgsOrPrompt(args []string, idx int) (float64, error) {
	if len(args) > idx {
		return game.ParseAmount(args[idx])
	}
	text, err := promptRequired("Amount ($)")
	if err != nil {
		return 0, err
	}
	return game.ParseAmount(text)
}
