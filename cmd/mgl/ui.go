package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"mogul/internal/game"
	"mogul/internal/market"
	"mogul/internal/protocol"
	"mogul/internal/stats"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptYesNo(label string, defaultYes bool) (bool, error) {
	hint := "Y/n"
	if !defaultYes {
		hint = "y/N"
	}
	for {
		fmt.Printf("%s [%s]: ", label, hint)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		printWarn("Please answer y or n.")
	}
}

func promptDollars(label string) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := game.ParseAmount(text)
		if err != nil {
			printWarn(err.Error())
			continue
		}
		return v, nil
	}
}

// promptRules walks the owner through each guard rail, defaulting to
// the pool's current settings.
func promptRules(current market.PoolRules) (market.PoolRules, error) {
	next := current
	var err error

	next.AllowInvesting, err = promptYesNo("Allow investing", current.AllowInvesting)
	if err != nil {
		return next, err
	}
	if !next.AllowInvesting {
		return next, nil
	}

	next.EnforceMinBuy, err = promptYesNo("Enforce a minimum buy", current.EnforceMinBuy)
	if err != nil {
		return next, err
	}
	if next.EnforceMinBuy {
		next.MinBuy, err = promptDollars("Minimum buy ($)")
		if err != nil {
			return next, err
		}
	}

	next.EnforceMinPoolTotal, err = promptYesNo("Enforce a minimum pool total", current.EnforceMinPoolTotal)
	if err != nil {
		return next, err
	}
	if next.EnforceMinPoolTotal {
		next.MinPoolTotal, err = promptDollars("Minimum pool total ($)")
		if err != nil {
			return next, err
		}
	}

	next.EnforceMinPoolOwner, err = promptYesNo("Enforce a minimum owner stake", current.EnforceMinPoolOwner)
	if err != nil {
		return next, err
	}
	if next.EnforceMinPoolOwner {
		for {
			pct, perr := promptDollars("Minimum owner stake (%)")
			if perr != nil {
				return next, perr
			}
			if pct > 100 {
				printWarn("Stake percent cannot exceed 100.")
				continue
			}
			next.MinOwnerStakePercent = pct
			break
		}
	}
	return next, nil
}

func renderPools(snap *game.Snapshot, actor string) error {
	palette := game.NewPalette()
	accent.Printf("\n== STOCK POOLS (turn %d) ==\n", snap.Turn)
	if len(snap.Pools) == 0 {
		printInfo("Nobody is issuing stock yet.")
		return nil
	}
	fmt.Printf("%-18s %12s %8s %12s %8s\n", "OWNER", "POOL", "OWNER%", "YOURS", "OPEN")
	for i := range snap.Pools {
		pool := &snap.Pools[i]
		open := "yes"
		if !pool.Rules.AllowInvesting {
			open = "no"
		}
		fmt.Printf("%-18s %12s %7.1f%% %12s %8s\n",
			palette.Assign(pool.Owner).Sprintf("%-18s", truncate(pool.Owner, 18)),
			game.FormatDollars(pool.PoolValue),
			pool.OwnerFraction*100,
			game.FormatDollars(pool.HoldingDollars(actor)),
			open,
		)
	}
	fmt.Println()
	return nil
}

func renderPoolDetail(pool *market.OwnershipPool, actor string, history []market.PoolSample) error {
	accent.Printf("\n== POOL: %s ==\n", pool.Owner)
	fmt.Printf("Pool value:   %s\n", game.FormatDollars(pool.PoolValue))
	fmt.Printf("Owner stake:  %s (%.1f%%)\n", game.FormatDollars(pool.OwnerDollars()), pool.OwnerFraction*100)
	fmt.Printf("Your stake:   %s (%.1f%%)\n", game.FormatDollars(pool.HoldingDollars(actor)), pool.HoldingFraction(actor)*100)

	if len(pool.Holdings) > 0 {
		fmt.Println()
		accent.Println("Holders")
		fmt.Printf("%-18s %12s %8s\n", "PLAYER", "STAKE", "SHARE")
		for holder, fraction := range pool.Holdings {
			fmt.Printf("%-18s %12s %7.1f%%\n",
				truncate(holder, 18),
				game.FormatDollars(fraction*pool.PoolValue),
				fraction*100,
			)
		}
	}

	renderRulesInline(pool.Rules)

	if len(history) > 0 {
		fmt.Println()
		accent.Println("History")
		fmt.Printf("%-8s %12s\n", "TURN", "POOL")
		for _, sample := range history {
			fmt.Printf("%-8d %12s\n", sample.Turn, game.FormatDollars(sample.PoolValue))
		}
	}
	fmt.Println()
	return nil
}

func renderBonds(snap *game.Snapshot, actor string) error {
	palette := game.NewPalette()
	accent.Printf("\n== BOND SERIES (turn %d) ==\n", snap.Turn)
	if len(snap.Bonds) == 0 {
		printInfo("Nobody is issuing bonds yet.")
		return nil
	}
	fmt.Printf("%-18s %8s %8s %12s %12s %6s\n", "OWNER", "RATE", "PERIOD", "PRINCIPAL", "YOURS", "OPEN")
	for i := range snap.Bonds {
		series := &snap.Bonds[i]
		open := "yes"
		if !series.AllowBonds {
			open = "no"
		}
		fmt.Printf("%-18s %7.2f%% %8d %12s %12s %6s\n",
			palette.Assign(series.Owner).Sprintf("%-18s", truncate(series.Owner, 18)),
			series.RatePercent,
			series.PeriodTurns,
			game.FormatDollars(series.TotalPrincipal()),
			game.FormatDollars(series.Principal(actor)),
			open,
		)
	}
	fmt.Println()
	return nil
}

func renderBondDetail(series *market.BondSeries, actor string, history []market.RateSample) error {
	accent.Printf("\n== BONDS: %s ==\n", series.Owner)
	fmt.Printf("Rate:          %.2f%% per %d turns\n", series.RatePercent, series.PeriodTurns)
	fmt.Printf("Outstanding:   %s\n", game.FormatDollars(series.TotalPrincipal()))
	fmt.Printf("Your holding:  %s\n", game.FormatDollars(series.Principal(actor)))
	if principal := series.Principal(actor); principal > 0 {
		fmt.Printf("Your coupon:   %s per period\n", game.FormatDollars(series.CouponFor(principal)))
	}

	if len(history) > 0 {
		fmt.Println()
		accent.Println("History")
		fmt.Printf("%-8s %8s\n", "TURN", "RATE")
		for _, sample := range history {
			fmt.Printf("%-8d %7.2f%%\n", sample.Turn, sample.RatePercent)
		}
	}
	fmt.Println()
	return nil
}

func renderViolations(violations []string) {
	printWarn("The pool's rules block this action:")
	for _, v := range violations {
		danger.Println("  ✗ " + v)
	}
}

func renderProjection(action protocol.Action, p market.Projection) {
	accent.Printf("\n== %s: %s ==\n", strings.ToUpper(action.Type()), action.Owner)
	fmt.Printf("Pool:   %s -> %s\n",
		game.FormatDollars(p.PoolValueBefore), game.FormatDollars(p.PoolValueAfter))
	fmt.Printf("You:    %s (%.1f%%) -> %s (%.1f%%)\n",
		game.FormatDollars(p.ActorDollarBefore), p.ActorPercentBefore,
		game.FormatDollars(p.ActorDollarAfter), p.ActorPercentAfter)
	fmt.Printf("Owner:  %s (%.1f%%) -> %s (%.1f%%)\n",
		game.FormatDollars(p.OwnerDollarBefore), p.OwnerPercentBefore,
		game.FormatDollars(p.OwnerDollarAfter), p.OwnerPercentAfter)
	if p.AppliedAmount != action.Amount {
		printWarn(fmt.Sprintf("Amount clamped to %s (your full position).", game.FormatDollars(p.AppliedAmount)))
	}
	fmt.Println()
}

func renderOutcome(outcome protocol.Outcome) {
	switch outcome.State {
	case protocol.StateSettled:
		printSuccess("✓ " + outcome.Message)
	case protocol.StateDenied:
		danger.Println("✗ " + outcome.Message)
	case protocol.StateTimedOut:
		printWarn(outcome.Message)
		printInfo("Check the next snapshot; the action most likely landed.")
	default:
		printInfo(outcome.Message)
	}
}

func renderRules(owner string, rules market.PoolRules) error {
	accent.Printf("\n== RULES: %s ==\n", owner)
	renderRulesInline(rules)
	fmt.Println()
	return nil
}

func renderRulesInline(rules market.PoolRules) {
	fmt.Println()
	accent.Println("Guard rails")
	fmt.Printf("Investing open:    %s\n", yesNo(rules.AllowInvesting))
	if rules.EnforceMinBuy {
		fmt.Printf("Minimum buy:       %s\n", game.FormatDollars(rules.MinBuy))
	}
	if rules.EnforceMinPoolTotal {
		fmt.Printf("Minimum pool:      %s\n", game.FormatDollars(rules.MinPoolTotal))
	}
	if rules.EnforceMinPoolOwner {
		fmt.Printf("Min owner stake:   %.1f%%\n", rules.MinOwnerStakePercent)
	}
}

func renderSpending(player string, breakdown stats.Breakdown) error {
	accent.Printf("\n== SPENDING: %s ==\n", player)
	if breakdown.Total == 0 {
		printInfo("No spending recorded yet.")
		return nil
	}
	fmt.Printf("%-12s %12s %8s\n", "CATEGORY", "TOTAL", "SHARE")
	for _, category := range stats.Categories {
		fmt.Printf("%-12s %12s %7.1f%%\n",
			category.String(),
			game.FormatDollars(breakdown.Totals[category]),
			breakdown.Percents[category],
		)
	}
	fmt.Printf("%-12s %12s\n", "all", game.FormatDollars(breakdown.Total))
	fmt.Println()
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
