// Package stats classifies a player's outgoing money into a fixed
// category breakdown. The structured ledger is the primary source;
// the free-text activity log is a fallback heuristic used only for
// categories the structured data did not cover.
package stats

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"mogul/internal/game"
	"mogul/internal/identity"
)

// Category is one spending bucket.
type Category int

const (
	Fees Category = iota
	Rent
	Properties
	Trades
)

var Categories = []Category{Fees, Rent, Properties, Trades}

func (c Category) String() string {
	switch c {
	case Fees:
		return "Fees"
	case Rent:
		return "Rent"
	case Properties:
		return "Properties"
	case Trades:
		return "Trades"
	default:
		return "Unknown"
	}
}

// entryCategories maps structured ledger entry types to buckets.
var entryCategories = map[string]Category{
	"tax":          Fees,
	"fee":          Fees,
	"fine":         Fees,
	"luxury_tax":   Fees,
	"rent":         Rent,
	"buy_property": Properties,
	"buy_house":    Properties,
	"buy_hotel":    Properties,
	"unmortgage":   Properties,
	"trade":        Trades,
}

// Breakdown is the aggregated result. Percents share a denominator of
// max(total, 1) so an empty history yields zeros, not NaN.
type Breakdown struct {
	Totals   map[Category]float64
	Percents map[Category]float64
	Total    float64
}

var amountRE = regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]+)?)`)

// Aggregate computes the player's spending breakdown. Structured
// entries win; log lines only fill categories the ledger left empty,
// so a partially-typed ledger never gets double counted.
func Aggregate(player string, entries []game.LedgerEntry, log []string) Breakdown {
	totals := make(map[Category]float64, len(Categories))
	covered := make(map[Category]bool, len(Categories))

	for _, entry := range entries {
		cat, ok := entryCategories[entry.Type]
		if !ok {
			continue
		}
		covered[cat] = true
		if !identity.Equal(entry.From, player) {
			continue
		}
		totals[cat] += math.Abs(entry.Amount)
	}

	for _, line := range log {
		if !attributedTo(line, player) {
			continue
		}
		amount, ok := leadingAmount(line)
		if !ok {
			continue
		}
		cat, ok := classifyLine(line)
		if !ok || covered[cat] {
			continue
		}
		totals[cat] += amount
	}

	total := 0.0
	for _, v := range totals {
		total += v
	}
	percents := make(map[Category]float64, len(Categories))
	denom := math.Max(total, 1)
	for _, cat := range Categories {
		percents[cat] = totals[cat] / denom * 100
	}
	return Breakdown{Totals: totals, Percents: percents, Total: total}
}

// attributedTo reports whether the log line starts with the player's
// name, tolerating suffixes, casing and multi-word names.
func attributedTo(line, player string) bool {
	fields := strings.Fields(line)
	limit := len(fields)
	if limit > 4 {
		limit = 4
	}
	for n := 1; n <= limit; n++ {
		if identity.Equal(strings.Join(fields[:n], " "), player) {
			return true
		}
	}
	return false
}

func leadingAmount(line string) (float64, bool) {
	m := amountRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func classifyLine(line string) (Category, bool) {
	lower := strings.ToLower(line)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("tax", "fee", "fine", "luxury"):
		return Fees, true
	case has("rent"):
		return Rent, true
	case has("bought", "house", "hotel", "unmortgage", "property") && !has("sold"):
		return Properties, true
	case has("trade"):
		return Trades, true
	default:
		return 0, false
	}
}
