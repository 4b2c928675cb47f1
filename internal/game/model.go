package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotJoined    = errors.New("not joined to a lobby")
	ErrNoSnapshot   = errors.New("no snapshot received yet")
	ErrUnknownOwner = errors.New("no such player in the current game")
)

// ParseAmount parses a user-typed dollar amount. Accepts "250",
// "$250" and "2,500"; rejects non-positive and non-numeric input.
func ParseAmount(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("amount is required")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", strings.TrimSpace(text))
	}
	if v <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return v, nil
}

// FormatDollars renders a currency amount with comma grouping, with
// cents only when present, e.g. "$1,250" or "$62.50".
func FormatDollars(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := int64(v)
	cents := int64((v-float64(whole))*100 + 0.5)
	if cents >= 100 {
		whole++
		cents -= 100
	}
	if cents == 0 {
		return fmt.Sprintf("%s$%s", sign, comma(whole))
	}
	return fmt.Sprintf("%s$%s.%02d", sign, comma(whole), cents)
}

// SignedDollars is FormatDollars with an explicit plus on gains.
func SignedDollars(v float64) string {
	if v > 0 {
		return "+" + FormatDollars(v)
	}
	return FormatDollars(v)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
