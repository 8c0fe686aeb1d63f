package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DollarsToCents converts a float64 dollar amount to int64 cents.
// Uses math.Round to avoid truncation bias.
func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// CentsToDollars converts int64 cents back to a float64 dollar amount.
func CentsToDollars(c int64) float64 {
	return float64(c) / 100
}

// ParseMoney parses a submitted dollar amount string into int64 cents.
// Accepts optional leading "$" and thousands separators. Negative amounts
// parse successfully; range validation is the caller's concern.
func ParseMoney(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return DollarsToCents(v), nil
}
