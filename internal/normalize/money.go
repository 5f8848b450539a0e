package normalize

import (
	"math"
	"strconv"
	"strings"
)

// DollarsToCents converts a nullable float64 dollar amount to nullable int64 cents.
// Uses math.Round to avoid truncation bias.
func DollarsToCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := int64(math.Round(*v * 100))
	return &c
}

// CentsToDollars converts integer cents back to a dollar amount.
func CentsToDollars(c int64) float64 {
	return float64(c) / 100
}

// LineTotalCents returns charge × units in cents.
func LineTotalCents(charge float64, units int) int64 {
	return int64(math.Round(charge*100)) * int64(units)
}

// ParseAmount parses "$1,234.50" style amounts. Returns nil when the input
// holds no number.
func ParseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
