package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseCurrency reads a currency-formatted cell ("$1,234.50") into a
// decimal. Returns ok=false for empty or unparseable input.
func ParseCurrency(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseQuantity reads a numeric cell, tolerating thousands separators.
func ParseQuantity(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2-Jan-2006",
	"2006/01/02",
	time.RFC3339,
}

// ParseDate coerces a date cell, falling back to the caller's sentinel on
// failure. A sentinel instead of a zero time keeps downstream date
// comparisons total.
func ParseDate(raw string, sentinel time.Time) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return sentinel
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return sentinel
}

// FormatQuantity renders a quantity without trailing zero noise, so a
// QOE of 12 round-trips as "12", not "12.000000".
func FormatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseStrictBool maps review-artifact cells back to the native booleans
// they were serialized from. Only TRUE/FALSE (any case) are accepted.
func ParseStrictBool(raw string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	default:
		return false, false
	}
}
