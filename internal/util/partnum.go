package util

import "strings"

// NormalizePartNumber reduces a manufacturer part number to its comparable
// form: dashes removed, surrounding whitespace trimmed, and leading zeros
// dropped when the remainder is purely numeric. Strings with decimal points
// or any non-digit are never numerically reinterpreted, so "123.100" and
// "089.800.988" come back untouched. Idempotent.
func NormalizePartNumber(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "-", ""))
	if s == "" || !isDigits(s) {
		return s
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
