package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// NormalizeDescription flattens an item description for comparison:
// uppercased, punctuation-insensitive spacing, collapsed whitespace.
func NormalizeDescription(input string) string {
	s := strings.ToUpper(input)
	s = strings.NewReplacer(",", " ", ";", " ", "\"", " ", "'", " ").Replace(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DiceCoefficient scores bigram overlap between two strings in [0, 1].
// Used as the offline fallback when no embedding provider is configured.
func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	bigrams := func(s string) []string {
		r := []rune(s)
		if len(r) < 2 {
			return nil
		}
		out := make([]string, 0, len(r)-1)
		for i := 0; i < len(r)-1; i++ {
			out = append(out, string(r[i:i+2]))
		}
		return out
	}

	aPairs := bigrams(a)
	bPairs := bigrams(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	counts := map[string]int{}
	for _, p := range bPairs {
		counts[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if counts[p] > 0 {
			inter++
			counts[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}
