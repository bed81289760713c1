package match

import "strings"

// Score is the fraction of tokens found as substrings anywhere in haystack.
// Containment is loose on purpose, so "ts" also hits "events".
func Score(tokens []string, haystack string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}
