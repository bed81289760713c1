// Package match turns free-text task descriptions into tokens and ranks spike
// templates against them.
//
// Ranking runs in two phases. Phase 1 scores lightweight metadata for every
// identifier in the catalog. Phase 2 loads the full definitions of the top
// candidates and re-scores them. Aliases inject well-known identifiers into
// the pool with a score boost before Phase 2 verifies them.
package match

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Characters kept inside tokens so scoped packages (@scope/pkg parts),
// versions (v1.2) and names like c++ survive splitting.
const keepChars = "@#:+.-"

// Characters trimmed from token edges ("elysia:" becomes "elysia").
const trimChars = ".:-"

// Tokenizer splits text and unions in canonical hint tokens.
type Tokenizer struct {
	hints []compiledHint
}

// NewTokenizer compiles the hint table.
func NewTokenizer(hints []Hint) (*Tokenizer, error) {
	compiled, err := compileHints(hints)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{hints: compiled}, nil
}

// MustTokenizer is NewTokenizer for static tables.
func MustTokenizer(hints []Hint) *Tokenizer {
	t, err := NewTokenizer(hints)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultTokenizer = MustTokenizer(DefaultHints)

// Tokenize uses the default hint table.
func Tokenize(text string) []string {
	return defaultTokenizer.Tokenize(text)
}

// Tokenize returns the sorted, deduplicated token set for text.
func (t *Tokenizer) Tokenize(text string) []string {
	folded := Fold(text)
	if strings.TrimSpace(folded) == "" {
		return nil
	}

	set := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(folded, isSeparator) {
		tok := strings.Trim(field, trimChars)
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	for _, h := range t.hints {
		if h.re.MatchString(folded) {
			set[h.token] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	slices.Sort(out)
	return out
}

// Fold lowercases s and strips combining marks, so "Autenticación" and
// "autenticacion" tokenize the same.
func Fold(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(tr, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func isSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return !strings.ContainsRune(keepChars, r)
}
