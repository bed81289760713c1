package match

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_MixedCaseAndPunctuation(t *testing.T) {
	got := Tokenize("Secure plugin for Elysia: add helmet & rate-limit (TypeScript)")

	for _, want := range []string{"secure", "plugin", "for", "elysia", "add", "helmet", "rate-limit", "typescript"} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "elysia:")
	assert.NotContains(t, got, "&")
}

func TestTokenize_KeepsScopedAndVersionTokens(t *testing.T) {
	got := Tokenize("use @elysiajs/cors v1.2 with c++ and #hashtag")

	assert.Contains(t, got, "@elysiajs")
	assert.Contains(t, got, "cors")
	assert.Contains(t, got, "v1.2")
	assert.Contains(t, got, "c++")
	assert.Contains(t, got, "#hashtag")
}

func TestTokenize_TrimsEdges(t *testing.T) {
	got := Tokenize("worker. -queue- ::")
	assert.Equal(t, []string{"queue", "worker"}, got)
}

func TestTokenize_EdgeTrimKeepsInnerPunctuation(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Rate-limit the API", "rate-limit"},
		{"add rate-limit.", "rate-limit"},
		{"-rate-limit:", "rate-limit"},
		{"bump to v1.2.", "v1.2"},
		{"v1.2: breaking", "v1.2"},
		{"route for bun.serve", "bun.serve"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Tokenize(tt.text)
			assert.Contains(t, got, tt.want)
			for _, tok := range got {
				assert.NotRegexp(t, `^[.:-]|[.:-]$`, tok)
			}
		})
	}
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   \t\n"))
	assert.Empty(t, Tokenize("!!! ,,, ..."))
}

func TestTokenize_Deduplicated(t *testing.T) {
	got := Tokenize("worker Worker WORKER workers")
	count := 0
	for _, tok := range got {
		if tok == "worker" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, got, "workers")
}

func TestTokenize_CrossLingualHints(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"ruta segura con pruebas", []string{"route", "secure", "testing"}},
		{"rota tipada para fila", []string{"route", "typed", "queue"}},
		{"Autenticación con sesiones", []string{"auth"}},
		{"plugin sécurisé en temps réel", []string{"plugin", "realtime"}},
		{"Sicherheit für die Datenbank", []string{"secure", "database"}},
		{"a ts worker", []string{"typescript", "worker"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Tokenize(tt.text)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "autenticacion rapida", Fold("Autenticación RÁPIDA"))
	assert.Equal(t, "plain", Fold("plain"))
}

func TestDefaultHints_EachPatternIndependently(t *testing.T) {
	examples := map[string]string{
		"secure":     "harden the api",
		"typed":      "strongly typed payloads",
		"testing":    "add unit tests",
		"worker":     "background jobs",
		"queue":      "a job cola",
		"listener":   "event handler",
		"route":      "new endpoints",
		"plugin":     "an extension",
		"middleware": "request interceptor",
		"typescript": "tsx please",
		"javascript": "plain js",
		"realtime":   "real-time feed",
		"database":   "banco de dados",
		"schema":     "input validation",
		"auth":       "sign in flow",
		"cron":       "scheduled cleanup",
		"cache":      "caching layer",
		"cli":        "command-line helper",
		"observable": "tracing and metrics",
		"rate-limit": "throttle requests",
		"minimal":    "lightweight setup",
		"client":     "http client for the api",
	}

	seen := make(map[string]bool)
	for _, h := range DefaultHints {
		re := regexp.MustCompile(h.Pattern)
		example, ok := examples[h.Token]
		require.True(t, ok, "no example for hint token %q", h.Token)
		assert.True(t, re.MatchString(example), "hint %q should match %q", h.Token, example)
		seen[h.Token] = true
	}
	for tok := range examples {
		assert.True(t, seen[tok], "example for unknown hint token %q", tok)
	}
}

func TestNewTokenizer_BadPattern(t *testing.T) {
	_, err := NewTokenizer([]Hint{{Pattern: "(", Token: "x"}})
	require.Error(t, err)
}

func TestTokenizer_CustomTable(t *testing.T) {
	tk, err := NewTokenizer([]Hint{{Pattern: `\bquick\b`, Token: "minimal"}})
	require.NoError(t, err)

	got := tk.Tokenize("a quick thing")
	assert.Equal(t, []string{"a", "minimal", "quick", "thing"}, got)
}
