package catalog

import (
	"iter"
	"slices"
	"strings"
)

const (
	// PrefixSynth is the primary brand of synthesized identifiers.
	PrefixSynth = "synth-"
	// PrefixLab denotes the same synthesized content, tagged experimental.
	PrefixLab = "lab-"
)

// Prefixes lists every recognized identifier prefix, primary first.
var Prefixes = []string{PrefixSynth, PrefixLab}

// Dimension lists. Libraries may contain hyphens; patterns, styles and
// languages must not, because decoding takes the last three segments.
var (
	Libraries = []string{
		// HTTP frameworks
		"elysia", "hono", "express", "fastify", "koa", "nestjs", "bun-serve",
		// data
		"drizzle", "prisma", "typeorm", "mongoose", "pg", "redis", "ioredis",
		// validation
		"zod", "valibot", "typebox",
		// messaging
		"bullmq", "kafkajs", "nats", "amqplib",
		// realtime
		"socket-io", "ws",
		// api layers
		"trpc", "graphql-yoga",
		// auth
		"jose", "lucia", "better-auth",
		// observability
		"pino", "opentelemetry",
		// http clients
		"axios", "ky",
		// test runners
		"vitest", "playwright",
		// command line
		"commander", "citty",
	}

	Patterns = []string{
		"route", "plugin", "middleware", "worker", "listener", "schema", "client",
		"service", "cli", "cron", "queue", "cache", "auth", "test",
	}

	Styles = []string{"basic", "typed", "secure", "testing", "minimal", "observable"}

	Languages = []string{"typescript", "javascript"}
)

// Tuple is the decoded form of a synthesized identifier.
type Tuple struct {
	Library  string `json:"library"`
	Pattern  string `json:"pattern"`
	Style    string `json:"style"`
	Language string `json:"language"`
}

// Encode builds the identifier for t under the given prefix.
func Encode(prefix string, t Tuple) string {
	return prefix + t.Library + "-" + t.Pattern + "-" + t.Style + "-" + t.Language
}

// BelongsTo reports whether id carries a synthesized-identifier prefix.
// It does not check that the remainder decodes to known dimension values.
func BelongsTo(id string) bool {
	return prefixOf(id) != ""
}

func prefixOf(id string) string {
	for _, p := range Prefixes {
		if strings.HasPrefix(id, p) {
			return p
		}
	}
	return ""
}

// Decode splits id into its prefix and tuple. The last three hyphen
// segments are pattern, style and language; everything before them is the
// library.
func Decode(id string) (string, Tuple, error) {
	prefix := prefixOf(id)
	if prefix == "" {
		return "", Tuple{}, Errorf(KindNotFound, id, "no recognized prefix")
	}
	segs := strings.Split(strings.TrimPrefix(id, prefix), "-")
	if len(segs) < 4 {
		return "", Tuple{}, Errorf(KindMalformedIdentifier, id, "want at least 4 segments, got %d", len(segs))
	}
	n := len(segs)
	t := Tuple{
		Library:  strings.Join(segs[:n-3], "-"),
		Pattern:  segs[n-3],
		Style:    segs[n-2],
		Language: segs[n-1],
	}
	for _, part := range []string{t.Library, t.Pattern, t.Style, t.Language} {
		if part == "" {
			return "", Tuple{}, Errorf(KindMalformedIdentifier, id, "empty segment")
		}
	}
	return prefix, t, nil
}

// Validate checks that every component of t is a known dimension value.
func (t Tuple) Validate() error {
	switch {
	case !slices.Contains(Libraries, t.Library):
		return Errorf(KindUnknownIdentifier, t.String(), "unknown library %q", t.Library)
	case !slices.Contains(Patterns, t.Pattern):
		return Errorf(KindUnknownIdentifier, t.String(), "unknown pattern %q", t.Pattern)
	case !slices.Contains(Styles, t.Style):
		return Errorf(KindUnknownIdentifier, t.String(), "unknown style %q", t.Style)
	case !slices.Contains(Languages, t.Language):
		return Errorf(KindUnknownIdentifier, t.String(), "unknown language %q", t.Language)
	}
	return nil
}

func (t Tuple) String() string {
	return t.Library + "-" + t.Pattern + "-" + t.Style + "-" + t.Language
}

// SpaceSize is the number of identifiers Enumerate yields without a limit.
func SpaceSize() int {
	return len(Libraries) * len(Patterns) * len(Styles) * len(Languages)
}

// Enumerate yields primary-prefix identifiers over the Cartesian product of
// the dimension lists, stopping after limit items when limit > 0. The
// sequence is lazy and can be ranged over any number of times.
func Enumerate(limit int) iter.Seq[string] {
	return func(yield func(string) bool) {
		n := 0
		for _, lib := range Libraries {
			for _, pat := range Patterns {
				for _, sty := range Styles {
					for _, lang := range Languages {
						if limit > 0 && n >= limit {
							return
						}
						n++
						if !yield(Encode(PrefixSynth, Tuple{lib, pat, sty, lang})) {
							return
						}
					}
				}
			}
		}
	}
}
