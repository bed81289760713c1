package match

import (
	"fmt"
	"regexp"
)

// Alias maps a phrase pattern over folded task text to spike identifiers.
type Alias struct {
	Pattern string
	IDs     []string
}

// DefaultAliases are phrasings precise enough to name a spike outright.
var DefaultAliases = []Alias{
	{`\belysia\b.*\b(secur\w*|helmet|harden\w*)\b|\b(secur\w*|helmet)\b.*\belysia\b`, []string{"synth-elysia-plugin-secure-typescript"}},
	{`\bbun\.serve\b|\bbun (http )?server\b`, []string{"synth-bun-serve-route-basic-typescript"}},
	{`\bhono (route|endpoint|api)s?\b`, []string{"synth-hono-route-basic-typescript"}},
	{`\bexpress (route|endpoint|api)s?\b`, []string{"synth-express-route-basic-javascript"}},
	{`\bfastify plugins?\b`, []string{"synth-fastify-plugin-basic-typescript"}},
	{`\bbullmq (worker|queue)s?\b`, []string{"synth-bullmq-worker-basic-typescript"}},
	{`\bprisma schema\b`, []string{"synth-prisma-schema-basic-typescript"}},
	{`\bdrizzle (schema|tables?)\b`, []string{"synth-drizzle-schema-typed-typescript"}},
	{`\bzod (schema|validation)\b`, []string{"synth-zod-schema-typed-typescript"}},
	{`\b(websocket|ws) (server|listener)\b`, []string{"synth-ws-listener-basic-typescript"}},
	{`\bsocket\.?io\b`, []string{"synth-socket-io-listener-basic-typescript"}},
	{`\bkafka (consumer|listener)s?\b`, []string{"synth-kafkajs-listener-basic-typescript"}},
	{`\bplaywright\b.*\b(e2e|tests?)\b`, []string{"synth-playwright-test-testing-typescript"}},
	{`\b(cli tool|command[- ]line tool)\b`, []string{"synth-commander-cli-basic-typescript"}},
	{`\bredis cache\b`, []string{"synth-redis-cache-basic-typescript", "synth-ioredis-cache-basic-typescript"}},
	{`\btrpc (router|procedure)s?\b`, []string{"synth-trpc-route-typed-typescript"}},
}

type compiledAlias struct {
	re  *regexp.Regexp
	ids []string
}

// AliasResolver finds identifiers named by well-known phrasings.
type AliasResolver struct {
	aliases []compiledAlias
}

// NewAliasResolver compiles the alias table.
func NewAliasResolver(aliases []Alias) (*AliasResolver, error) {
	out := make([]compiledAlias, 0, len(aliases))
	for _, a := range aliases {
		re, err := regexp.Compile(a.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling alias %q: %w", a.Pattern, err)
		}
		out = append(out, compiledAlias{re: re, ids: a.IDs})
	}
	return &AliasResolver{aliases: out}, nil
}

// MustAliasResolver is NewAliasResolver for static tables.
func MustAliasResolver(aliases []Alias) *AliasResolver {
	r, err := NewAliasResolver(aliases)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the identifiers of every matching alias, deduplicated, in
// table order.
func (r *AliasResolver) Resolve(text string) []string {
	folded := Fold(text)
	var ids []string
	seen := make(map[string]bool)
	for _, a := range r.aliases {
		if !a.re.MatchString(folded) {
			continue
		}
		for _, id := range a.ids {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
