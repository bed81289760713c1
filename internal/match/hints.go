package match

import (
	"fmt"
	"regexp"
)

// Hint maps a regular expression over folded task text to a canonical token.
// Folded text is lowercase with diacritics removed, so patterns are written
// in plain ASCII.
type Hint struct {
	Pattern string
	Token   string
}

// DefaultHints covers the phrasings users commonly reach for, in English,
// Spanish, Portuguese, French and German.
var DefaultHints = []Hint{
	{`\b(secure|security|seguro|segura|seguridad|seguranca|securise|securite|sicher|sicherheit|harden(ed)?|helmet|csp|owasp)\b`, "secure"},
	{`\b(typed|type-?safe|strongly typed|tipad[oa]s?|tipagem|fortement type|typisiert|typsicher)\b`, "typed"},
	{`\b(tests?|testing|unit tests?|specs?|pruebas?|testes?|testen|e2e|end-to-end)\b`, "testing"},
	{`\b(workers?|background jobs?|job queue|trabajador(es)?|tarefa|tache de fond|hintergrund)\b`, "worker"},
	{`\b(queues?|cola|fila|file d.attente|warteschlange)\b`, "queue"},
	{`\b(listen(er|ing)?|subscriber|subscribe|event handler|escuchar?|oyente|ouvinte|ecouteur|zuhoren)\b`, "listener"},
	{`\b(routes?|endpoints?|rutas?|rotas?|controller|rest api|http api)\b`, "route"},
	{`\b(plugins?|extensions?|complemento|erweiterung)\b`, "plugin"},
	{`\b(middlewares?|interceptor)\b`, "middleware"},
	{`\b(ts|tsx|typescript)\b`, "typescript"},
	{`\b(js|mjs|cjs|javascript|vanilla)\b`, "javascript"},
	{`\b(websockets?|realtime|real-time|tiempo real|tempo real|temps reel|echtzeit)\b`, "realtime"},
	{`\b(database|db|base de datos|banco de dados|base de donnees|datenbank|orm|migrations?|migracion|migracao)\b`, "database"},
	{`\b(schema|esquema|schemas|validation|validacion|validacao|validate|validar)\b`, "schema"},
	{`\b(auth|authentication|autenticacion|autenticacao|login|sign ?in|jwt|sessions?|oauth|anmeldung)\b`, "auth"},
	{`\b(cron|schedul(e|ed|er)|programad[oa]|agendad[oa]|planifie|zeitplan)\b`, "cron"},
	{`\b(cache|caching|cachear|memoize)\b`, "cache"},
	{`\b(cli|command[- ]line|terminal|linea de comandos|linha de comando|ligne de commande|kommandozeile)\b`, "cli"},
	{`\b(logging|logs?|tracing|telemetry|metrics|observability|monitoring|registro|metricas)\b`, "observable"},
	{`\b(rate[- ]?limit(s|ing|er)?|throttl(e|ing)|limite de (tasa|taxa))\b`, "rate-limit"},
	{`\b(minimal|simple|lightweight|bare|sencill[oa]|simples|minimo|einfach)\b`, "minimal"},
	{`\b(http client|api client|sdk|fetch|cliente)\b`, "client"},
}

type compiledHint struct {
	re    *regexp.Regexp
	token string
}

func compileHints(hints []Hint) ([]compiledHint, error) {
	out := make([]compiledHint, 0, len(hints))
	for _, h := range hints {
		re, err := regexp.Compile(h.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling hint %q: %w", h.Token, err)
		}
		out = append(out, compiledHint{re: re, token: h.Token})
	}
	return out, nil
}
