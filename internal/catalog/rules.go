package catalog

import (
	"fmt"
	"slices"
	"strings"
)

var categories = map[string][]string{
	"framework":     {"elysia", "hono", "express", "fastify", "koa", "nestjs", "bun-serve"},
	"database":      {"drizzle", "prisma", "typeorm", "mongoose", "pg", "redis", "ioredis"},
	"validation":    {"zod", "valibot", "typebox"},
	"messaging":     {"bullmq", "kafkajs", "nats", "amqplib"},
	"realtime":      {"socket-io", "ws"},
	"api":           {"trpc", "graphql-yoga"},
	"auth":          {"jose", "lucia", "better-auth"},
	"observability": {"pino", "opentelemetry"},
	"http-client":   {"axios", "ky"},
	"test-runner":   {"vitest", "playwright"},
	"command-line":  {"commander", "citty"},
}

// npm package names where they differ from the library identifier.
var packageNames = map[string]string{
	"nestjs":        "@nestjs/core",
	"drizzle":       "drizzle-orm",
	"prisma":        "@prisma/client",
	"typebox":       "@sinclair/typebox",
	"socket-io":     "socket.io",
	"trpc":          "@trpc/server",
	"opentelemetry": "@opentelemetry/api",
	"playwright":    "@playwright/test",
	"bun-serve":     "",
}

func categoryOf(lib string) string {
	for cat, libs := range categories {
		if slices.Contains(libs, lib) {
			return cat
		}
	}
	return "library"
}

func inCategory(cat string) func(Tuple) bool {
	return func(t Tuple) bool { return slices.Contains(categories[cat], t.Library) }
}

func patternIs(pats ...string) func(Tuple) bool {
	return func(t Tuple) bool { return slices.Contains(pats, t.Pattern) }
}

func styleIs(styles ...string) func(Tuple) bool {
	return func(t Tuple) bool { return slices.Contains(styles, t.Style) }
}

func allOf(preds ...func(Tuple) bool) func(Tuple) bool {
	return func(t Tuple) bool {
		for _, p := range preds {
			if !p(t) {
				return false
			}
		}
		return true
	}
}

func anyOf(preds ...func(Tuple) bool) func(Tuple) bool {
	return func(t Tuple) bool {
		for _, p := range preds {
			if p(t) {
				return true
			}
		}
		return false
	}
}

func packageOf(lib string) string {
	if p, ok := packageNames[lib]; ok {
		return p
	}
	return lib
}

func runtimeOf(t Tuple) string {
	switch t.Library {
	case "elysia", "bun-serve":
		return "bun"
	}
	return "node"
}

func ext(t Tuple) string {
	if t.Language == "typescript" {
		return "ts"
	}
	return "js"
}

func fixed(path string) func(Tuple) string {
	return func(Tuple) string { return path }
}

func withExt(base string) func(Tuple) string {
	return func(t Tuple) string { return base + "." + ext(t) }
}

func importLine(t Tuple, what string) string {
	pkg := packageOf(t.Library)
	if pkg == "" {
		return ""
	}
	return fmt.Sprintf("import %s from %q;\n", what, pkg)
}

func stubSource(t Tuple) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// {{name}}: %s %s for %s\n", t.Style, t.Pattern, t.Library)
	b.WriteString(importLine(t, "* as lib"))
	b.WriteString("\n")
	if t.Language == "typescript" {
		b.WriteString("export function setup(): void {\n")
	} else {
		b.WriteString("export function setup() {\n")
	}
	b.WriteString("  // {{description}}\n}\n")
	return b.String()
}

func readme(t Tuple) string {
	install := "bun add"
	if runtimeOf(t) == "node" {
		install = "npm install"
	}
	pkg := packageOf(t.Library)
	if pkg == "" {
		pkg = "(built in)"
	}
	return fmt.Sprintf("# {{name}}\n\n{{description}}\n\n- Library: %s\n- Pattern: %s\n- Style: %s\n- Language: %s\n\n## Setup\n\n```sh\n%s %s\n```\n",
		t.Library, t.Pattern, t.Style, t.Language, install, pkg)
}

func packageJSON(t Tuple) string {
	var deps []string
	if pkg := packageOf(t.Library); pkg != "" {
		deps = append(deps, fmt.Sprintf("    %q: \"latest\"", pkg))
	}
	var dev []string
	if t.Language == "typescript" {
		dev = append(dev, `    "typescript": "latest"`)
	}
	if t.Style == "testing" || t.Pattern == "test" {
		dev = append(dev, `    "vitest": "latest"`)
	}
	return fmt.Sprintf("{\n  \"name\": \"{{name}}\",\n  \"description\": \"{{description}}\",\n  \"type\": \"module\",\n  \"dependencies\": {\n%s\n  },\n  \"devDependencies\": {\n%s\n  }\n}\n",
		strings.Join(deps, ",\n"), strings.Join(dev, ",\n"))
}

func tsconfig(t Tuple) string {
	strict := "false"
	if t.Style == "typed" || t.Style == "secure" {
		strict = "true"
	}
	types := "node"
	if runtimeOf(t) == "bun" {
		types = "bun-types"
	}
	return fmt.Sprintf("{\n  \"compilerOptions\": {\n    \"target\": \"ES2022\",\n    \"module\": \"ESNext\",\n    \"moduleResolution\": \"bundler\",\n    \"strict\": %s,\n    \"types\": [%q]\n  }\n}\n", strict, types)
}

var routeSnippets = map[string]string{
	"elysia":    "import { Elysia } from \"elysia\";\n\nexport const {{name}}Route = new Elysia().get(\"/{{name}}\", () => ({ ok: true }));\n",
	"hono":      "import { Hono } from \"hono\";\n\nexport const {{name}}Route = new Hono().get(\"/{{name}}\", (c) => c.json({ ok: true }));\n",
	"express":   "import { Router } from \"express\";\n\nexport const {{name}}Route = Router().get(\"/{{name}}\", (_req, res) => res.json({ ok: true }));\n",
	"fastify":   "export async function {{name}}Route(app) {\n  app.get(\"/{{name}}\", async () => ({ ok: true }));\n}\n",
	"koa":       "import Router from \"@koa/router\";\n\nexport const {{name}}Route = new Router().get(\"/{{name}}\", (ctx) => { ctx.body = { ok: true }; });\n",
	"nestjs":    "import { Controller, Get } from \"@nestjs/common\";\n\n@Controller(\"{{name}}\")\nexport class RouteController {\n  @Get()\n  find() {\n    return { ok: true };\n  }\n}\n",
	"bun-serve": "export const server = Bun.serve({\n  port: Number(\"{{port}}\") || 3000,\n  fetch(req) {\n    return Response.json({ ok: true, path: new URL(req.url).pathname });\n  },\n});\n",
}

var pluginSnippets = map[string]string{
	"elysia":    "import { Elysia } from \"elysia\";\n\nexport const {{name}}Plugin = new Elysia({ name: \"{{name}}\" }).onRequest(() => {});\n",
	"hono":      "import { createMiddleware } from \"hono/factory\";\n\nexport const {{name}}Middleware = createMiddleware(async (_c, next) => {\n  await next();\n});\n",
	"express":   "export function {{name}}Middleware(req, res, next) {\n  next();\n}\n",
	"fastify":   "import fp from \"fastify-plugin\";\n\nexport default fp(async (app) => {\n  app.decorate(\"{{name}}\", true);\n});\n",
	"koa":       "export async function {{name}}Middleware(ctx, next) {\n  await next();\n}\n",
	"nestjs":    "import { Injectable, NestMiddleware } from \"@nestjs/common\";\n\n@Injectable()\nexport class PluginMiddleware implements NestMiddleware {\n  use(_req: unknown, _res: unknown, next: () => void) {\n    next();\n  }\n}\n",
	"bun-serve": "export function {{name}}Plugin(handler) {\n  return (req) => handler(req);\n}\n",
}

func snippet(table map[string]string) func(Tuple) string {
	return func(t Tuple) string { return table[t.Library] }
}

func generic(kind string) func(Tuple) string {
	return func(t Tuple) string {
		return fmt.Sprintf("// {{name}} %s (%s)\n%s\nexport function {{name}}%s() {\n  // implement {{name}} here\n}\n",
			kind, t.Library, importLine(t, "* as lib"), strings.ToUpper(kind[:1])+kind[1:])
	}
}

func securityHeaders(Tuple) string {
	return "export const securityHeaders = {\n  \"Content-Security-Policy\": \"default-src 'self'\",\n  \"X-Frame-Options\": \"DENY\",\n  \"X-Content-Type-Options\": \"nosniff\",\n  \"Referrer-Policy\": \"no-referrer\",\n};\n"
}

func rateLimiter(Tuple) string {
	return "const hits = new Map();\n\nexport function allow(key, limit = Number(\"{{rateLimit}}\") || 100, windowMs = 60_000) {\n  const now = Date.now();\n  const entry = hits.get(key) ?? { count: 0, start: now };\n  if (now - entry.start > windowMs) {\n    entry.count = 0;\n    entry.start = now;\n  }\n  entry.count++;\n  hits.set(key, entry);\n  return entry.count <= limit;\n}\n"
}

func typesFile(t Tuple) string {
	if t.Language == "typescript" {
		return "export interface {{name}}Options {\n  enabled: boolean;\n}\n\nexport type {{name}}Result = { ok: true } | { ok: false; error: string };\n"
	}
	return "/**\n * @typedef {Object} Options\n * @property {boolean} enabled\n */\n\nexport {};\n"
}

func testFile(t Tuple) string {
	runner := "vitest"
	switch {
	case t.Library == "playwright":
		runner = "@playwright/test"
	case runtimeOf(t) == "bun":
		runner = "bun:test"
	}
	return fmt.Sprintf("import { describe, expect, it } from %q;\nimport { setup } from \"../src/{{name}}\";\n\ndescribe(\"{{name}}\", () => {\n  it(\"sets up\", () => {\n    expect(setup).toBeDefined();\n  });\n});\n", runner)
}

func telemetry(Tuple) string {
	return "export function log(event, fields = {}) {\n  console.log(JSON.stringify({ time: new Date().toISOString(), service: \"{{name}}\", event, ...fields }));\n}\n"
}

func envExample(t Tuple) string {
	var b strings.Builder
	b.WriteString("PORT={{port}}\n")
	if t.Style == "secure" {
		b.WriteString("RATE_LIMIT={{rateLimit}}\n")
	}
	if t.Style == "observable" {
		b.WriteString("LOG_LEVEL=info\n")
	}
	return b.String()
}

func workerFile(t Tuple) string {
	if t.Library == "bullmq" {
		return "import { Worker } from \"bullmq\";\n\nexport const worker = new Worker(\"{{queue}}\", async (job) => {\n  return job.data;\n});\n"
	}
	return "export async function handle(job) {\n  // {{name}} processes jobs from {{queue}}\n  return job;\n}\n"
}

func listenerFile(t Tuple) string {
	switch t.Library {
	case "socket-io":
		return "export function register(io) {\n  io.on(\"connection\", (socket) => {\n    socket.on(\"{{topic}}\", (msg) => socket.emit(\"{{topic}}\", msg));\n  });\n}\n"
	case "ws":
		return "import { WebSocketServer } from \"ws\";\n\nexport const wss = new WebSocketServer({ port: Number(\"{{port}}\") || 8080 });\nwss.on(\"connection\", (ws) => ws.on(\"message\", (m) => ws.send(m)));\n"
	case "kafkajs":
		return "export async function listen(consumer) {\n  await consumer.subscribe({ topic: \"{{topic}}\" });\n  await consumer.run({ eachMessage: async ({ message }) => message });\n}\n"
	}
	return "export function on{{name}}(event) {\n  // listens on {{topic}}\n  return event;\n}\n"
}

func dataSchema(t Tuple) string {
	switch t.Library {
	case "prisma":
		return "model Item {\n  id        Int      @id @default(autoincrement())\n  name      String\n  createdAt DateTime @default(now())\n}\n"
	case "drizzle":
		return "import { pgTable, serial, text } from \"drizzle-orm/pg-core\";\n\nexport const items = pgTable(\"{{name}}\", {\n  id: serial(\"id\").primaryKey(),\n  name: text(\"name\").notNull(),\n});\n"
	case "mongoose":
		return "import { Schema, model } from \"mongoose\";\n\nexport const Item = model(\"{{name}}\", new Schema({ name: String }));\n"
	}
	return "-- {{name}} schema\nCREATE TABLE IF NOT EXISTS items (\n  id SERIAL PRIMARY KEY,\n  name TEXT NOT NULL\n);\n"
}

func dataSchemaPath(t Tuple) string {
	switch t.Library {
	case "prisma":
		return "prisma/schema.prisma"
	case "drizzle", "mongoose":
		return "src/db/schema." + ext(t)
	}
	return "db/{{name}}.sql"
}

func validationSchema(t Tuple) string {
	switch t.Library {
	case "zod":
		return "import { z } from \"zod\";\n\nexport const {{name}}Schema = z.object({ name: z.string().min(1) });\n"
	case "valibot":
		return "import * as v from \"valibot\";\n\nexport const {{name}}Schema = v.object({ name: v.pipe(v.string(), v.minLength(1)) });\n"
	}
	return "import { Type } from \"@sinclair/typebox\";\n\nexport const {{name}}Schema = Type.Object({ name: Type.String({ minLength: 1 }) });\n"
}

func migrateScriptPatch(t Tuple) string {
	cmd := "node db/migrate.js"
	switch t.Library {
	case "prisma":
		cmd = "prisma migrate dev"
	case "drizzle":
		cmd = "drizzle-kit migrate"
	}
	return fmt.Sprintf("--- a/package.json\n+++ b/package.json\n@@ -3,3 +3,6 @@\n   \"type\": \"module\",\n+  \"scripts\": {\n+    \"db:migrate\": %q\n+  },\n", cmd)
}

func cliFile(t Tuple) string {
	if t.Library == "commander" {
		return "#!/usr/bin/env node\nimport { Command } from \"commander\";\n\nnew Command(\"{{name}}\").description(\"{{description}}\").parse();\n"
	}
	return "#!/usr/bin/env node\nconst [command, ...args] = process.argv.slice(2);\nconsole.log(\"{{name}}\", command, args);\n"
}

func playwrightConfig(Tuple) string {
	return "import { defineConfig } from \"@playwright/test\";\n\nexport default defineConfig({ testDir: \"tests\", use: { baseURL: \"{{baseUrl}}\" } });\n"
}

// Params shared by several rules must be identical wherever they appear.
var (
	portParam    = Param{Name: "port", Description: "Port the server listens on", Default: "3000"}
	baseURLParam = Param{Name: "baseUrl", Description: "Base URL of the remote API", Default: "http://localhost:3000"}
)

// registry holds every specialization rule, evaluated in this order.
// Paths are disjoint across rules except where noted, so evaluation order
// never changes which files exist.
var registry = []rule{
	{
		name:  "manifest",
		when:  func(Tuple) bool { return true },
		files: []fileSpec{{path: fixed("package.json"), content: packageJSON}},
	},
	{
		name:  "tsconfig",
		when:  func(t Tuple) bool { return t.Language == "typescript" },
		files: []fileSpec{{path: fixed("tsconfig.json"), content: tsconfig}},
	},
	{
		name:   "http-route",
		note:   "an HTTP route handler",
		when:   allOf(inCategory("framework"), patternIs("route")),
		tags:   []string{"http", "endpoint"},
		params: []Param{portParam},
		files:  []fileSpec{{path: withExt("src/routes/{{name}}"), content: snippet(routeSnippets)}},
	},
	{
		name:  "http-plugin",
		note:  "a framework plugin or middleware",
		when:  allOf(inCategory("framework"), patternIs("plugin", "middleware")),
		tags:  []string{"http", "middleware"},
		files: []fileSpec{{path: withExt("src/plugins/{{name}}"), content: snippet(pluginSnippets)}},
	},
	{
		name:   "secure",
		note:   "security headers and a rate limiter",
		when:   styleIs("secure"),
		params: []Param{{Name: "rateLimit", Description: "Requests allowed per minute", Default: "100"}},
		files: []fileSpec{
			{path: withExt("src/security/headers"), content: securityHeaders},
			{path: withExt("src/security/rate-limit"), content: rateLimiter},
		},
	},
	{
		name:  "typed",
		note:  "shared type declarations",
		when:  styleIs("typed"),
		files: []fileSpec{{path: withExt("src/types/{{name}}.types"), content: typesFile}},
	},
	{
		name:  "testing",
		note:  "a test stub",
		when:  anyOf(styleIs("testing"), patternIs("test"), inCategory("test-runner")),
		tags:  []string{"testing"},
		files: []fileSpec{{path: withExt("tests/{{name}}.test"), content: testFile}},
	},
	{
		name:  "observable",
		note:  "structured logging helpers",
		when:  styleIs("observable"),
		files: []fileSpec{{path: withExt("src/telemetry"), content: telemetry}},
	},
	{
		name:   "env",
		when:   anyOf(styleIs("secure", "observable"), patternIs("route", "listener")),
		params: []Param{portParam},
		files:  []fileSpec{{path: fixed(".env.example"), content: envExample}},
	},
	{
		name:   "worker",
		note:   "a background worker",
		when:   anyOf(patternIs("worker", "queue"), allOf(inCategory("messaging"), patternIs("service"))),
		tags:   []string{"worker", "background", "jobs"},
		params: []Param{{Name: "queue", Description: "Queue name", Default: "default"}},
		files:  []fileSpec{{path: withExt("src/workers/{{name}}.worker"), content: workerFile}},
	},
	{
		name:   "listener",
		note:   "an event listener",
		when:   anyOf(patternIs("listener"), allOf(inCategory("realtime"), patternIs("route", "service"))),
		tags:   []string{"listener", "events"},
		params: []Param{portParam, {Name: "topic", Description: "Event or topic name", Default: "events"}},
		files:  []fileSpec{{path: withExt("src/listeners/{{name}}.listener"), content: listenerFile}},
	},
	{
		name:    "data-schema",
		note:    "a database schema and migrate script",
		when:    allOf(inCategory("database"), patternIs("schema")),
		tags:    []string{"database", "migration"},
		files:   []fileSpec{{path: dataSchemaPath, content: dataSchema}},
		patches: []patchSpec{{path: "package.json", diff: migrateScriptPatch}},
	},
	{
		name:  "validation-schema",
		note:  "a validation schema",
		when:  allOf(inCategory("validation"), patternIs("schema", "route")),
		tags:  []string{"validation", "schema"},
		files: []fileSpec{{path: withExt("src/schemas/{{name}}.schema"), content: validationSchema}},
	},
	{
		name:  "cli",
		note:  "a command-line entry point",
		when:  anyOf(patternIs("cli"), inCategory("command-line")),
		tags:  []string{"cli", "command"},
		files: []fileSpec{{path: withExt("bin/{{name}}"), content: cliFile}},
	},
	{
		name:   "cron",
		note:   "a scheduled job",
		when:   patternIs("cron"),
		tags:   []string{"scheduled", "jobs"},
		params: []Param{{Name: "schedule", Description: "Cron expression", Default: "*/5 * * * *"}},
		files:  []fileSpec{{path: withExt("src/jobs/{{name}}.cron"), content: generic("job")}},
	},
	{
		name:   "cache",
		note:   "a cache wrapper",
		when:   anyOf(patternIs("cache"), allOf(patternIs("service"), func(t Tuple) bool { return t.Library == "redis" || t.Library == "ioredis" })),
		tags:   []string{"caching"},
		params: []Param{{Name: "ttlSeconds", Description: "Entry lifetime in seconds", Default: "60"}},
		files:  []fileSpec{{path: withExt("src/cache/{{name}}.cache"), content: generic("cache")}},
	},
	{
		name:  "auth",
		note:  "authentication helpers",
		when:  anyOf(patternIs("auth"), allOf(inCategory("auth"), patternIs("middleware", "route", "service"))),
		tags:  []string{"auth", "authentication"},
		files: []fileSpec{{path: withExt("src/auth/{{name}}.auth"), content: generic("auth")}},
	},
	{
		name:   "client",
		note:   "an HTTP client",
		when:   anyOf(patternIs("client"), inCategory("http-client")),
		tags:   []string{"http", "client"},
		params: []Param{baseURLParam},
		files:  []fileSpec{{path: withExt("src/clients/{{name}}.client"), content: generic("client")}},
	},
	{
		name:  "service",
		note:  "a service module",
		when:  patternIs("service"),
		files: []fileSpec{{path: withExt("src/services/{{name}}.service"), content: generic("service")}},
	},
	{
		name:   "e2e",
		note:   "a Playwright config",
		when:   func(t Tuple) bool { return t.Library == "playwright" },
		tags:   []string{"e2e", "browser"},
		params: []Param{baseURLParam},
		files:  []fileSpec{{path: withExt("playwright.config"), content: playwrightConfig}},
	},
}
