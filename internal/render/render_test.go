package render

import (
	"reflect"
	"testing"

	"github.com/HendryAvila/spikeforge/internal/catalog"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestString_Substitutes(t *testing.T) {
	got, missing := String("hello {{name}} on {{port}}", map[string]string{"name": "api", "port": "8080"})
	if got != "hello api on 8080" {
		t.Errorf("String = %q", got)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
}

func TestString_UnresolvedRendersEmpty(t *testing.T) {
	got, missing := String("a{{gone}}b{{also-gone}}c", nil)
	if got != "abc" {
		t.Errorf("String = %q, want abc", got)
	}
	if !reflect.DeepEqual(missing, []string{"gone", "also-gone"}) {
		t.Errorf("missing = %v", missing)
	}
}

func TestString_IgnoresNonTokens(t *testing.T) {
	tests := []string{
		"{ single }",
		"{{ spaced }}",
		"{{bad.char}}",
		"const x = { a: { b: 1 } };",
		"${template}",
	}
	for _, in := range tests {
		got, missing := String(in, map[string]string{"spaced": "x", "bad.char": "x"})
		if got != in {
			t.Errorf("String(%q) = %q, should be untouched", in, got)
		}
		if len(missing) != 0 {
			t.Errorf("String(%q) missing = %v", in, missing)
		}
	}
}

func TestFiles_RendersPathAndContent(t *testing.T) {
	files := []catalog.FileTemplate{
		{Path: "src/{{name}}.ts", Content: "export const {{name}} = {{value}};"},
		{Path: "README.md", Content: "# {{name}}"},
	}
	got, missing := Files(files, map[string]string{"name": "svc"})
	want := []catalog.FileTemplate{
		{Path: "src/svc.ts", Content: "export const svc = ;"},
		{Path: "README.md", Content: "# svc"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Files = %+v", got)
	}
	if !reflect.DeepEqual(missing, []string{"value"}) {
		t.Errorf("missing = %v", missing)
	}
	if files[0].Path != "src/{{name}}.ts" {
		t.Error("Files must not mutate its input")
	}
}

func TestDefinition_DefaultsThenOverrides(t *testing.T) {
	def := &catalog.Definition{
		ID:   "x",
		Name: "x",
		Params: []catalog.Param{
			{Name: "name", Default: "default-name"},
			{Name: "port", Default: "3000"},
		},
		Files:   []catalog.FileTemplate{{Path: "{{name}}.txt", Content: "{{port}}"}},
		Patches: []catalog.Patch{{Path: "package.json", Diff: "+ {{name}}"}},
	}
	res := Definition(def, map[string]string{"port": "9000"})
	if res.Files[0].Path != "default-name.txt" || res.Files[0].Content != "9000" {
		t.Errorf("Files = %+v", res.Files)
	}
	if res.Patches[0].Diff != "+ default-name" {
		t.Errorf("Patches = %+v", res.Patches)
	}
	if res.Params["port"] != "9000" || res.Params["name"] != "default-name" {
		t.Errorf("Params = %v", res.Params)
	}
}

func TestDefinition_SynthesizedHasNoMissingTokens(t *testing.T) {
	for _, id := range []string{
		"synth-elysia-plugin-secure-typescript",
		"synth-bullmq-worker-observable-javascript",
		"synth-playwright-test-testing-typescript",
		"synth-ws-listener-basic-javascript",
	} {
		def, err := catalog.Synthesize(id)
		if err != nil {
			t.Fatalf("Synthesize(%s): %v", id, err)
		}
		res := Definition(def, nil)
		if len(res.Missing) != 0 {
			t.Errorf("%s: unbound tokens %v", id, res.Missing)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("{{b}} {{a}} {{b}} {{ c }}")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Tokens = %v", got)
	}
}

func TestRenderIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("second empty render is a no-op", prop.ForAll(
		func(prefix, name, suffix string) bool {
			files := []catalog.FileTemplate{{
				Path:    prefix + "{{" + name + "}}" + suffix,
				Content: suffix + "{{" + name + "}}{{other}}" + prefix,
			}}
			once, _ := Files(files, map[string]string{})
			twice, missing := Files(once, map[string]string{})
			return reflect.DeepEqual(once, twice) && len(missing) == 0
		},
		gen.AlphaString(),
		gen.RegexMatch(`^[a-zA-Z0-9_-]{1,12}$`),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
