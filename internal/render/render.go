// Package render substitutes {{token}} placeholders in spike file templates.
//
// Rendering is best-effort: a token with no binding renders as the empty
// string and is reported in Result.Missing rather than failing.
package render

import (
	"maps"
	"regexp"
	"slices"

	"github.com/HendryAvila/spikeforge/internal/catalog"
)

var tokenPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)\}\}`)

// Result is a rendered file set.
type Result struct {
	Files   []catalog.FileTemplate `json:"files"`
	Patches []catalog.Patch        `json:"patches,omitempty"`
	Params  map[string]string      `json:"params"`
	Missing []string               `json:"missing,omitempty"`
}

// String renders one template and returns the names of unbound tokens.
func String(tmpl string, params map[string]string) (string, []string) {
	var missing []string
	out := tokenPattern.ReplaceAllStringFunc(tmpl, func(tok string) string {
		name := tok[2 : len(tok)-2]
		if v, ok := params[name]; ok {
			return v
		}
		missing = append(missing, name)
		return ""
	})
	return out, missing
}

// Files renders both the path and the content of every file.
func Files(files []catalog.FileTemplate, params map[string]string) ([]catalog.FileTemplate, []string) {
	out := make([]catalog.FileTemplate, len(files))
	var missing []string
	for i, f := range files {
		p, m1 := String(f.Path, params)
		c, m2 := String(f.Content, params)
		out[i] = catalog.FileTemplate{Path: p, Content: c}
		missing = append(missing, m1...)
		missing = append(missing, m2...)
	}
	return out, unique(missing)
}

// Patches renders patch paths and diff bodies.
func Patches(patches []catalog.Patch, params map[string]string) ([]catalog.Patch, []string) {
	out := make([]catalog.Patch, len(patches))
	var missing []string
	for i, p := range patches {
		path, m1 := String(p.Path, params)
		diff, m2 := String(p.Diff, params)
		out[i] = catalog.Patch{Path: path, Diff: diff}
		missing = append(missing, m1...)
		missing = append(missing, m2...)
	}
	return out, unique(missing)
}

// Definition renders a whole spike. Parameter defaults are applied first
// and caller-supplied params override them.
func Definition(def *catalog.Definition, params map[string]string) Result {
	merged := def.ParamDefaults()
	maps.Copy(merged, params)

	files, m1 := Files(def.Files, merged)
	patches, m2 := Patches(def.Patches, merged)
	return Result{
		Files:   files,
		Patches: patches,
		Params:  merged,
		Missing: unique(append(m1, m2...)),
	}
}

// Tokens lists the distinct placeholder names used in tmpl.
func Tokens(tmpl string) []string {
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(tmpl, -1) {
		names = append(names, m[1])
	}
	return unique(names)
}

func unique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
