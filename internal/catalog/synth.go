package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// fileSpec builds one file of a rule. Paths and contents may contain
// {{token}} placeholders; they are rendered later, not here.
type fileSpec struct {
	path    func(Tuple) string
	content func(Tuple) string
}

// patchSpec builds one unified-diff patch of a rule.
type patchSpec struct {
	path string
	diff func(Tuple) string
}

// rule is one guarded specialization. Rules only add: files, patches,
// tags, stack entries and params. Nothing a rule contributes is ever
// removed by another rule.
type rule struct {
	name    string
	note    string
	when    func(Tuple) bool
	tags    []string
	stack   []string
	params  []Param
	files   []fileSpec
	patches []patchSpec
}

// matching returns the rules that apply to t, in registry order.
func matching(t Tuple) []*rule {
	var out []*rule
	for i := range registry {
		if registry[i].when(t) {
			out = append(out, &registry[i])
		}
	}
	return out
}

// Synthesize deterministically builds the definition for a synthesized
// identifier. The same id always yields the same definition.
func Synthesize(id string) (*Definition, error) {
	prefix, t, err := Decode(id)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, Errorf(KindUnknownIdentifier, id, "not a synthesized identifier")
		}
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, &Error{Kind: KindUnknownIdentifier, ID: id, Err: err}
	}

	rules := matching(t)
	def := &Definition{
		ID:          id,
		Name:        displayName(t),
		Version:     "1.0.0",
		Stack:       baseStack(t),
		Tags:        baseTags(prefix, t),
		Description: shortDescription(t),
		Params:      baseParams(t),
		Files: []FileTemplate{
			{Path: "src/{{name}}." + ext(t), Content: stubSource(t)},
			{Path: "README.md", Content: readme(t)},
		},
	}

	var notes []string
	for _, r := range rules {
		def.Stack = appendUnique(def.Stack, r.stack...)
		def.Tags = append(def.Tags, r.tags...)
		def.Params = append(def.Params, r.params...)
		for _, f := range r.files {
			def.Files = addFile(def.Files, FileTemplate{Path: f.path(t), Content: f.content(t)})
		}
		for _, p := range r.patches {
			def.Patches = append(def.Patches, Patch{Path: p.path, Diff: p.diff(t)})
		}
		if r.note != "" {
			notes = append(notes, r.note)
		}
	}
	if len(notes) > 0 {
		def.Description += " Includes " + strings.Join(notes, "; ") + "."
	}

	def.Tags = sortedUnique(def.Tags)
	def.Params = uniqueParams(def.Params)
	sort.SliceStable(def.Files, func(i, j int) bool { return def.Files[i].Path < def.Files[j].Path })
	sort.SliceStable(def.Patches, func(i, j int) bool { return def.Patches[i].Path < def.Patches[j].Path })
	return def, nil
}

// SynthesizeMetadata computes the ranking projection of a synthesized
// identifier without building any file content.
func SynthesizeMetadata(id string) (Metadata, error) {
	prefix, t, err := Decode(id)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return Metadata{}, Errorf(KindUnknownIdentifier, id, "not a synthesized identifier")
		}
		return Metadata{}, err
	}
	if err := t.Validate(); err != nil {
		return Metadata{}, &Error{Kind: KindUnknownIdentifier, ID: id, Err: err}
	}

	m := Metadata{
		ID:          id,
		Name:        displayName(t),
		Description: shortDescription(t),
		Stack:       baseStack(t),
		Version:     "1.0.0",
		FileCount:   2,
	}
	tags := baseTags(prefix, t)
	paths := map[string]bool{"src/{{name}}." + ext(t): true, "README.md": true}
	for _, r := range matching(t) {
		m.Stack = appendUnique(m.Stack, r.stack...)
		tags = append(tags, r.tags...)
		for _, f := range r.files {
			p := f.path(t)
			if !paths[p] {
				paths[p] = true
				m.FileCount++
			}
		}
		m.PatchCount += len(r.patches)
	}
	m.Tags = sortedUnique(tags)
	return m, nil
}

// addFile appends f, or extends the content of an existing file at the
// same path so an earlier rule's output is never dropped.
func addFile(files []FileTemplate, f FileTemplate) []FileTemplate {
	for i := range files {
		if files[i].Path == f.Path {
			files[i].Content = strings.TrimRight(files[i].Content, "\n") + "\n\n" + f.Content
			return files
		}
	}
	return append(files, f)
}

func displayName(t Tuple) string {
	return fmt.Sprintf("%s %s (%s, %s)", t.Library, t.Pattern, t.Style, t.Language)
}

func shortDescription(t Tuple) string {
	return fmt.Sprintf("%s %s scaffold for %s on %s in %s, %s style.",
		strings.ToUpper(t.Pattern[:1])+t.Pattern[1:], categoryOf(t.Library), t.Library, runtimeOf(t), t.Language, t.Style)
}

func baseStack(t Tuple) []string {
	return []string{runtimeOf(t), t.Library, t.Language}
}

func baseTags(prefix string, t Tuple) []string {
	tags := []string{t.Pattern, t.Style, t.Library, categoryOf(t.Library)}
	tags = append(tags, styleTags[t.Style]...)
	if prefix == PrefixLab {
		tags = append(tags, "experimental")
	}
	return tags
}

func baseParams(t Tuple) []Param {
	return []Param{
		{Name: "name", Description: "Module name used in paths and identifiers", Default: t.Library + "-" + t.Pattern, Required: true},
		{Name: "description", Description: "One-line summary written into the README", Default: shortDescription(t)},
	}
}

var styleTags = map[string][]string{
	"secure":     {"helmet", "rate-limit", "security"},
	"typed":      {"types", "type-safe"},
	"testing":    {"tests"},
	"observable": {"logging", "tracing", "metrics"},
	"minimal":    {"lightweight"},
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func sortedUnique(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

func uniqueParams(in []Param) []Param {
	seen := make(map[string]bool, len(in))
	out := make([]Param, 0, len(in))
	for _, p := range in {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}
