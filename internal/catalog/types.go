// Package catalog defines spike templates and the combinatorial identifier
// space they are synthesized from.
//
// A spike is a parameterized scaffold: a set of file templates (and optional
// unified-diff patches) for one technology combination. Most spikes are never
// stored anywhere. Their identifiers encode a (library, pattern, style,
// language) tuple and Synthesize builds the definition on demand.
package catalog

import "strings"

// Source reports where a resolved definition came from.
type Source string

const (
	SourceCache       Source = "cache"
	SourceOverride    Source = "override"
	SourceSynthesized Source = "synthesized"
)

// FileTemplate is a path/content pair containing {{token}} placeholders.
type FileTemplate struct {
	Path    string `json:"path" yaml:"path" validate:"required"`
	Content string `json:"content" yaml:"content"`
}

// Patch is unified-diff text applied to an existing file.
type Patch struct {
	Path string `json:"path" yaml:"path" validate:"required"`
	Diff string `json:"diff" yaml:"diff"`
}

// Param describes one substitution parameter accepted by a spike.
type Param struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Definition is a full spike template.
type Definition struct {
	ID          string         `json:"id" yaml:"id" validate:"required"`
	Name        string         `json:"name" yaml:"name" validate:"required"`
	Version     string         `json:"version,omitempty" yaml:"version,omitempty"`
	Stack       []string       `json:"stack,omitempty" yaml:"stack,omitempty"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Params      []Param        `json:"params,omitempty" yaml:"params,omitempty" validate:"dive"`
	Files       []FileTemplate `json:"files,omitempty" yaml:"files,omitempty" validate:"dive"`
	Patches     []Patch        `json:"patches,omitempty" yaml:"patches,omitempty" validate:"dive"`
}

// Metadata is the lightweight projection of a Definition used for ranking.
type Metadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Stack       []string `json:"stack,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Version     string   `json:"version,omitempty"`
	FileCount   int      `json:"file_count"`
	PatchCount  int      `json:"patch_count"`
}

// Metadata projects the definition down to its ranking fields.
func (d *Definition) Metadata() Metadata {
	return Metadata{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Stack:       d.Stack,
		Tags:        d.Tags,
		Version:     d.Version,
		FileCount:   len(d.Files),
		PatchCount:  len(d.Patches),
	}
}

// Haystack is the lowercased concatenation of the fields matched against a task.
func (m Metadata) Haystack() string {
	parts := make([]string, 0, 3+len(m.Stack)+len(m.Tags))
	parts = append(parts, m.ID, m.Name)
	parts = append(parts, m.Stack...)
	parts = append(parts, m.Tags...)
	parts = append(parts, m.Description)
	return strings.ToLower(strings.Join(parts, " "))
}

// ParamDefaults returns the default value of every parameter that has one.
func (d *Definition) ParamDefaults() map[string]string {
	out := make(map[string]string, len(d.Params))
	for _, p := range d.Params {
		if p.Default != "" {
			out[p.Name] = p.Default
		}
	}
	return out
}

// Clone returns a deep copy so callers can never mutate a cached definition.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	c.Stack = append([]string(nil), d.Stack...)
	c.Tags = append([]string(nil), d.Tags...)
	c.Params = append([]Param(nil), d.Params...)
	c.Files = append([]FileTemplate(nil), d.Files...)
	c.Patches = append([]Patch(nil), d.Patches...)
	return &c
}
