// Package informant models the records an ontology describes: their
// builtin attributes, capability payloads, reference lists and the
// reference-redundancy reducer.
package informant

import (
	"fmt"
	"os"

	"github.com/ontocat/ontocat/internal/ontology"
)

// Location is the capability payload for records that point at a
// filesystem location.
type Location struct {
	Path              string   `json:"path"`
	ExternalLocations []string `json:"external_locations,omitempty"`
}

// Exists reports whether the path is present on disk.
func (l *Location) Exists() bool {
	if l == nil || l.Path == "" {
		return false
	}
	_, err := os.Stat(l.Path)
	return err == nil
}

// Files lists the entries under the path. Nil when the path is not a
// readable directory.
func (l *Location) Files() []string {
	if l == nil {
		return nil
	}
	entries, err := os.ReadDir(l.Path)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// FileCount returns the number of entries under the path, or -1 when the
// path is not a readable directory.
func (l *Location) FileCount() int {
	if l == nil {
		return -1
	}
	entries, err := os.ReadDir(l.Path)
	if err != nil {
		return -1
	}
	return len(entries)
}

// Tabular is the capability payload for records that describe tabular
// datasets.
type Tabular struct {
	Columns  []string `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Record is one catalogued item: a named, typed entry with builtin
// attributes, optional capability payloads and per-type extra fields.
type Record struct {
	Name               string                 `json:"name"`
	TypeName           string                 `json:"type"`
	SourceDepth        int                    `json:"source_depth"`
	Description        string                 `json:"description,omitempty"`
	Tags               []string               `json:"tags"`
	References         []string               `json:"references"`
	Algorithm          string                 `json:"algorithm,omitempty"`
	AlgorithmParams    map[string]interface{} `json:"algorithm_params,omitempty"`
	ConstructorCommand string                 `json:"constructor_command,omitempty"`

	Location *Location `json:"location,omitempty"`
	Tabular  *Tabular  `json:"tabular,omitempty"`

	Extra map[string]interface{} `json:"extra,omitempty"`
}

// config collects construction options before New applies them.
type config struct {
	rec *Record
	reg *ontology.TypeRegistry
}

// Option configures a record under construction.
type Option func(*config)

// WithRegistry validates the type name at construction time and seeds the
// record with the type's source depth and zero-valued payloads for the
// capabilities the type grants.
func WithRegistry(reg *ontology.TypeRegistry) Option {
	return func(c *config) { c.reg = reg }
}

// WithDescription sets the free-text description.
func WithDescription(s string) Option {
	return func(c *config) { c.rec.Description = s }
}

// WithTags sets the tag list.
func WithTags(tags ...string) Option {
	return func(c *config) { c.rec.Tags = append([]string(nil), tags...) }
}

// WithReferences sets the names of the records this one is derived from.
func WithReferences(names ...string) Option {
	return func(c *config) { c.rec.References = append([]string(nil), names...) }
}

// WithAlgorithm records the producing algorithm and its parameters.
func WithAlgorithm(name string, params map[string]interface{}) Option {
	return func(c *config) {
		c.rec.Algorithm = name
		c.rec.AlgorithmParams = params
	}
}

// WithConstructorCommand records the command that rebuilds the record.
func WithConstructorCommand(cmd string) Option {
	return func(c *config) { c.rec.ConstructorCommand = cmd }
}

// WithLocation attaches a location payload.
func WithLocation(loc Location) Option {
	return func(c *config) { c.rec.Location = &loc }
}

// WithTabular attaches a tabular payload.
func WithTabular(tab Tabular) Option {
	return func(c *config) { c.rec.Tabular = &tab }
}

// WithExtra sets one per-type extra field.
func WithExtra(key string, value interface{}) Option {
	return func(c *config) {
		if c.rec.Extra == nil {
			c.rec.Extra = make(map[string]interface{})
		}
		c.rec.Extra[key] = value
	}
}

// New builds a record of the named type. Tags and References are never nil
// on the result. Without WithRegistry any type name is accepted and the
// source depth stays zero; with it, an unknown type is an error and the
// record is seeded from the type's registry entry.
func New(typeName, name string, opts ...Option) (*Record, error) {
	rec := &Record{
		Name:       name,
		TypeName:   typeName,
		Tags:       []string{},
		References: []string{},
	}
	cfg := &config{rec: rec}
	for _, opt := range opts {
		opt(cfg)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.References == nil {
		rec.References = []string{}
	}

	if cfg.reg != nil {
		depth, err := cfg.reg.SourceDepth(typeName)
		if err != nil {
			return nil, fmt.Errorf("new record %q: %w", name, err)
		}
		rec.SourceDepth = depth

		caps, err := cfg.reg.CapabilitiesOf(typeName)
		if err != nil {
			return nil, fmt.Errorf("new record %q: %w", name, err)
		}
		seedCapabilities(rec, caps)
	}
	return rec, nil
}

// seedCapabilities attaches zero-valued payloads for granted capabilities
// that the record does not already carry.
func seedCapabilities(rec *Record, caps []ontology.Capability) {
	for _, c := range caps {
		switch c {
		case ontology.CapLocation:
			if rec.Location == nil {
				rec.Location = &Location{}
			}
		case ontology.CapTabular:
			if rec.Tabular == nil {
				rec.Tabular = &Tabular{}
			}
		}
	}
}

// Attr resolves an attribute by its snake_case name: builtin fields first,
// then the fields of attached capability payloads, then Extra. The second
// return reports whether the name resolved.
func (r *Record) Attr(name string) (interface{}, bool) {
	switch name {
	case "name":
		return r.Name, true
	case "type":
		return r.TypeName, true
	case "source_depth":
		return r.SourceDepth, true
	case "description":
		return r.Description, true
	case "tags":
		return r.Tags, true
	case "references":
		return r.References, true
	case "algorithm":
		return r.Algorithm, true
	case "algorithm_params":
		return r.AlgorithmParams, true
	case "constructor_command":
		return r.ConstructorCommand, true
	}
	if r.Location != nil {
		switch name {
		case "path":
			return r.Location.Path, true
		case "external_locations":
			return r.Location.ExternalLocations, true
		}
	}
	if r.Tabular != nil {
		switch name {
		case "columns":
			return r.Tabular.Columns, true
		case "row_count":
			return r.Tabular.RowCount, true
		}
	}
	if v, ok := r.Extra[name]; ok {
		return v, true
	}
	return nil, false
}

// AddTag appends a tag unless it is already present.
func (r *Record) AddTag(tag string) {
	for _, t := range r.Tags {
		if t == tag {
			return
		}
	}
	r.Tags = append(r.Tags, tag)
}

// RemoveTag removes a tag if present.
func (r *Record) RemoveTag(tag string) {
	for i, t := range r.Tags {
		if t == tag {
			r.Tags = append(r.Tags[:i], r.Tags[i+1:]...)
			return
		}
	}
}

// HasTag reports whether the tag is present.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ConvertTo re-types the record: builtin attributes survive, capability
// payloads survive only when the target type grants the capability, extra
// fields survive only when the target's field table declares them, and
// payloads the target adds start zero-valued. The source record is not
// modified.
func (r *Record) ConvertTo(typeName string, reg *ontology.TypeRegistry) (*Record, error) {
	if reg == nil {
		return nil, fmt.Errorf("convert %q: registry is required", r.Name)
	}
	table, err := reg.FieldsOf(typeName)
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", r.Name, err)
	}
	depth, err := reg.SourceDepth(typeName)
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", r.Name, err)
	}
	caps, err := reg.CapabilitiesOf(typeName)
	if err != nil {
		return nil, fmt.Errorf("convert %q: %w", r.Name, err)
	}

	out := &Record{
		Name:               r.Name,
		TypeName:           typeName,
		SourceDepth:        depth,
		Description:        r.Description,
		Tags:               append([]string{}, r.Tags...),
		References:         append([]string{}, r.References...),
		Algorithm:          r.Algorithm,
		ConstructorCommand: r.ConstructorCommand,
	}
	if r.AlgorithmParams != nil {
		out.AlgorithmParams = make(map[string]interface{}, len(r.AlgorithmParams))
		for k, v := range r.AlgorithmParams {
			out.AlgorithmParams[k] = v
		}
	}

	for _, c := range caps {
		switch c {
		case ontology.CapLocation:
			if r.Location != nil {
				loc := *r.Location
				loc.ExternalLocations = append([]string(nil), r.Location.ExternalLocations...)
				out.Location = &loc
			}
		case ontology.CapTabular:
			if r.Tabular != nil {
				tab := *r.Tabular
				tab.Columns = append([]string(nil), r.Tabular.Columns...)
				out.Tabular = &tab
			}
		}
	}
	seedCapabilities(out, caps)

	for k, v := range r.Extra {
		if !table[k] {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]interface{})
		}
		out.Extra[k] = v
	}
	return out, nil
}

// InheritanceList returns the record's type ancestry, root first and the
// record's own type last.
func (r *Record) InheritanceList(reg *ontology.TypeRegistry) ([]string, error) {
	if reg == nil {
		return nil, fmt.Errorf("inheritance of %q: registry is required", r.Name)
	}
	chain, err := reg.Ancestry(r.TypeName)
	if err != nil {
		return nil, fmt.Errorf("inheritance of %q: %w", r.Name, err)
	}
	return chain, nil
}
