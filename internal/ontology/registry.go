// Package ontology provides the type registry, type graph structures and
// depth metrics for ontocat.
package ontology

import (
	"errors"
	"fmt"
	"strings"
)

// Capability names a composable record behavior a type grants its records.
type Capability string

const (
	// CapLocation marks records that point at a filesystem location.
	CapLocation Capability = "location"
	// CapTabular marks records that describe tabular datasets.
	CapTabular Capability = "tabular"
)

// ParseCapability converts a string to a known Capability.
func ParseCapability(s string) (Capability, error) {
	switch Capability(strings.ToLower(s)) {
	case CapLocation:
		return CapLocation, nil
	case CapTabular:
		return CapTabular, nil
	default:
		return "", fmt.Errorf("unknown capability %q", s)
	}
}

// CapabilityFields returns the attribute names a capability contributes.
func CapabilityFields(c Capability) []string {
	switch c {
	case CapLocation:
		return []string{"path", "external_locations"}
	case CapTabular:
		return []string{"columns", "row_count"}
	default:
		return nil
	}
}

// RootFields are the attributes every record carries regardless of type.
var RootFields = []string{
	"name",
	"type",
	"source_depth",
	"description",
	"tags",
	"references",
	"algorithm",
	"algorithm_params",
	"constructor_command",
}

// Type is a named node in the ontology.
type Type struct {
	Name         string
	Parents      []string     // parent type names; empty means the root is the parent
	Fields       []string     // extra attribute names declared by this type
	Capabilities []Capability // behaviors granted to records of this type

	// DepthOverride pins source_depth instead of deriving it from parents.
	DepthOverride *int
}

// ErrTypeNotFound is returned when a type name is not registered.
var ErrTypeNotFound = errors.New("type not found in registry")

// ErrDuplicateType is returned when registering a type name twice.
var ErrDuplicateType = errors.New("type already registered")

// ErrDepthCycle is returned when source depth resolution hits a parent cycle.
var ErrDepthCycle = errors.New("cycle in parent declarations")

// TypeRegistry holds the registered types of one ontology together with the
// memoized source depth table. The root type is registered at construction
// with depth 0 and every other type reaches it through parents.
type TypeRegistry struct {
	types map[string]*Type
	order []string // registration order
	root  string

	sourceDepths map[string]int             // memo, seeded {root: 0}
	fieldTables  map[string]map[string]bool // memo of FieldsOf
}

// NewTypeRegistry creates a registry whose root type carries the built-in
// record fields at source depth 0.
func NewTypeRegistry(root string) *TypeRegistry {
	r := &TypeRegistry{
		types:        make(map[string]*Type),
		order:        []string{root},
		root:         root,
		sourceDepths: map[string]int{root: 0},
		fieldTables:  make(map[string]map[string]bool),
	}
	r.types[root] = &Type{
		Name:    root,
		Parents: []string{},
		Fields:  append([]string(nil), RootFields...),
	}
	return r
}

// Root returns the root type name.
func (r *TypeRegistry) Root() string {
	return r.root
}

// Register adds a type to the registry. A type with no declared parents
// becomes a direct child of the root. Duplicate names are rejected; parent
// names are checked later, at graph build time, so registration order is
// free.
func (r *TypeRegistry) Register(t *Type) error {
	if t == nil {
		return fmt.Errorf("type is nil")
	}
	if t.Name == "" {
		return fmt.Errorf("type name is empty")
	}
	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, t.Name)
	}

	seen := make(map[string]bool, len(t.Parents))
	for _, p := range t.Parents {
		if p == "" {
			return fmt.Errorf("type %q declares an empty parent name", t.Name)
		}
		if seen[p] {
			return fmt.Errorf("type %q declares parent %q twice", t.Name, p)
		}
		seen[p] = true
	}

	reg := &Type{
		Name:          t.Name,
		Parents:       append([]string(nil), t.Parents...),
		Fields:        append([]string(nil), t.Fields...),
		Capabilities:  append([]Capability(nil), t.Capabilities...),
		DepthOverride: t.DepthOverride,
	}
	if len(reg.Parents) == 0 {
		reg.Parents = []string{r.root}
	}

	r.types[t.Name] = reg
	r.order = append(r.order, t.Name)
	return nil
}

// Lookup returns the type for a name.
func (r *TypeRegistry) Lookup(name string) (*Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Has returns true if the name is registered.
func (r *TypeRegistry) Has(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Len returns the number of registered types, root included.
func (r *TypeRegistry) Len() int {
	return len(r.types)
}

// Types returns all registered types in registration order, root first.
func (r *TypeRegistry) Types() []*Type {
	out := make([]*Type, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

// Names returns all registered type names in registration order.
func (r *TypeRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

// SourceDepth returns the memoized distance from the root: 0 for the root,
// otherwise 1 plus the maximum parent depth. A type with a depth override
// uses it verbatim. Once computed an entry never changes.
func (r *TypeRegistry) SourceDepth(name string) (int, error) {
	return r.sourceDepth(name, make(map[string]bool))
}

func (r *TypeRegistry) sourceDepth(name string, visiting map[string]bool) (int, error) {
	if depth, ok := r.sourceDepths[name]; ok {
		return depth, nil
	}

	t, ok := r.types[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrTypeNotFound, name)
	}

	if visiting[name] {
		return 0, fmt.Errorf("%w: reached %q twice", ErrDepthCycle, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	if t.DepthOverride != nil {
		r.sourceDepths[name] = *t.DepthOverride
		return *t.DepthOverride, nil
	}

	maxParent := 0
	for _, p := range t.Parents {
		d, err := r.sourceDepth(p, visiting)
		if err != nil {
			return 0, err
		}
		if d > maxParent {
			maxParent = d
		}
	}

	depth := 1 + maxParent
	r.sourceDepths[name] = depth
	return depth, nil
}

// IsDescendant reports whether name reaches ancestor through parent links.
// A type is not its own descendant.
func (r *TypeRegistry) IsDescendant(name, ancestor string) (bool, error) {
	if !r.Has(name) {
		return false, fmt.Errorf("%w: %q", ErrTypeNotFound, name)
	}
	if !r.Has(ancestor) {
		return false, fmt.Errorf("%w: %q", ErrTypeNotFound, ancestor)
	}

	visited := make(map[string]bool)
	stack := append([]string(nil), r.types[name].Parents...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == ancestor {
			return true, nil
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if t, ok := r.types[cur]; ok {
			stack = append(stack, t.Parents...)
		}
	}
	return false, nil
}

// Ancestry returns the type's inheritance list, root first and the type
// itself last. With multiple parents the walk is depth-first in parent
// declaration order, each ancestor listed once.
func (r *TypeRegistry) Ancestry(name string) ([]string, error) {
	if !r.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotFound, name)
	}

	var chain []string
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		if t, ok := r.types[cur]; ok {
			for _, p := range t.Parents {
				walk(p)
			}
		}
		chain = append(chain, cur)
	}
	walk(name)
	return chain, nil
}

// FieldsOf returns the field-presence table for a type: the union of the
// built-in fields, every ancestor's declared fields, capability fields and
// the type's own fields. The table is memoized per type.
func (r *TypeRegistry) FieldsOf(name string) (map[string]bool, error) {
	if table, ok := r.fieldTables[name]; ok {
		return table, nil
	}

	chain, err := r.Ancestry(name)
	if err != nil {
		return nil, err
	}

	table := make(map[string]bool)
	for _, tn := range chain {
		t, ok := r.types[tn]
		if !ok {
			continue
		}
		for _, f := range t.Fields {
			table[f] = true
		}
		for _, c := range t.Capabilities {
			for _, f := range CapabilityFields(c) {
				table[f] = true
			}
		}
	}

	r.fieldTables[name] = table
	return table, nil
}

// HasField reports whether a type's field table contains the attribute.
func (r *TypeRegistry) HasField(typeName, field string) (bool, error) {
	table, err := r.FieldsOf(typeName)
	if err != nil {
		return false, err
	}
	return table[field], nil
}

// CapabilitiesOf returns the capabilities a type grants, own and inherited,
// in ancestry order without duplicates.
func (r *TypeRegistry) CapabilitiesOf(name string) ([]Capability, error) {
	chain, err := r.Ancestry(name)
	if err != nil {
		return nil, err
	}

	var caps []Capability
	seen := make(map[Capability]bool)
	for _, tn := range chain {
		t, ok := r.types[tn]
		if !ok {
			continue
		}
		for _, c := range t.Capabilities {
			if !seen[c] {
				seen[c] = true
				caps = append(caps, c)
			}
		}
	}
	return caps, nil
}
