// Package manifest loads ontology type declarations from YAML files and
// applies them to a type registry.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ontocat/ontocat/internal/ontology"
)

// DefaultRoot is the root type name used when a manifest does not set one.
const DefaultRoot = "Informant"

// TypeDecl declares one ontology type.
type TypeDecl struct {
	Name         string   `yaml:"name"`
	Extends      []string `yaml:"extends,omitempty"`
	Fields       []string `yaml:"fields,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
}

// Manifest is a static description of one ontology: a named set of type
// declarations rooted at a single root type.
type Manifest struct {
	Ontology string     `yaml:"ontology"`
	Root     string     `yaml:"root,omitempty"`
	Types    []TypeDecl `yaml:"types"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// RootName returns the configured root type name, or DefaultRoot when the
// manifest leaves it unset.
func (m *Manifest) RootName() string {
	if m.Root != "" {
		return m.Root
	}
	return DefaultRoot
}

// Registry builds a fresh type registry from the manifest: the root type
// first, then every declared type in declaration order.
func (m *Manifest) Registry() (*ontology.TypeRegistry, error) {
	reg := ontology.NewTypeRegistry(m.RootName())
	if err := m.Apply(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Apply registers every declared type on an existing registry. The registry
// root must match the manifest root so parent defaulting lands on the same
// type.
func (m *Manifest) Apply(reg *ontology.TypeRegistry) error {
	if reg.Root() != m.RootName() {
		return fmt.Errorf("manifest root %q does not match registry root %q", m.RootName(), reg.Root())
	}

	for _, decl := range m.Types {
		caps := make([]ontology.Capability, 0, len(decl.Capabilities))
		for _, name := range decl.Capabilities {
			c, err := ontology.ParseCapability(name)
			if err != nil {
				return fmt.Errorf("type %q: %w", decl.Name, err)
			}
			caps = append(caps, c)
		}

		t := &ontology.Type{
			Name:         decl.Name,
			Parents:      decl.Extends,
			Fields:       decl.Fields,
			Capabilities: caps,
		}
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("failed to register type %q: %w", decl.Name, err)
		}
	}
	return nil
}

// Starter returns the manifest written into new projects: a minimal
// ontology with one located directory type and one tabular dataset type.
func Starter(ontologyName string) *Manifest {
	return &Manifest{
		Ontology: ontologyName,
		Types: []TypeDecl{
			{
				Name:         "Directory",
				Capabilities: []string{string(ontology.CapLocation)},
			},
			{
				Name:         "Dataset",
				Extends:      []string{"Directory"},
				Fields:       []string{"file_type"},
				Capabilities: []string{string(ontology.CapTabular)},
			},
		},
	}
}
