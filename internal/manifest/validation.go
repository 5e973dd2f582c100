package manifest

import (
	"fmt"
	"strings"

	"github.com/ontocat/ontocat/internal/ontology"
)

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the manifest for structural problems before any type
// reaches a registry.
func (m *Manifest) Validate() error {
	var errors ValidationErrors

	if m.Ontology == "" {
		errors = append(errors, ValidationError{
			Field:   "ontology",
			Message: "ontology name is required",
		})
	}

	root := m.RootName()
	seen := make(map[string]int, len(m.Types))
	for i, decl := range m.Types {
		field := fmt.Sprintf("types[%d]", i)

		if decl.Name == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Message: "type name is empty",
			})
			continue
		}
		if decl.Name == root {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("%q is the root type and is declared implicitly", root),
			})
		}
		if prev, dup := seen[decl.Name]; dup {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("type %q already declared at types[%d]", decl.Name, prev),
			})
		} else {
			seen[decl.Name] = i
		}

		parentSeen := make(map[string]bool, len(decl.Extends))
		for _, p := range decl.Extends {
			if p == "" {
				errors = append(errors, ValidationError{
					Field:   field + ".extends",
					Message: "parent name is empty",
				})
				continue
			}
			if p == decl.Name {
				errors = append(errors, ValidationError{
					Field:   field + ".extends",
					Message: fmt.Sprintf("type %q extends itself", decl.Name),
				})
			}
			if parentSeen[p] {
				errors = append(errors, ValidationError{
					Field:   field + ".extends",
					Message: fmt.Sprintf("parent %q listed twice", p),
				})
			}
			parentSeen[p] = true
		}

		for _, c := range decl.Capabilities {
			if _, err := ontology.ParseCapability(c); err != nil {
				errors = append(errors, ValidationError{
					Field:   field + ".capabilities",
					Message: err.Error(),
				})
			}
		}
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}
