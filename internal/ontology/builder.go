package ontology

import (
	"fmt"
	"sort"
	"strings"
)

// UnknownParentError is returned when a registered type declares parents
// that were never registered.
type UnknownParentError struct {
	TypeName string
	Missing  []string
}

func (e *UnknownParentError) Error() string {
	return fmt.Sprintf("type %q declares unknown parent(s): %s",
		e.TypeName, strings.Join(e.Missing, ", "))
}

// Builder constructs an annotated type graph from a registry.
type Builder struct {
	registry *TypeRegistry
}

// NewBuilder creates a new graph builder for the given registry.
func NewBuilder(registry *TypeRegistry) *Builder {
	return &Builder{registry: registry}
}

// Build constructs the annotated type graph: nodes for every registered
// type, parent/child edges, source depths from the registry memo, and the
// sink metrics. Fails fast on unknown parents and on parent cycles.
func (b *Builder) Build() (*Graph, error) {
	if b.registry == nil {
		return nil, fmt.Errorf("type registry is nil")
	}

	if err := b.checkParents(); err != nil {
		return nil, err
	}

	// Create graph with the root type and one node per registered type
	g := NewGraph(b.registry.Root())
	for _, t := range b.registry.Types() {
		if g.HasNode(t.Name) {
			continue
		}
		g.AddNode(t.Name, &Node{Name: t.Name})
	}

	// Wire edges; child links are the reverse of parent declarations
	for _, t := range b.registry.Types() {
		for _, parent := range t.Parents {
			g.AddEdge(parent, t.Name)
		}
	}

	// Validate graph structure (fail fast on cycles)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	// Source depths come from the registry memo
	for _, name := range g.AllNodes() {
		depth, err := b.registry.SourceDepth(name)
		if err != nil {
			return nil, fmt.Errorf("resolving source depth of %q: %w", name, err)
		}
		g.Nodes[name].SourceDepth = depth
	}

	b.computeSinkMetrics(g)

	return g, nil
}

// checkParents verifies every declared parent is registered. The first
// offending type (in registration order) fails the build with all of its
// missing parents listed.
func (b *Builder) checkParents() error {
	for _, t := range b.registry.Types() {
		var missing []string
		for _, p := range t.Parents {
			if !b.registry.Has(p) {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			return &UnknownParentError{TypeName: t.Name, Missing: missing}
		}
	}
	return nil
}

// computeSinkMetrics fills SinkDepth, NearestSinkChildren and IsSink.
//
// Every node starts at sink depth 0. Nodes are then visited in order of
// decreasing source depth, ties broken by insertion order, and each visit
// recomputes the node's parents: a parent's sink depth is 1 plus the
// minimum over its children's current sink depths, and every child
// attaining that minimum is appended to the parent's nearest-sink list if
// not already present. Entries appended under an earlier, smaller minimum
// are never removed. The decreasing-depth order stands in for a
// topological order here; it is only exact while every child is strictly
// deeper than its parents, which depth overrides can break.
func (b *Builder) computeSinkMetrics(g *Graph) {
	names := g.AllNodes()

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	for _, name := range names {
		node := g.Nodes[name]
		node.SinkDepth = 0
		node.IsSink = g.OutDegree(name) == 0
	}

	visit := append([]string(nil), names...)
	sort.SliceStable(visit, func(i, j int) bool {
		di, dj := g.Nodes[visit[i]].SourceDepth, g.Nodes[visit[j]].SourceDepth
		if di != dj {
			return di > dj
		}
		return index[visit[i]] < index[visit[j]]
	})

	for _, name := range visit {
		for _, parent := range g.GetParents(name) {
			parentNode := g.Nodes[parent]
			children := g.GetChildren(parent)

			minSinkDepth := g.Nodes[children[0]].SinkDepth
			for _, child := range children[1:] {
				if d := g.Nodes[child].SinkDepth; d < minSinkDepth {
					minSinkDepth = d
				}
			}

			parentNode.SinkDepth = 1 + minSinkDepth

			for _, child := range children {
				if g.Nodes[child].SinkDepth != minSinkDepth {
					continue
				}
				already := false
				for _, existing := range parentNode.NearestSinkChildren {
					if existing == child {
						already = true
						break
					}
				}
				if !already {
					parentNode.NearestSinkChildren = append(parentNode.NearestSinkChildren, child)
				}
			}
		}
	}
}

// BuildFromRegistry is a convenience function that builds a graph directly
// from a registry.
func BuildFromRegistry(registry *TypeRegistry) (*Graph, error) {
	return NewBuilder(registry).Build()
}
