package ontology

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewBuilder(t *testing.T) {
	reg := NewTypeRegistry("Informant")

	builder := NewBuilder(reg)
	if builder == nil {
		t.Fatal("NewBuilder returned nil")
	}
	if builder.registry != reg {
		t.Error("Builder registry field not set correctly")
	}
}

func TestBuild_NilRegistry(t *testing.T) {
	builder := NewBuilder(nil)
	if _, err := builder.Build(); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

func TestBuild_RootOnly(t *testing.T) {
	reg := NewTypeRegistry("Informant")

	g, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if g.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", g.NodeCount())
	}

	root := g.GetNode("Informant")
	if root == nil {
		t.Fatal("root node is nil")
	}
	if !root.IsRoot {
		t.Error("root node should have IsRoot set")
	}
	if !root.IsSink {
		t.Error("a childless root is a sink")
	}
	if root.SourceDepth != 0 {
		t.Errorf("expected root source depth 0, got %d", root.SourceDepth)
	}
	if root.SinkDepth != 0 {
		t.Errorf("expected root sink depth 0, got %d", root.SinkDepth)
	}
}

func TestBuild_DepthScenario(t *testing.T) {
	// Root -> A -> B and Root -> C. B and C are sinks. A reaches its
	// nearest sink through B at distance 1; Root reaches C at distance 1.
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "A"})
	mustRegister(t, reg, &Type{Name: "B", Parents: []string{"A"}})
	mustRegister(t, reg, &Type{Name: "C"})

	g, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	tests := []struct {
		name        string
		sourceDepth int
		sinkDepth   int
		isSink      bool
		nearest     []string
	}{
		{"Root", 0, 1, false, []string{"C"}},
		{"A", 1, 1, false, []string{"B"}},
		{"B", 2, 0, true, nil},
		{"C", 1, 0, true, nil},
	}

	for _, tt := range tests {
		node := g.GetNode(tt.name)
		if node == nil {
			t.Fatalf("node %q missing", tt.name)
		}
		if node.SourceDepth != tt.sourceDepth {
			t.Errorf("%s: source depth = %d, expected %d", tt.name, node.SourceDepth, tt.sourceDepth)
		}
		if node.SinkDepth != tt.sinkDepth {
			t.Errorf("%s: sink depth = %d, expected %d", tt.name, node.SinkDepth, tt.sinkDepth)
		}
		if node.IsSink != tt.isSink {
			t.Errorf("%s: is_sink = %v, expected %v", tt.name, node.IsSink, tt.isSink)
		}
		if !reflect.DeepEqual(node.NearestSinkChildren, tt.nearest) {
			t.Errorf("%s: nearest sink children = %v, expected %v", tt.name, node.NearestSinkChildren, tt.nearest)
		}
	}
}

func TestBuild_Diamond(t *testing.T) {
	// Root -> A -> D, Root -> B -> D. D is the only sink; both A and B
	// reach it at distance 1, Root at distance 2 through either.
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "A"})
	mustRegister(t, reg, &Type{Name: "B"})
	mustRegister(t, reg, &Type{Name: "D", Parents: []string{"A", "B"}})

	g, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	d := g.GetNode("D")
	if d.SourceDepth != 2 {
		t.Errorf("D source depth = %d, expected 2", d.SourceDepth)
	}
	if !d.IsSink || d.SinkDepth != 0 {
		t.Errorf("D should be a sink at depth 0, got is_sink=%v depth=%d", d.IsSink, d.SinkDepth)
	}

	for _, name := range []string{"A", "B"} {
		node := g.GetNode(name)
		if node.SinkDepth != 1 {
			t.Errorf("%s sink depth = %d, expected 1", name, node.SinkDepth)
		}
		if !reflect.DeepEqual(node.NearestSinkChildren, []string{"D"}) {
			t.Errorf("%s nearest = %v, expected [D]", name, node.NearestSinkChildren)
		}
	}

	root := g.GetNode("Root")
	if root.SinkDepth != 2 {
		t.Errorf("Root sink depth = %d, expected 2", root.SinkDepth)
	}
	if !reflect.DeepEqual(root.NearestSinkChildren, []string{"A", "B"}) {
		t.Errorf("Root nearest = %v, expected [A B]", root.NearestSinkChildren)
	}
}

func TestBuild_NearestSinkKeepsEarlierEntries(t *testing.T) {
	// P has children D and C. C is a sink visited before D's own sink
	// depth settles, so D enters P's nearest-sink list under the initial
	// minimum and stays there after later passes raise D's depth.
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "P"})
	mustRegister(t, reg, &Type{Name: "D", Parents: []string{"P"}})
	mustRegister(t, reg, &Type{Name: "E1"})
	mustRegister(t, reg, &Type{Name: "E2", Parents: []string{"E1"}})
	mustRegister(t, reg, &Type{Name: "C", Parents: []string{"P", "E2"}})
	mustRegister(t, reg, &Type{Name: "F", Parents: []string{"D", "E2"}})

	g, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	p := g.GetNode("P")
	if p.SinkDepth != 1 {
		t.Errorf("P sink depth = %d, expected 1", p.SinkDepth)
	}
	// D was appended while still at its initial depth and is kept even
	// though its settled depth no longer attains the minimum.
	if !reflect.DeepEqual(p.NearestSinkChildren, []string{"D", "C"}) {
		t.Errorf("P nearest = %v, expected [D C]", p.NearestSinkChildren)
	}

	d := g.GetNode("D")
	if d.SinkDepth != 1 {
		t.Errorf("D sink depth = %d, expected 1", d.SinkDepth)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	build := func() *Graph {
		reg := NewTypeRegistry("Root")
		mustRegister(t, reg, &Type{Name: "A"})
		mustRegister(t, reg, &Type{Name: "B", Parents: []string{"A"}})
		mustRegister(t, reg, &Type{Name: "C"})
		mustRegister(t, reg, &Type{Name: "D", Parents: []string{"A", "C"}})

		g, err := BuildFromRegistry(reg)
		if err != nil {
			t.Fatalf("Build() failed: %v", err)
		}
		return g
	}

	first := build()
	second := build()

	if !reflect.DeepEqual(first.AllNodes(), second.AllNodes()) {
		t.Errorf("node order differs between builds: %v vs %v", first.AllNodes(), second.AllNodes())
	}
	for _, name := range first.AllNodes() {
		a, b := first.GetNode(name), second.GetNode(name)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("node %q differs between builds: %+v vs %+v", name, a, b)
		}
	}
}

func TestBuild_RebuildSameRegistry(t *testing.T) {
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "A"})
	mustRegister(t, reg, &Type{Name: "B", Parents: []string{"A"}})

	first, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("first Build() failed: %v", err)
	}
	second, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("second Build() failed: %v", err)
	}

	for _, name := range first.AllNodes() {
		if !reflect.DeepEqual(first.GetNode(name), second.GetNode(name)) {
			t.Errorf("node %q changed on rebuild", name)
		}
	}
}

func TestBuild_UnknownParent(t *testing.T) {
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "A", Parents: []string{"Ghost", "Phantom"}})

	_, err := BuildFromRegistry(reg)
	if err == nil {
		t.Fatal("expected error for unknown parents")
	}

	var upErr *UnknownParentError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UnknownParentError, got %T: %v", err, err)
	}
	if upErr.TypeName != "A" {
		t.Errorf("expected offending type 'A', got %q", upErr.TypeName)
	}
	if !reflect.DeepEqual(upErr.Missing, []string{"Ghost", "Phantom"}) {
		t.Errorf("expected missing parents [Ghost Phantom], got %v", upErr.Missing)
	}
}

func TestBuild_ParentCycle(t *testing.T) {
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "A", Parents: []string{"B"}})
	mustRegister(t, reg, &Type{Name: "B", Parents: []string{"A"}})

	_, err := BuildFromRegistry(reg)
	if err == nil {
		t.Fatal("expected error for cyclic parents")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Error("expected errors.Is(err, ErrCycleDetected) to hold")
	}
	if len(cycleErr.Info.CycleParticipants) != 2 {
		t.Errorf("expected 2 cycle participants, got %v", cycleErr.Info.CycleParticipants)
	}
}

func TestBuild_SelfParent(t *testing.T) {
	reg := NewTypeRegistry("Root")
	mustRegister(t, reg, &Type{Name: "Ouroboros", Parents: []string{"Ouroboros"}})

	_, err := BuildFromRegistry(reg)
	if err == nil {
		t.Fatal("expected error for self-parent")
	}
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected cycle error, got %v", err)
	}
}

func TestBuild_WideOntology(t *testing.T) {
	// A realistic shape: files and directories under a root, with a few
	// specialized leaves.
	reg := NewTypeRegistry("Informant")
	mustRegister(t, reg, &Type{Name: "FileInformant"})
	mustRegister(t, reg, &Type{Name: "DirectoryInformant"})
	mustRegister(t, reg, &Type{Name: "BedFile", Parents: []string{"FileInformant"}})
	mustRegister(t, reg, &Type{Name: "ContactMap", Parents: []string{"FileInformant"}})
	mustRegister(t, reg, &Type{Name: "FileSet", Parents: []string{"DirectoryInformant"}})

	g, err := BuildFromRegistry(reg)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if g.NodeCount() != 6 {
		t.Errorf("expected 6 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 5 {
		t.Errorf("expected 5 edges, got %d", g.EdgeCount())
	}

	sinks := g.Sinks()
	expectedSinks := []string{"BedFile", "ContactMap", "FileSet"}
	if !reflect.DeepEqual(sinks, expectedSinks) {
		t.Errorf("sinks = %v, expected %v", sinks, expectedSinks)
	}

	root := g.GetNode("Informant")
	if root.SinkDepth != 2 {
		t.Errorf("root sink depth = %d, expected 2", root.SinkDepth)
	}
	if !reflect.DeepEqual(root.NearestSinkChildren, []string{"FileInformant", "DirectoryInformant"}) {
		t.Errorf("root nearest = %v", root.NearestSinkChildren)
	}
}
