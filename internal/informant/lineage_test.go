package informant

import (
	"reflect"
	"testing"
)

// childNames lists the immediate children of a node.
func childNames(n *LineageNode) []string {
	var out []string
	for _, c := range n.Children {
		out = append(out, c.Name)
	}
	return out
}

func TestLineage_Tree(t *testing.T) {
	x := mustRecord(t, "X", "Y")
	y := mustRecord(t, "Y")
	r := mustRecord(t, "R", "X", "Y")

	tree := Lineage(r, mapResolver{"X": x, "Y": y})
	if tree == nil || tree.Name != "R" {
		t.Fatalf("unexpected root: %+v", tree)
	}
	if got := childNames(tree); !reflect.DeepEqual(got, []string{"X", "Y"}) {
		t.Fatalf("children of R = %v", got)
	}
	if got := childNames(tree.Children[0]); !reflect.DeepEqual(got, []string{"Y"}) {
		t.Errorf("children of X = %v", got)
	}
	if len(tree.Children[1].Children) != 0 {
		t.Errorf("Y should be a leaf, got %v", childNames(tree.Children[1]))
	}
}

func TestLineage_DanglingSkipped(t *testing.T) {
	r := mustRecord(t, "R", "Ghost")

	tree := Lineage(r, mapResolver{})
	if len(tree.Children) != 0 {
		t.Errorf("dangling reference should not appear, got %v", childNames(tree))
	}
}

func TestLineage_CycleBecomesLeaf(t *testing.T) {
	x := mustRecord(t, "X", "R")
	r := mustRecord(t, "R", "X")

	tree := Lineage(r, mapResolver{"R": r, "X": x})
	if got := childNames(tree); !reflect.DeepEqual(got, []string{"X"}) {
		t.Fatalf("children of R = %v", got)
	}
	back := tree.Children[0]
	if got := childNames(back); !reflect.DeepEqual(got, []string{"R"}) {
		t.Fatalf("children of X = %v", got)
	}
	if len(back.Children[0].Children) != 0 {
		t.Error("the back-edge node must not be expanded")
	}
}

func TestLineage_SharedSubtreeRepeats(t *testing.T) {
	// A diamond is a tree with the shared node shown under both branches.
	a := mustRecord(t, "A", "C")
	b := mustRecord(t, "B", "C")
	c := mustRecord(t, "C")
	r := mustRecord(t, "R", "A", "B")

	tree := Lineage(r, mapResolver{"A": a, "B": b, "C": c})
	if got := childNames(tree.Children[0]); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("children of A = %v", got)
	}
	if got := childNames(tree.Children[1]); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("children of B = %v", got)
	}
}

func TestLineage_NilInputs(t *testing.T) {
	if Lineage(nil, mapResolver{}) != nil {
		t.Error("nil record should yield a nil tree")
	}

	r := mustRecord(t, "R", "X")
	tree := Lineage(r, nil)
	if tree == nil || tree.Name != "R" || len(tree.Children) != 0 {
		t.Errorf("nil resolver should yield a bare root, got %+v", tree)
	}
}

func TestLineageNode_Walk(t *testing.T) {
	x := mustRecord(t, "X", "Y")
	y := mustRecord(t, "Y")
	r := mustRecord(t, "R", "X", "Y")

	tree := Lineage(r, mapResolver{"X": x, "Y": y})

	type visit struct {
		depth int
		name  string
	}
	var got []visit
	tree.Walk(func(depth int, node *LineageNode) {
		got = append(got, visit{depth, node.Name})
	})

	want := []visit{{0, "R"}, {1, "X"}, {2, "Y"}, {1, "Y"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("walk order = %v, want %v", got, want)
	}

	var nilNode *LineageNode
	nilNode.Walk(func(int, *LineageNode) {
		t.Error("walk of a nil node must not visit")
	})
}
