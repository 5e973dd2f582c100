package informant

// LineageNode is one record in a rooted reference tree.
type LineageNode struct {
	Name     string
	Children []*LineageNode
}

// Walk visits the tree depth-first, a parent before its children, with the
// depth of each node relative to the root.
func (n *LineageNode) Walk(fn func(depth int, node *LineageNode)) {
	if n == nil {
		return
	}
	var visit func(depth int, node *LineageNode)
	visit = func(depth int, node *LineageNode) {
		fn(depth, node)
		for _, c := range node.Children {
			visit(depth+1, c)
		}
	}
	visit(0, n)
}

// Lineage builds the rooted reference tree for rec: one child per
// resolvable reference, in reference order, expanded recursively. A name
// already on the path from the root appears as a leaf and is not expanded
// again, so cycles terminate. Dangling references are skipped.
func Lineage(rec *Record, res Resolver) *LineageNode {
	if rec == nil {
		return nil
	}
	if res == nil {
		return &LineageNode{Name: rec.Name}
	}

	onPath := make(map[string]bool)
	var build func(r *Record) *LineageNode
	build = func(r *Record) *LineageNode {
		node := &LineageNode{Name: r.Name}
		onPath[r.Name] = true
		for _, name := range r.References {
			if onPath[name] {
				node.Children = append(node.Children, &LineageNode{Name: name})
				continue
			}
			child, ok := res.Resolve(name)
			if !ok || child == nil {
				continue
			}
			node.Children = append(node.Children, build(child))
		}
		onPath[r.Name] = false
		return node
	}
	return build(rec)
}
