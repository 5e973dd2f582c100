package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gookit/color"

	"github.com/ontocat/ontocat/internal/accession"
	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/store"
	"github.com/ontocat/ontocat/internal/verifier"
)

// TypeTable renders the ontology, one row per type in registration order,
// or sorted by source depth with byDepth.
func (r *Renderer) TypeTable(g *ontology.Graph, byDepth bool) string {
	names := g.AllNodes()
	if byDepth {
		names = append([]string(nil), names...)
		sort.SliceStable(names, func(i, k int) bool {
			return g.GetNode(names[i]).SourceDepth < g.GetNode(names[k]).SourceDepth
		})
	}

	rows := make([][]Cell, 0, len(names))
	for _, name := range names {
		node := g.GetNode(name)
		rows = append(rows, []Cell{
			typeNameCell(node),
			Text(strings.Join(g.GetParents(name), ", ")),
			Text(fmt.Sprintf("%d", node.SourceDepth)),
			Text(fmt.Sprintf("%d", node.SinkDepth)),
			Text(strings.Join(node.NearestSinkChildren, ", ")),
			Text(nodeFlags(node)),
		})
	}
	return r.Table([]string{"TYPE", "PARENTS", "SOURCE DEPTH", "SINK DEPTH", "NEAREST SINKS", "FLAGS"}, rows)
}

func typeNameCell(node *ontology.Node) Cell {
	switch {
	case node.IsRoot:
		return Styled(node.Name, color.OpBold)
	case node.IsSink:
		return Styled(node.Name, color.FgGreen)
	default:
		return Text(node.Name)
	}
}

func nodeFlags(node *ontology.Node) string {
	var flags []string
	if node.IsRoot {
		flags = append(flags, "root")
	}
	if node.IsSink {
		flags = append(flags, "sink")
	}
	return strings.Join(flags, ", ")
}

// StoreTable renders store rows with their entry and verification state.
// Pending rows show yellow, verified rows green.
func (r *Renderer) StoreTable(rows []*store.Row) string {
	out := make([][]Cell, 0, len(rows))
	for _, row := range rows {
		out = append(out, []Cell{
			Text(row.Name),
			Text(row.Record.TypeName),
			Text(row.EntryTime),
			statusCell(row.VerificationStatus),
		})
	}
	return r.Table([]string{"NAME", "TYPE", "ENTERED", "VERIFIED"}, out)
}

func statusCell(status string) Cell {
	if status == store.StatusPending {
		return Styled(status, color.FgYellow)
	}
	return Styled(status, color.FgGreen)
}

// AccessionTable renders journal entries, newest first as given.
func (r *Renderer) AccessionTable(entries []accession.Entry) string {
	rows := make([][]Cell, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []Cell{
			Text(e.Timestamp.Format(time.DateTime)),
			Text(e.Actor),
			Text(e.Action),
			Text(strings.Join(e.Records, ", ")),
			Text(e.Ontology),
		})
	}
	return r.Table([]string{"TIME", "ACTOR", "ACTION", "RECORDS", "ONTOLOGY"}, rows)
}

// VerificationSummary renders verifier stats as a short block.
func (r *Renderer) VerificationSummary(stats *verifier.Stats) string {
	if stats == nil {
		return ""
	}
	if stats.Method == verifier.MethodSkip {
		return "Verification skipped\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Verification (%s): ", stats.Method)
	if stats.TablesFailed > 0 {
		b.WriteString(r.paint("FAILED", color.FgRed))
	} else {
		b.WriteString(r.paint("passed", color.FgGreen))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  tables checked: %d\n", stats.TablesVerified)
	fmt.Fprintf(&b, "  passed:         %d\n", stats.TablesPassed)
	fmt.Fprintf(&b, "  failed:         %d\n", stats.TablesFailed)
	fmt.Fprintf(&b, "  rows:           %d\n", stats.TotalRows)
	return b.String()
}

// LineageTree renders the rooted reference tree, children indented under
// their parent in reference order.
func (r *Renderer) LineageTree(root *informant.LineageNode) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	root.Walk(func(depth int, node *informant.LineageNode) {
		if depth == 0 {
			b.WriteString(r.paint(node.Name, color.OpBold))
		} else {
			b.WriteString(strings.Repeat("   ", depth-1))
			b.WriteString("└─ ")
			b.WriteString(node.Name)
		}
		b.WriteString("\n")
	})
	return b.String()
}
