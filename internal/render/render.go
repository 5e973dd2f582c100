// Package render formats command output: text tables with runewidth-aware
// column sizing, colored when the terminal takes it.
package render

import (
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// Renderer lays out tables and summaries. Styles are applied after width
// padding so color codes never affect alignment.
type Renderer struct {
	colored bool
}

// New returns a renderer. Color is applied only when asked for here and
// supported by the terminal, so piped output stays plain.
func New(colored bool) *Renderer {
	return &Renderer{colored: colored && color.IsSupportColor()}
}

// Cell is one table cell. A zero Style renders plain.
type Cell struct {
	Text  string
	Style color.Color
}

// Text returns an unstyled cell.
func Text(s string) Cell {
	return Cell{Text: s}
}

// Styled returns a cell rendered in the given color.
func Styled(s string, style color.Color) Cell {
	return Cell{Text: s, Style: style}
}

func (r *Renderer) paint(s string, style color.Color) string {
	if !r.colored || style == 0 {
		return s
	}
	return style.Render(s)
}

// Table renders headers and rows in columns sized to the widest cell,
// separated by two spaces, with the headers underlined. The last column
// is never padded, so lines carry no trailing spaces.
func (r *Renderer) Table(headers []string, rows [][]Cell) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if w := runewidth.StringWidth(cell.Text); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	headerCells := make([]Cell, len(headers))
	for i, h := range headers {
		headerCells[i] = Styled(h, color.OpBold)
	}
	r.writeRow(&b, headerCells, widths)

	underline := make([]Cell, len(headers))
	for i := range headers {
		underline[i] = Text(strings.Repeat("-", widths[i]))
	}
	r.writeRow(&b, underline, widths)

	for _, row := range rows {
		r.writeRow(&b, row, widths)
	}
	return b.String()
}

func (r *Renderer) writeRow(b *strings.Builder, row []Cell, widths []int) {
	for i, cell := range row {
		if i > 0 {
			b.WriteString("  ")
		}
		text := cell.Text
		if i < len(row)-1 && i < len(widths) {
			text = runewidth.FillRight(text, widths[i])
		}
		b.WriteString(r.paint(text, cell.Style))
	}
	b.WriteString("\n")
}
