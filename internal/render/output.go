package render

import (
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the terminal styles used to print rendered nodes
type Theme struct {
	Class     lipgloss.Style
	Name      lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultTheme returns the styles used by the CLI
func DefaultTheme() Theme {
	return Theme{
		Class: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		Name: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),
		Highlight: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true).
			Underline(true),
	}
}

func (t Theme) base(s Style) lipgloss.Style {
	if s == StyleClass {
		return t.Class
	}
	return t.Name
}

// ANSI renders nodes for a terminal. Highlighted runs are drawn with the
// highlight style layered over the node's base style.
func (t Theme) ANSI(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		base := t.base(n.Style)
		for _, r := range n.Runs {
			if r.Highlight {
				b.WriteString(t.Highlight.Inherit(base).Render(r.Text))
				continue
			}
			b.WriteString(base.Render(r.Text))
		}
	}
	return b.String()
}

// HTML renders nodes as one span per node, wrapping highlighted runs in mark
// elements. Text is escaped.
func HTML(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(`<span class="`)
		b.WriteString(html.EscapeString(string(n.Style)))
		b.WriteString(`">`)
		for _, r := range n.Runs {
			if r.Highlight {
				b.WriteString("<mark>")
				b.WriteString(html.EscapeString(r.Text))
				b.WriteString("</mark>")
				continue
			}
			b.WriteString(html.EscapeString(r.Text))
		}
		b.WriteString("</span>")
	}
	return b.String()
}
