// Package terminal renders snapshots with lipgloss and hosts an app as a
// bubbletea program.
package terminal

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/conneroisu/lenskit/internal/snapshot"
)

// cellPixels is how many pixels one terminal column stands for.
const cellPixels = 8

// Renderer draws snapshot nodes as terminal blocks.
type Renderer struct {
	// Focus is the node drawn highlighted.
	Focus uint32
	// Draft replaces the text of the focused textbox while it is edited.
	Draft    *string
	HasFocus bool
}

// Render draws the whole tree.
func (r Renderer) Render(s *snapshot.Snapshot) string {
	if s == nil || s.Root == nil {
		return ""
	}
	return r.node(s.Root)
}

func (r Renderer) node(n *snapshot.Node) string {
	if n.Display == "none" {
		return ""
	}

	var out string
	switch n.Element {
	case "hstack":
		out = lipgloss.JoinHorizontal(lipgloss.Top, r.children(n, " ")...)
	case "label":
		text := n.Text
		if n.Checked {
			text = "● " + text
		}
		out = r.style(n).Render(text)
	case "button":
		inner := lipgloss.JoinVertical(lipgloss.Left, r.children(n, "")...)
		out = r.style(n).Border(lipgloss.RoundedBorder()).Padding(0, 1).Render(inner)
	case "textbox":
		text := n.Text
		if r.focused(n) && r.Draft != nil {
			text = *r.Draft + "▏"
		}
		out = r.style(n).Underline(true).Render(text)
	default:
		out = lipgloss.JoinVertical(lipgloss.Left, r.children(n, "")...)
	}

	if n.Visibility == "hidden" {
		return blank(out)
	}
	return out
}

func (r Renderer) children(n *snapshot.Node, gap string) []string {
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		s := r.node(c)
		if s == "" {
			continue
		}
		if gap != "" && len(parts) > 0 {
			parts = append(parts, gap)
		}
		parts = append(parts, s)
	}
	return parts
}

func (r Renderer) focused(n *snapshot.Node) bool {
	return r.HasFocus && n.ID == r.Focus
}

// style maps resolved theme properties and layout attributes onto a
// lipgloss style.
func (r Renderer) style(n *snapshot.Node) lipgloss.Style {
	st := lipgloss.NewStyle()
	if c, ok := n.Style["color"]; ok {
		st = st.Foreground(lipgloss.Color(c))
	}
	if c, ok := n.Style["background-color"]; ok {
		st = st.Background(lipgloss.Color(c))
	}
	if p, ok := n.Style["padding"]; ok && p != "0" && p != "0px" {
		st = st.PaddingLeft(1).PaddingRight(1)
	}
	if n.Style["font-weight"] == "bold" {
		st = st.Bold(true)
	}
	if w, ok := cells(n.Width); ok {
		st = st.Width(w)
	}
	if h, ok := cells(n.Height); ok && n.Element != "label" {
		st = st.Height(max(1, h/2))
	}
	if r.focused(n) {
		st = st.Reverse(true)
	}
	return st
}

// cells converts a "Npx" size into columns.
func cells(units string) (int, bool) {
	px, ok := strings.CutSuffix(units, "px")
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(px, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return max(1, int(f)/cellPixels), true
}

// blank keeps the size of s but prints nothing.
func blank(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Repeat(" ", lipgloss.Width(l))
	}
	return strings.Join(lines, "\n")
}
