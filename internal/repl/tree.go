package repl

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conneroisu/lenskit/internal/snapshot"
)

// PrintTree writes s as an indented outline, one node per line.
func PrintTree(w io.Writer, s *snapshot.Snapshot) {
	if s == nil || s.Root == nil {
		fmt.Fprintln(w, "(empty)")
		return
	}
	fmt.Fprintf(w, "frame %d  theme %s  entities %d\n", s.Frame, s.Theme, s.Entities)
	s.Walk(func(n *snapshot.Node, depth int) bool {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describe(n))
		return true
	})
	if len(s.Diagnostics) > 0 {
		fmt.Fprintf(w, "%d diagnostic(s), run 'diag' for details\n", len(s.Diagnostics))
	}
}

func describe(n *snapshot.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d", n.Element, n.ID)
	for _, c := range n.Classes {
		b.WriteString(" ." + c)
	}
	if n.Text != "" {
		fmt.Fprintf(&b, " %q", n.Text)
	}

	var flags []string
	if n.Pressable {
		flags = append(flags, "pressable")
	}
	if n.Checked {
		flags = append(flags, "checked")
	}
	if n.Binding {
		flags = append(flags, fmt.Sprintf("binding builds=%d", n.Builds))
	}
	if n.Inert {
		flags = append(flags, "inert")
	}
	if n.Display == "none" {
		flags = append(flags, "hidden")
	}
	if len(n.Models) > 0 {
		models := append([]string(nil), n.Models...)
		sort.Strings(models)
		flags = append(flags, "models="+strings.Join(models, ","))
	}
	if len(flags) > 0 {
		b.WriteString(" [" + strings.Join(flags, " ") + "]")
	}
	return b.String()
}
