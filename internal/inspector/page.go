package inspector

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/lenskit/internal/snapshot"
)

// RenderTree renders the snapshot as a nested HTML list. Each item carries
// the entity id in data-id so the page can send presses back.
func RenderTree(s *snapshot.Snapshot) (string, error) {
	var b strings.Builder
	if s == nil || s.Root == nil {
		return "", nil
	}
	list := element(atom.Ul, html.Attribute{Key: "class", Val: "lk-tree"})
	list.AppendChild(treeItem(s.Root))
	if err := html.Render(&b, list); err != nil {
		return "", fmt.Errorf("rendering tree: %w", err)
	}
	return b.String(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func span(class, content string) *html.Node {
	n := element(atom.Span, html.Attribute{Key: "class", Val: class})
	n.AppendChild(text(content))
	return n
}

func treeItem(n *snapshot.Node) *html.Node {
	classes := []string{"lk-node", "lk-" + n.Element}
	if n.Binding {
		classes = append(classes, "lk-binding")
	}
	if n.Inert {
		classes = append(classes, "lk-inert")
	}
	if n.Display == "none" {
		classes = append(classes, "lk-hidden")
	}
	li := element(atom.Li,
		html.Attribute{Key: "class", Val: strings.Join(classes, " ")},
		html.Attribute{Key: "data-id", Val: strconv.FormatUint(uint64(n.ID), 10)},
	)

	head := element(atom.Div, html.Attribute{Key: "class", Val: "lk-head"})
	head.AppendChild(span("lk-element", n.Element))
	head.AppendChild(span("lk-id", "#"+strconv.FormatUint(uint64(n.ID), 10)))
	for _, c := range n.Classes {
		head.AppendChild(span("lk-class", "."+c))
	}
	if n.Text != "" {
		t := span("lk-text", strconv.Quote(n.Text))
		if css := inlineStyle(n.Style); css != "" {
			t.Attr = append(t.Attr, html.Attribute{Key: "style", Val: css})
		}
		head.AppendChild(t)
	}
	if n.Checked {
		head.AppendChild(span("lk-badge", "checked"))
	}
	if n.Binding {
		head.AppendChild(span("lk-badge", fmt.Sprintf("builds=%d", n.Builds)))
	}
	for _, o := range n.Observes {
		head.AppendChild(span("lk-observes", o))
	}
	for _, m := range n.Models {
		head.AppendChild(span("lk-model", m))
	}
	li.AppendChild(head)

	if len(n.Children) > 0 {
		ul := element(atom.Ul)
		for _, c := range n.Children {
			ul.AppendChild(treeItem(c))
		}
		li.AppendChild(ul)
	}
	return li
}

func inlineStyle(props map[string]string) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(props)) {
		fmt.Fprintf(&b, "%s:%s;", k, props[k])
	}
	return b.String()
}

const pageStyle = `body{font-family:monospace;background:#1e1e1e;color:#d0d0d0;margin:1rem}
ul{list-style:none;padding-left:1.2rem;margin:0}
.lk-tree{padding-left:0}
.lk-head{padding:1px 0;cursor:pointer}
.lk-head:hover{background:#2a2a2a}
.lk-element{color:#569cd6}
.lk-id{color:#777;margin-left:.4rem}
.lk-class{color:#c586c0;margin-left:.2rem}
.lk-text{margin-left:.6rem}
.lk-badge,.lk-observes,.lk-model{font-size:.8em;margin-left:.5rem;padding:0 .3rem;border:1px solid #444;border-radius:3px}
.lk-model{color:#dcdcaa}
.lk-observes{color:#4ec9b0}
.lk-inert>.lk-head{opacity:.5}
.lk-hidden>.lk-head{text-decoration:line-through}
#status{color:#777;margin-bottom:.5rem}
#diagnostics{color:#f48771}`

const pageScript = `(function(){
var tree=document.getElementById("tree"),status=document.getElementById("status"),diag=document.getElementById("diagnostics");
var proto=location.protocol==="https:"?"wss:":"ws:";
var ws=new WebSocket(proto+"//"+location.host+"/ws?format=json");
ws.onmessage=function(e){var m=JSON.parse(e.data);
if(m.type==="snapshot"){tree.innerHTML=m.html;status.textContent="frame "+m.frame+" · "+m.snapshot.entities+" entities";
diag.textContent=(m.snapshot.diagnostics||[]).map(function(d){return d.severity+" "+d.code+": "+d.message}).join("\n");}
else if(m.type==="error"){status.textContent=m.message;}};
ws.onclose=function(){status.textContent="disconnected";};
tree.addEventListener("click",function(e){var li=e.target.closest("li[data-id]");if(!li)return;
e.stopPropagation();ws.send(JSON.stringify({type:"press",id:parseInt(li.dataset.id,10)}));});
})();`

// page is the inspector document around an initial tree.
func page(title string, s *snapshot.Snapshot) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		tree, err := RenderTree(s)
		if err != nil {
			return err
		}
		frame := uint64(0)
		if s != nil {
			frame = s.Frame
		}
		escaped := templ.EscapeString(title)
		_, err = fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>%s</style>
</head>
<body>
<h1>%s</h1>
<div id="status">frame %d</div>
<pre id="diagnostics"></pre>
<div id="tree">%s</div>
<script>%s</script>
</body>
</html>
`, escaped, pageStyle, escaped, frame, tree, pageScript)
		return err
	})
}
