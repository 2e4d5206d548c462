package repl

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/lenskit/internal/app"
	"github.com/conneroisu/lenskit/internal/demo"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/snapshot"
	"github.com/conneroisu/lenskit/internal/state"
)

func newSession(t *testing.T, name string) (*Session, *bytes.Buffer) {
	t.Helper()
	d, err := demo.Lookup(name)
	require.NoError(t, err)
	cx := state.New(nil)
	require.NoError(t, cx.Mount(d.Build))
	var out bytes.Buffer
	return New(app.New(cx), d, &out), &out
}

func pressableIDs(s *snapshot.Snapshot) []uint32 {
	var ids []uint32
	s.Walk(func(n *snapshot.Node, _ int) bool {
		if n.Pressable {
			ids = append(ids, n.ID)
		}
		return true
	})
	return ids
}

func TestDemoCommands(t *testing.T) {
	s, out := newSession(t, "counter")

	assert.False(t, s.Exec("inc"))
	assert.False(t, s.Exec("increment"))
	assert.Contains(t, out.String(), `"Count: 2"`)

	out.Reset()
	assert.False(t, s.Exec("dec"))
	assert.Contains(t, out.String(), `"Count: 1"`)

	out.Reset()
	assert.False(t, s.Exec("bogus"))
	assert.Contains(t, out.String(), "Unknown command: bogus")

	assert.False(t, s.Exec("   "))
}

func TestKeyAndPress(t *testing.T) {
	s, out := newSession(t, "counter")

	s.Exec("key +")
	assert.Contains(t, out.String(), `"Count: 1"`)

	out.Reset()
	s.Exec("key nope")
	assert.Contains(t, out.String(), "Unknown key: nope")

	ids := pressableIDs(s.app.Snapshot())
	require.Len(t, ids, 2)

	out.Reset()
	s.Exec("press " + strconv.FormatUint(uint64(ids[1]), 10))
	assert.Contains(t, out.String(), `"Count: 0"`)

	out.Reset()
	s.Exec("press x")
	assert.Contains(t, out.String(), "Invalid id: x")

	out.Reset()
	s.Exec("press")
	assert.Contains(t, out.String(), "Usage: press <id>")
}

func TestNumberInputSet(t *testing.T) {
	s, out := newSession(t, "number_input")
	s.Exec("set 42")
	assert.Contains(t, out.String(), `"Number: 42"`)

	out.Reset()
	s.Exec("set abc")
	assert.Contains(t, out.String(), `"Number: 42"`)
}

func TestThemeCommand(t *testing.T) {
	s, out := newSession(t, "counter")
	path := filepath.Join(t.TempDir(), "dark.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"dark\"\n"), 0o644))

	s.Exec("theme " + path)
	assert.Contains(t, out.String(), "theme dark")
	assert.Equal(t, "dark", s.app.Snapshot().Theme)

	out.Reset()
	s.Exec("theme " + filepath.Join(t.TempDir(), "missing.yml"))
	assert.Contains(t, out.String(), "Error:")
	assert.Contains(t, out.String(), "Suggestions:")
}

func TestSnapshotCommand(t *testing.T) {
	s, out := newSession(t, "counter")

	s.Exec("snapshot")
	assert.Contains(t, out.String(), `"element":"window"`)

	out.Reset()
	s.Exec("snapshot cbor")
	assert.Contains(t, out.String(), "bytes\n")

	out.Reset()
	s.Exec("snapshot xml")
	assert.Contains(t, out.String(), "Unknown format: xml")
}

func TestDiag(t *testing.T) {
	s, out := newSession(t, "counter")
	s.Exec("diag")
	assert.Contains(t, out.String(), "No diagnostics")

	s.app.Context().Diagnostics().AddError(lkerrors.NewMissingModelError("*demo.Counter", "count", 3))
	s.Exec("step")
	assert.Contains(t, out.String(), "1 diagnostic(s)")

	out.Reset()
	s.Exec("diag")
	assert.Contains(t, out.String(), "ERR_MISSING_MODEL")

	out.Reset()
	s.Exec("diag err_builder_panic")
	assert.Contains(t, out.String(), "No diagnostics with code ERR_BUILDER_PANIC")

	out.Reset()
	s.Exec("diag ERR_MISSING_MODEL")
	assert.Contains(t, out.String(), "no model *demo.Counter")

	out.Reset()
	s.Exec("diag clear")
	assert.Contains(t, out.String(), "Diagnostics cleared")
	assert.NotContains(t, out.String(), "diagnostic(s)")
	assert.False(t, s.app.Context().Diagnostics().HasErrors())
}

func TestHelpAndQuit(t *testing.T) {
	s, out := newSession(t, "static_list")
	assert.False(t, s.Exec("help"))
	assert.Contains(t, out.String(), "static_list commands:")
	assert.Contains(t, out.String(), "down j k up")

	assert.True(t, s.Exec("quit"))
	assert.True(t, s.Exec("EXIT"))
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	PrintTree(&buf, nil)
	assert.Equal(t, "(empty)\n", buf.String())

	buf.Reset()
	PrintTree(&buf, &snapshot.Snapshot{
		Frame: 3, Theme: "default", Entities: 2,
		Root: &snapshot.Node{ID: 0, Element: "window", Models: []string{"b", "a"}, Children: []*snapshot.Node{
			{ID: 1, Element: "label", Text: "hi", Classes: []string{"list_item"}, Checked: true},
		}},
		Diagnostics: []snapshot.Diagnostic{{Code: "ERR_MISSING_MODEL"}},
	})
	assert.Equal(t, "frame 3  theme default  entities 2\n"+
		"window #0 [models=a,b]\n"+
		"  label #1 .list_item \"hi\" [checked]\n"+
		"1 diagnostic(s), run 'diag' for details\n", buf.String())
}
