package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lkerrors "github.com/conneroisu/lenskit/internal/errors"
	"github.com/conneroisu/lenskit/internal/style"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestFilters(t *testing.T) {
	testCases := []struct {
		name   string
		filter FileFilter
		path   string
		want   bool
	}{
		{"name match", NameFilter("theme.yml"), "/a/b/theme.yml", true},
		{"name mismatch", NameFilter("theme.yml"), "/a/b/other.yml", false},
		{"extension", ExtensionFilter(".yml", ".toml"), "x/theme.TOML", true},
		{"extension mismatch", ExtensionFilter(".yml"), "x/theme.json", false},
		{"plain file", NoEditorTempFilter, "theme.yml", true},
		{"vim swap", NoEditorTempFilter, ".theme.yml.swp", false},
		{"emacs lock", NoEditorTempFilter, ".#theme.yml", false},
		{"backup", NoEditorTempFilter, "theme.yml~", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter(tc.path))
		})
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.add(ChangeEvent{Type: EventTypeCreated, Path: "a"})
	d.add(ChangeEvent{Type: EventTypeModified, Path: "b"})
	d.add(ChangeEvent{Type: EventTypeModified, Path: "a"})

	select {
	case batch := <-d.output:
		require.Len(t, batch, 2)
		assert.Equal(t, "a", batch[0].Path)
		assert.Equal(t, EventTypeModified, batch[0].Type, "latest event per path wins")
		assert.Equal(t, "b", batch[1].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch")
	}
}

func TestAddPathRejectsEmpty(t *testing.T) {
	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	err = fw.AddPath("  ")
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeConfigInvalid, lkerrors.CodeOf(err))

	dir := t.TempDir()
	require.NoError(t, fw.AddPath(dir))
	abs, _ := filepath.Abs(dir)
	assert.Equal(t, []string{abs}, fw.WatchList())
	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}

func themeFile(name string) []byte {
	return []byte("name: " + name + "\nrules:\n  - selector: label\n    properties:\n      color: \"#123456\"\n")
}

func TestThemeWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.yml")
	require.NoError(t, os.WriteFile(path, themeFile("first"), 0o644))

	var mu sync.Mutex
	var applied []string
	tw, err := NewThemeWatcher(path, 10*time.Millisecond, func(th *style.Theme) error {
		mu.Lock()
		defer mu.Unlock()
		applied = append(applied, th.Name)
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, tw.Reload())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tw.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, themeFile("second"), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(applied) > 1 && applied[len(applied)-1] == "second"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "first", applied[0])
}

func TestThemeWatcherRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nrules:\n  - selector: \"a b\"\n"), 0o644))

	called := false
	tw, err := NewThemeWatcher(path, 10*time.Millisecond, func(*style.Theme) error {
		called = true
		return nil
	}, nil)
	require.NoError(t, err)
	defer tw.fw.Stop()

	err = tw.Reload()
	require.Error(t, err)
	assert.Equal(t, lkerrors.ErrCodeThemeInvalid, lkerrors.CodeOf(err))
	assert.False(t, called)
}
