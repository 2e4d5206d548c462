package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/conneroisu/lenskit/internal/logging"
	"github.com/conneroisu/lenskit/internal/style"
)

// ThemeWatcher reloads a theme file when it changes and hands the parsed
// theme to apply. Invalid files are logged and skipped; the previous theme
// stays in effect.
type ThemeWatcher struct {
	path   string
	fw     *FileWatcher
	apply  func(*style.Theme) error
	logger logging.Logger
}

// NewThemeWatcher watches path. The directory is watched rather than the
// file so editors that replace the file by rename are seen.
func NewThemeWatcher(path string, debounce time.Duration, apply func(*style.Theme) error, logger logging.Logger) (*ThemeWatcher, error) {
	abs, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	fw, err := NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(NameFilter(filepath.Base(abs)))
	fw.AddFilter(NoEditorTempFilter)
	if err := fw.AddPath(filepath.Dir(abs)); err != nil {
		_ = fw.Stop()
		return nil, err
	}

	tw := &ThemeWatcher{path: abs, fw: fw, apply: apply, logger: fw.logger}
	fw.AddHandler(tw.handle)
	return tw, nil
}

// Path returns the watched theme file.
func (tw *ThemeWatcher) Path() string { return tw.path }

// Run watches until ctx is done.
func (tw *ThemeWatcher) Run(ctx context.Context) error {
	tw.fw.Start(ctx)
	tw.logger.Info(ctx, "watching theme", "path", tw.path)
	<-ctx.Done()
	return tw.fw.Stop()
}

func (tw *ThemeWatcher) handle(events []ChangeEvent) error {
	for _, ev := range events {
		if ev.Type == EventTypeDeleted || ev.Type == EventTypeRenamed {
			tw.logger.Debug(context.Background(), "theme file went away", "path", ev.Path, "change", ev.Type.String())
			continue
		}
		return tw.Reload()
	}
	return nil
}

// Reload parses the theme file now and applies it.
func (tw *ThemeWatcher) Reload() error {
	perf := logging.StartOperation(tw.logger, "theme_reload")
	theme, err := style.LoadTheme(tw.path)
	if err != nil {
		perf.EndWithError(context.Background(), err)
		return err
	}
	if err := tw.apply(theme); err != nil {
		perf.EndWithError(context.Background(), err)
		return err
	}
	perf.End(context.Background(), "theme", theme.Name, "rules", len(theme.Rules))
	return nil
}
