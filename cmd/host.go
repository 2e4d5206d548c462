package cmd

import (
	"context"
	"io"

	"github.com/conneroisu/lenskit/internal/app"
	"github.com/conneroisu/lenskit/internal/config"
	"github.com/conneroisu/lenskit/internal/demo"
	"github.com/conneroisu/lenskit/internal/inspector"
	"github.com/conneroisu/lenskit/internal/logging"
	"github.com/conneroisu/lenskit/internal/state"
	"github.com/conneroisu/lenskit/internal/watcher"
)

// host is a mounted demo with the settings it was built from.
type host struct {
	cfg    *config.Config
	logger logging.Logger
	demo   demo.Demo
	app    *app.App

	logFile io.Closer
}

// newHost loads the configuration and mounts the demo named by args, or the
// configured one. A non-nil logOut replaces the log destination.
func newHost(args []string, logOut io.Writer) (*host, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return mount(cfg, args, logOut)
}

func mount(cfg *config.Config, args []string, logOut io.Writer) (*host, error) {
	name := cfg.App.Demo
	if len(args) > 0 {
		name = args[0]
	}
	d, err := demo.Lookup(name)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := cfg.Logger(logOut)
	if err != nil {
		return nil, err
	}
	h := &host{cfg: cfg, logger: logger, demo: d, logFile: logFile}

	theme, err := cfg.LoadTheme()
	if err != nil {
		h.close()
		return nil, err
	}
	loc, err := cfg.Localizer()
	if err != nil {
		h.close()
		return nil, err
	}

	cx := state.New(theme, state.WithLogger(logger), state.WithLocalizer(loc))
	if err := cx.Mount(d.Build); err != nil {
		h.close()
		return nil, err
	}

	a := app.New(cx,
		app.WithLogger(logger),
		app.WithTickInterval(cfg.App.TickInterval),
		app.WithInboxSize(cfg.App.InboxSize),
	)
	logger.Debug(context.Background(), "demo mounted", "demo", d.Name, "theme", theme.Name)
	h.app = a
	return h, nil
}

// close releases the log file, if any.
func (h *host) close() {
	if h.logFile != nil {
		_ = h.logFile.Close()
	}
}

// themeWatcher returns a watcher posting reloads to the app, or nil when
// watching is off.
func (h *host) themeWatcher() (*watcher.ThemeWatcher, error) {
	if !h.cfg.Theme.Watch || h.cfg.Theme.Path == "" {
		return nil, nil
	}
	return watcher.NewThemeWatcher(h.cfg.Theme.Path, h.cfg.Theme.Debounce, h.app.ReloadTheme, h.logger)
}

func (h *host) inspectorConfig() inspector.Config {
	return inspector.Config{
		Host:           h.cfg.Inspector.Host,
		Port:           h.cfg.Inspector.Port,
		AllowedOrigins: h.cfg.Inspector.AllowedOrigins,
		Format:         h.cfg.Inspector.Format,
		Title:          "lenskit: " + h.demo.Name,
	}
}
