package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/lenskit/internal/demo"
	"github.com/conneroisu/lenskit/internal/inspector"
	"github.com/conneroisu/lenskit/internal/locale"
	"github.com/conneroisu/lenskit/internal/repl"
	"github.com/conneroisu/lenskit/internal/terminal"
)

var runCmd = &cobra.Command{
	Use:     "run [demo]",
	Aliases: []string{"r"},
	Short:   "Run a demo application",
	Long: `Run a demo application until interrupted.

Without --tui the loop runs headless and the final tree is printed on exit.
--events stops after that many processed batches, which makes headless runs
usable in scripts.

Examples:
  lenskit run                          # Run the configured demo
  lenskit run counter --tui            # Terminal UI, keys: + - up down
  lenskit run static_list --events 10  # Ten frames, then print the tree
  lenskit run --theme dark.yml --watch # Reload the theme on save`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: demo.Names(),
	RunE:      runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("tui", false, "Run the full-screen terminal UI (logs are discarded)")
	runCmd.Flags().Int("events", 0, "Stop after n processed batches (0 runs until interrupted)")
	runCmd.Flags().Bool("inspector", false, "Also serve the browser inspector")
	runCmd.Flags().String("theme", "", "Theme file (.yml or .toml)")
	runCmd.Flags().Bool("watch", false, "Reload the theme file when it changes")
	runCmd.Flags().Duration("tick", 0, "Tick interval of the app loop")

	_ = viper.BindPFlag("theme.path", runCmd.Flags().Lookup("theme"))
	_ = viper.BindPFlag("theme.watch", runCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("app.tick_interval", runCmd.Flags().Lookup("tick"))
}

func runRun(cmd *cobra.Command, args []string) error {
	tui, _ := cmd.Flags().GetBool("tui")
	events, _ := cmd.Flags().GetInt("events")
	serve, _ := cmd.Flags().GetBool("inspector")
	if events < 0 {
		return fmt.Errorf("--events must not be negative")
	}

	var logOut io.Writer
	if tui {
		logOut = io.Discard
	}
	h, err := newHost(args, logOut)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if err := h.startServices(ctx, g, serve); err != nil {
		return err
	}

	if tui {
		g.Go(func() error {
			defer cancel()
			m := terminal.New(h.app, locale.Title(h.demo.Name), h.demo.Keys, h.cfg.App.TickInterval)
			return terminal.Run(ctx, m)
		})
	} else {
		g.Go(func() error { return h.app.Run(ctx) })
		if events > 0 {
			g.Go(func() error { return stopAfter(ctx, cancel, h, uint64(events)) })
		}
	}

	err = wait(g)
	if !tui {
		repl.PrintTree(cmd.OutOrStdout(), h.app.Snapshot())
	}
	return err
}

// startServices runs the theme watcher and, when serve is set, the
// inspector in g.
func (h *host) startServices(ctx context.Context, g *errgroup.Group, serve bool) error {
	tw, err := h.themeWatcher()
	if err != nil {
		return err
	}
	if tw != nil {
		g.Go(func() error { return tw.Run(ctx) })
	}
	if serve {
		srv := inspector.New(h.inspectorConfig(), h.app, h.logger)
		g.Go(func() error { return srv.Start(ctx) })
	}
	return nil
}

// stopAfter cancels the run once n frames have been published.
func stopAfter(ctx context.Context, cancel context.CancelFunc, h *host, n uint64) error {
	updates, unsubscribe := h.app.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-updates:
			if snap.Frame >= n {
				cancel()
				return nil
			}
		}
	}
}

// wait treats cancellation as a clean stop.
func wait(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
