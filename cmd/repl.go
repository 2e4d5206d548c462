package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/lenskit/internal/demo"
	"github.com/conneroisu/lenskit/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl [demo]",
	Short: "Drive a demo from an interactive prompt",
	Long: `Start a prompt that sends messages to a demo and prints the tree after
every change.

Besides the built-in commands (tree, press, key, theme, diag, snapshot)
each demo understands its own verbs:
  counter       inc, dec
  static_list   next, prev, select <n>
  number_input  set <n>

Examples:
  lenskit repl
  lenskit repl number_input
  lenskit repl counter --inspector`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: demo.Names(),
	RunE:      runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
	replCmd.Flags().Bool("inspector", false, "Also serve the browser inspector")
}

func runRepl(cmd *cobra.Command, args []string) error {
	serve, _ := cmd.Flags().GetBool("inspector")

	h, err := newHost(args, nil)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if err := h.startServices(ctx, g, serve); err != nil {
		return err
	}
	g.Go(func() error {
		defer cancel()
		return repl.New(h.app, h.demo, cmd.OutOrStdout()).Run(ctx)
	})
	return wait(g)
}
