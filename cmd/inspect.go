package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/lenskit/internal/demo"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect [demo]",
	Aliases: []string{"i"},
	Short:   "Serve a live view of a demo's entity tree",
	Long: `Run a demo headless and serve its tree to browsers.

The page updates over a websocket on every frame. Clicking a pressable node
presses it. Snapshots are also available as JSON or CBOR:
  GET  /api/snapshot[?format=cbor]
  POST /api/press?id=<entity>
  GET  /health

Examples:
  lenskit inspect
  lenskit inspect static_list --port 9000
  lenskit inspect --format cbor`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: demo.Names(),
	RunE:      runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().IntP("port", "p", 7777, "Port to serve on")
	inspectCmd.Flags().String("host", "localhost", "Host to bind to")
	inspectCmd.Flags().String("format", "json", "Default websocket encoding (json, cbor)")

	_ = viper.BindPFlag("inspector.port", inspectCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("inspector.host", inspectCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("inspector.format", inspectCmd.Flags().Lookup("format"))
}

func runInspect(cmd *cobra.Command, args []string) error {
	h, err := newHost(args, nil)
	if err != nil {
		return err
	}
	defer h.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if err := h.startServices(ctx, g, true); err != nil {
		return err
	}
	g.Go(func() error { return h.app.Run(ctx) })

	addr := net.JoinHostPort(h.cfg.Inspector.Host, strconv.Itoa(h.cfg.Inspector.Port))
	fmt.Fprintf(cmd.OutOrStdout(), "Inspecting %s at http://%s\n", h.demo.Name, addr)
	return wait(g)
}
