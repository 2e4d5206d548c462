// Package cmd provides the lenskit command-line interface.
//
// Configuration is read from, in order of precedence:
//  1. Command-line flags (--log-level, --port, ...)
//  2. LENSKIT_<SECTION>_<OPTION> environment variables
//  3. The file named by --config or LENSKIT_CONFIG_FILE
//  4. .lenskit.yml in the working directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/lenskit/internal/config"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lenskit",
	Short: "Run and inspect reactive UI trees",
	Long: `lenskit hosts the demo applications of the reactive binding core.

Every demo is a tree of entities whose bindings rebuild when the model
fields they observe through lenses change.

Quick Start:
  lenskit run counter --tui       Interactive terminal UI
  lenskit repl static_list        Drive a demo from a prompt
  lenskit inspect                 Live tree in the browser
  lenskit config                  Show the effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Init(viper.GetViper(), cfgFile)
	},
}

// Execute runs the root command and prints failures with fix hints.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// normalizeFlag accepts underscores in flag names, so --log_level and
// --log-level are the same flag.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .lenskit.yml, can also use LENSKIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error, off)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func formatError(err error) string {
	title := "Error: " + err.Error()
	if cause := lkerrors.ExtractCause(err); cause != nil && cause.Error() != err.Error() {
		title += "\nCause: " + cause.Error()
	}
	ctx := &lkerrors.SuggestionContext{ConfigPath: viper.ConfigFileUsed()}
	return lkerrors.FormatSuggestions(title, lkerrors.Suggest(err, ctx))
}
