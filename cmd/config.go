package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/lenskit/internal/config"
	lkerrors "github.com/conneroisu/lenskit/internal/errors"
)

var (
	configFormat string
	configFile   string
	configStrict bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or validate the lenskit configuration",
	Long: `Show the effective configuration, resolved from flags, LENSKIT_
environment variables, the config file and defaults.

Examples:
  lenskit config                         # Same as config show
  lenskit config show --format json
  lenskit config validate --file prod.yml --strict`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file and report errors and warnings with
suggestions. Without --file the file found at startup is checked.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd)

	configCmd.PersistentFlags().StringVarP(&configFormat, "format", "f", "yaml", "Output format (yaml, json)")
	configValidateCmd.Flags().StringVar(&configFile, "file", "", "Configuration file to validate")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "yaml", "yml":
		fmt.Fprintln(w, "# Resolved from all sources (flags, env vars, file, defaults)")
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(w, "# Config file: %s\n", used)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	v := viper.GetViper()
	if configFile != "" {
		v = viper.New()
		if err := config.Init(v, configFile); err != nil {
			return err
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Validating configuration file: %s\n", used)
	} else {
		fmt.Fprintln(out, "No configuration file found, validating defaults and environment")
	}

	cfg, err := config.Resolve(v)
	if err != nil {
		return err
	}

	result := cfg.ValidateWithDetails()
	if !result.HasErrors() && len(result.Warnings) == 0 {
		fmt.Fprintln(out, "Configuration is valid.")
		return nil
	}
	fmt.Fprint(out, result.String())

	if result.HasErrors() {
		return lkerrors.NewConfigError(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("configuration validation failed with %d errors", len(result.Errors)))
	}
	if configStrict {
		return lkerrors.NewConfigError(lkerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("configuration validation failed in strict mode with %d warnings", len(result.Warnings)))
	}
	fmt.Fprintf(out, "Configuration is valid with %d warnings. Use --strict to treat warnings as errors.\n",
		len(result.Warnings))
	return nil
}
