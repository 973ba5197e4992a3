package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/querycanvas/langservice/internal/config"
	"github.com/querycanvas/langservice/internal/logging"
)

var (
	configFile string
	logFormat  string
)

// NewRootCmd builds docqlctl's root command and registers its
// subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqlctl",
		Short: "Inspect and drive the DocQL/GraphQL language service from the command line",
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text or json")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newSuggestCmd())

	return cmd
}

// loadConfig resolves a Config from defaults, an optional --config file,
// and the command's own flags, the same layering order used by a host
// embedding the facade directly.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	logging.SetDefault("docqlctl", "dev", logging.Format(logFormat), slog.LevelInfo)
	return config.Load(configFile, flags)
}
