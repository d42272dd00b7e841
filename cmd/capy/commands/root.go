package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capy-discord/capy/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "capy",
		Short: "Capy - Discord bot interaction telemetry",
		Long: `Capy captures every interaction the bot receives and every command
completion or failure, buffers them off the event path and keeps in-memory
usage and latency statistics.

Features:
  - Non-blocking capture with a bounded queue
  - Correlation of interactions with their completions
  - Failure classification (user errors vs internal errors)
  - Prometheus metrics and OpenTelemetry tracing
  - YAML configuration with CAPY_ environment overrides`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newSimulateCommand(version))
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// loadConfig loads the configuration selected by the global flags.
func loadConfig(version string) (*telemetry.Config, error) {
	cfg, err := telemetry.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if version != "" && cfg.ServiceVersion == "dev" {
		cfg.ServiceVersion = version
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
