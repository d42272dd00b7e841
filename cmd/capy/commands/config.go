package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capy-discord/capy/pkg/telemetry"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect telemetry configuration",
		Long: `Commands for inspecting the effective telemetry configuration.

The configuration is built from defaults, the optional YAML file given with
--config and CAPY_ environment variables, in that order.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigValidateCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Example: `  # Show the configuration after file and environment overrides
  capy config show --config capy.yaml

  # Show the production preset
  capy config show --preset production`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *telemetry.Config
			switch preset {
			case "":
				loaded, err := loadConfig("")
				if err != nil {
					return err
				}
				cfg = loaded
			case "default":
				cfg = telemetry.DefaultConfig()
			case "development":
				cfg = telemetry.DevelopmentConfig()
			case "production":
				cfg = telemetry.ProductionConfig()
			default:
				return fmt.Errorf("unknown preset %q (want default, development or production)", preset)
			}

			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "show a built-in preset instead (default, development, production)")

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration file",
		Long: `Validate a telemetry configuration file, including environment overrides.

This command checks:
  - YAML syntax
  - Field values (levels, formats, exporters, durations)
  - Cross-field rules (exporter endpoints, metrics address)`,
		Example: `  # Validate the file given with --config
  capy config validate --config capy.yaml

  # Validate a specific file
  capy config validate ./deploy/capy.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}

			log.Info().Str("path", path).Msg("Validating configuration")

			if _, err := telemetry.LoadConfig(path); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}

	return cmd
}
