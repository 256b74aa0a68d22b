package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/zipline/internal/cli/output"
	"github.com/marmos91/zipline/internal/cli/prompt"
	"github.com/marmos91/zipline/pkg/archive"
	"github.com/marmos91/zipline/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a zipline configuration file with default values.

The file is written to --config when given, otherwise to
$XDG_CONFIG_HOME/zipline/config.yaml.

Examples:
  # Write the defaults
  zipline config init

  # Answer a few questions first
  zipline config init --interactive

  # Overwrite an existing file
  zipline config init --force --config /etc/zipline/config.yaml`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the most common settings")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := askSettings(cfg); err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("configuration not written: %w", err)
			}
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	if err := config.WriteConfigToPath(cfg, configPath, initForce); err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable)
	printer.Success("Configuration written to " + configPath)
	printer.Printf("\nStart the server with:\n  zipline start --config %s\n", configPath)
	return nil
}

// askSettings fills cfg from interactive answers.
func askSettings(cfg *config.Config) error {
	root, err := prompt.Input("Archive root directory", cfg.Archive.Root, prompt.ValidateDirectory)
	if err != nil {
		return err
	}
	cfg.Archive.Root = root

	port, err := prompt.Input("HTTP port", strconv.Itoa(cfg.Server.Port), prompt.ValidatePort)
	if err != nil {
		return err
	}
	cfg.Server.Port, _ = strconv.Atoi(port)

	delay, err := prompt.Input("Delay after every chunk (seconds or duration)", cfg.Archive.Delay.String(), prompt.ValidateDuration)
	if err != nil {
		return err
	}
	cfg.Archive.Delay, _ = archive.ParseDelay(delay)

	compressor, err := prompt.Select("Compressor", []prompt.SelectOption{
		{Label: "exec", Value: archive.CompressorExec, Description: "Pipe the output of an external zip command"},
		{Label: "native", Value: archive.CompressorNative, Description: "Build the archive in-process"},
	}, cfg.Archive.Compressor)
	if err != nil {
		return err
	}
	cfg.Archive.Compressor = compressor

	level, err := prompt.Select("Log level", []prompt.SelectOption{
		{Label: "DEBUG", Value: "DEBUG", Description: "Per-chunk and per-state-change detail"},
		{Label: "INFO", Value: "INFO", Description: "Transfer start and end"},
		{Label: "WARN", Value: "WARN", Description: "Aborted transfers and recoverable problems"},
		{Label: "ERROR", Value: "ERROR", Description: "Failures only"},
	}, cfg.Logging.Level)
	if err != nil {
		return err
	}
	cfg.Logging.Level = level

	metricsEnabled, err := prompt.Confirm("Expose Prometheus metrics", cfg.Metrics.Enabled)
	if err != nil {
		return err
	}
	cfg.Metrics.Enabled = metricsEnabled
	if metricsEnabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = config.DefaultMetricsPort
	}

	return nil
}
