package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zipline/internal/cli/output"
	"github.com/marmos91/zipline/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the zipline configuration file.

Checks for syntax errors, missing required fields and invalid values, then
reports environment problems such as a missing archive root or compressor.

Examples:
  # Validate default config
  zipline config validate

  # Validate specific config file
  zipline config validate --config /etc/zipline/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable)
	printer.Printf("Configuration file: %s\n", displayPath)
	printer.Success("Validation: OK")

	if warnings := config.Warnings(cfg); len(warnings) > 0 {
		printer.Printf("\nWarnings:\n")
		for _, w := range warnings {
			printer.Warning("  - " + w)
		}
	}

	printer.Printf("\nConfiguration summary:\n")
	return output.Fields{}.
		Add("Archive root", cfg.Archive.Root).
		Add("Compressor", cfg.Archive.Compressor).
		Add("Chunk size", cfg.Archive.ChunkSize.String()).
		Add("Delay", cfg.Archive.Delay.String()).
		Add("Server port", fmt.Sprint(cfg.Server.Port)).
		Add("Log level", cfg.Logging.Level).
		Print(printer.Writer())
}
