// Package cli provides the command-line interface for iamconv.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/iamconv/internal/cli/commands"
	"github.com/leapstack-labs/iamconv/internal/cli/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "iamconv",
		Short: "iamconv - IAMC Dataset Converter",
		Long: `iamconv converts energy model outputs into the IAMC long format.

An index file describes the datasets: their paths, index columns,
value renames, aggregations, and the variable name template. iamconv
reads them, resolves every row onto the IAMC columns (model, scenario,
region, variable, unit, year, value) and writes one combined table.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
IAMC Dataset Converter
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./iamconv.yaml)")
	rootCmd.PersistentFlags().StringP("index", "i", "", "Path to the index file")
	rootCmd.PersistentFlags().String("basepath", "", "Base path for dataset files (default: index file directory)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output path (CSV sink; empty writes to stdout)")
	rootCmd.PersistentFlags().Bool("wide", false, "Pivot years into columns (CSV output)")
	rootCmd.PersistentFlags().IntP("jobs", "j", config.DefaultJobs, "Number of entries converted concurrently")
	rootCmd.PersistentFlags().Bool("keep-going", false, "Record entry failures instead of aborting the run")
	rootCmd.PersistentFlags().String("state", "", "Path to the run-history database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
