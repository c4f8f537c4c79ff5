package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Simulate gene expression in a single cell",
	Long: `simulator runs a gene expression scenario: polymerases transcribe genes into
mRNA, ribosomes translate it into proteins and destroyers break it down again.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (defaults to $LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (defaults to $LOG_FORMAT)")
}

// loggerFor builds the command's logger, letting flags override the
// environment.
func loggerFor(cmd *cobra.Command) logging.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	if level == "" && format == "" {
		return logging.NewFromEnv()
	}
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	return logging.New(logging.Config{Level: level, Format: format})
}
