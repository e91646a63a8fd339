package main

import (
	"github.com/spf13/cobra"
)

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "pulse",
	Short:         "Feedback triage: ingest, search, and digest user feedback",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(registerCommandsCmd)
	rootCmd.AddCommand(backfillCmd)
}
