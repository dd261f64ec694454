// Package commands contains all CLI command definitions.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command for the CLI.
func NewRootCmd(getenv func(string) string) *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:               "anthem",
		Short:             "Turn CRM opportunities into audio anthems",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: preRunLoad(getenv, flags),
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default $ANTHEM_CONFIG or ./anthem.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	registerGenerateCmd(rootCmd)
	registerServeCmd(rootCmd)
	registerMCPCmd(rootCmd)
	registerScheduleCmd(rootCmd)
	registerSourcesCmd(rootCmd)
	registerRunsCmd(rootCmd)
	registerVersionCmd(rootCmd)
	registerInitCmd(rootCmd)

	return rootCmd
}

func registerSourcesCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage stored source connections",
	}

	cmd.AddCommand(newSourcesAddCmd())
	cmd.AddCommand(newSourcesListCmd())
	cmd.AddCommand(newSourcesTestCmd())
	cmd.AddCommand(newSourcesRemoveCmd())
	cmd.AddCommand(newSourcesTypesCmd())

	parent.AddCommand(cmd)
}

func registerRunsCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored anthem runs",
	}

	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())

	parent.AddCommand(cmd)
}
