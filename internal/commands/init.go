package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anthemengine/internal/config"
	"anthemengine/internal/prompts"
)

type initOptions struct {
	path       string
	sourceType string
	fixture    string
	force      bool
}

func registerInitCmd(parent *cobra.Command) {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default anthem.yaml",
		Example: `  # Default config in the current directory
  anthem init

  # Offline setup reading records from a fixture file
  anthem init --source json_file --fixture fixtures.json`,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.path, "file", "f", config.DefaultFileName, "Config file to write")
	cmd.Flags().StringVar(&opts.sourceType, "source", "", "Record source type (database, http, json_file)")
	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "Fixture file for the json_file source")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing file")

	parent.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, opts *initOptions) error {
	if _, err := os.Stat(opts.path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", opts.path)
	}

	cfg := config.Default()
	if opts.sourceType != "" {
		cfg.Source.Type = opts.sourceType
		if opts.fixture != "" {
			cfg.Source.Config = map[string]any{"filePath": opts.fixture}
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(opts.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	prompts.PrintResult(cmd.OutOrStdout(), []prompts.ResultField{
		{Label: "Config", Value: opts.path},
		{Label: "Data dir", Value: cfg.DataDir},
	}, "Config written")
	return nil
}
