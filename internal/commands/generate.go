package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"anthemengine/internal/app"
	"anthemengine/internal/export"
	"anthemengine/internal/prompts"
)

type generateOptions struct {
	out    string
	format string
	window int
	quiet  bool
}

func registerGenerateCmd(parent *cobra.Command) {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <opportunityId>",
		Short: "Generate the anthem for an opportunity",
		Long: `Generate the anthem for an opportunity, store it in the run history and
write the player data file.`,
		Example: `  # Write anthemData.js for the browser player
  anthem generate 006XXXXXXXXXXXXXXX

  # Write JSON instead
  anthem generate 006XXXXXXXXXXXXXXX --out anthem.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return runGenerate(cmd, a, args[0], opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "anthemData.js", "Output file (empty to skip writing)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "js", "Output format (js, json)")
	cmd.Flags().IntVar(&opts.window, "window", export.DefaultStatsWindow, "Samples summarised per channel")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Skip the channel analysis")

	parent.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, a *app.App, opportunityID string, opts *generateOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	run, err := a.Anthems.Generate(cmd.Context(), opportunityID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !opts.quiet {
		prompts.PrintAnthem(w, run, opts.window)
	}

	fields := []prompts.ResultField{
		{Label: "Run", Value: run.ID},
		{Label: "Duration", Value: fmt.Sprintf("%dms", run.DurationMs)},
	}
	if opts.out != "" {
		n, err := export.WriteFile(opts.out, format, export.FromRun(run))
		if err != nil {
			return err
		}
		fields = append(fields, prompts.ResultField{Label: "Saved", Value: fmt.Sprintf("%s (%s)", opts.out, export.HumanSize(n))})
	}
	prompts.PrintResult(w, fields, "Anthem generated")
	return nil
}
