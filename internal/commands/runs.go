package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"anthemengine/internal/app"
	"anthemengine/internal/domain"
	"anthemengine/internal/export"
	"anthemengine/internal/prompts"
)

type runsListOptions struct {
	limit  int
	output string
}

func newRunsListCmd() *cobra.Command {
	opts := &runsListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent anthem runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				runs, err := a.Anthems.List(cmd.Context(), opts.limit)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs, opts.output)
			})
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 20, "Maximum runs to list")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func printRuns(w io.Writer, runs []domain.AnthemRun, output string) error {
	if runs == nil {
		runs = []domain.AnthemRun{}
	}
	switch output {
	case "json":
		return printJSON(w, runs)
	case "yaml":
		return printYAML(w, runs)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No anthem runs yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tOPPORTUNITY\tMODE\tMAX\tMIN\tCREATED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			r.ID, r.OpportunityID, r.Mode, r.Max, r.Min, humanize.Time(r.CreatedAt))
	}
	return tw.Flush()
}

type runsShowOptions struct {
	opportunity bool
	out         string
	format      string
	window      int
}

func newRunsShowCmd() *cobra.Command {
	opts := &runsShowOptions{}

	cmd := &cobra.Command{
		Use:   "show <runId>",
		Short: "Show a stored anthem run",
		Example: `  # Analysis of one run
  anthem runs show 2f1c...

  # Latest run of an opportunity, re-exported for the player
  anthem runs show 006XXXXXXXXXXXXXXX --opportunity --out anthemData.js`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return runRunsShow(cmd, a, args[0], opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.opportunity, "opportunity", false, "Treat the argument as an opportunity id and show its latest run")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Also write the player data to this file")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "js", "Output format (js, json)")
	cmd.Flags().IntVar(&opts.window, "window", export.DefaultStatsWindow, "Samples summarised per channel")
	return cmd
}

func runRunsShow(cmd *cobra.Command, a *app.App, key string, opts *runsShowOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	var run *domain.AnthemRun
	if opts.opportunity {
		run, err = a.Anthems.Latest(cmd.Context(), key)
	} else {
		run, err = a.Anthems.Get(cmd.Context(), key)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	prompts.PrintAnthem(w, run, opts.window)
	if opts.out == "" {
		return nil
	}
	n, err := export.WriteFile(opts.out, format, export.FromRun(run))
	if err != nil {
		return err
	}
	prompts.PrintResult(w, []prompts.ResultField{
		{Label: "Saved", Value: fmt.Sprintf("%s (%s)", opts.out, export.HumanSize(n))},
	}, "")
	return nil
}
