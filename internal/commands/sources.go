package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"anthemengine/internal/app"
	"anthemengine/internal/dbclient"
	"anthemengine/internal/domain"
	"anthemengine/internal/prompts"
	"anthemengine/internal/records"
	"anthemengine/internal/service"
)

type sourcesAddOptions struct {
	input service.SourceInput
}

func newSourcesAddCmd() *cobra.Command {
	opts := &sourcesAddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a source connection",
		Long: `Add a stored connection to an upstream record store. The database record
source refers to it by name or id through source.config.connectionId.`,
		Example: `  # Interactive mode
  anthem sources add

  # Non-interactive
  anthem sources add -n crm --driver postgres --host db.internal --port 5432 \
    --database crm --username anthem --password "$PGPASSWORD"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return runSourcesAdd(cmd, a, opts)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input.Name, "name", "n", "", "Connection name")
	f.StringVar(&opts.input.Driver, "driver", "", "Driver (sqlite, postgres, mysql, mongodb)")
	f.StringVar(&opts.input.Host, "host", "", "Hostname, or the database file for sqlite")
	f.IntVar(&opts.input.Port, "port", 0, "Port")
	f.StringVar(&opts.input.Database, "database", "", "Database name")
	f.StringVar(&opts.input.Username, "username", "", "Username")
	f.StringVar(&opts.input.Password, "password", "", "Password (kept in the secret store)")
	f.StringVar(&opts.input.SSLMode, "ssl-mode", "", "SSL mode (disable, require, ...)")
	f.StringVar(&opts.input.ExtraJSON, "extra", "", "Driver-specific options as JSON")

	return cmd
}

func runSourcesAdd(cmd *cobra.Command, a *app.App, opts *sourcesAddOptions) error {
	ctx := cmd.Context()
	in := opts.input

	if !cmd.Flags().Changed("name") {
		conns, err := a.Sources.List(ctx)
		if err != nil {
			return err
		}
		existing := make(map[string]struct{}, len(conns))
		for _, c := range conns {
			existing[c.Name] = struct{}{}
		}
		if err := prompts.RunSourceAddForm(&in, existing); err != nil {
			return err
		}
	} else if in.Driver == "" {
		return fmt.Errorf("--driver is required when --name is specified")
	}

	conn, err := a.Sources.Create(ctx, in)
	if err != nil {
		return err
	}

	prompts.PrintResult(cmd.OutOrStdout(), []prompts.ResultField{
		{Label: "Source", Value: conn.Name},
		{Label: "ID", Value: conn.ID},
		{Label: "Driver", Value: string(conn.Driver)},
		{Label: "Host", Value: conn.Host},
	}, "Source added")
	return nil
}

type sourcesListOptions struct {
	output string
}

func newSourcesListCmd() *cobra.Command {
	opts := &sourcesListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List source connections",
		Example: `  # Table
  anthem sources list

  # JSON
  anthem sources list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				conns, err := a.Sources.List(cmd.Context())
				if err != nil {
					return err
				}
				return printSources(cmd.OutOrStdout(), conns, opts.output)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func printSources(w io.Writer, conns []domain.SourceConnection, output string) error {
	if conns == nil {
		conns = []domain.SourceConnection{}
	}
	switch output {
	case "json":
		return printJSON(w, conns)
	case "yaml":
		return printYAML(w, conns)
	}

	if len(conns) == 0 {
		_, err := fmt.Fprintln(w, "No sources defined.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tDRIVER\tHOST\tDATABASE\tID")
	for _, c := range conns {
		host := c.Host
		if c.Port > 0 {
			host = fmt.Sprintf("%s:%d", c.Host, c.Port)
		}
		db := c.Database
		if db == "" {
			db = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Driver, host, db, c.ID)
	}
	return tw.Flush()
}

func newSourcesTestCmd() *cobra.Command {
	var schema bool
	cmd := &cobra.Command{
		Use:   "test <name>",
		Short: "Check that a source connection is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				if err := a.Sources.Test(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("connection %s failed: %w", args[0], err)
				}
				prompts.PrintResult(cmd.OutOrStdout(), []prompts.ResultField{
					{Label: "Source", Value: args[0]},
				}, "Connection ok")
				if !schema {
					return nil
				}
				info, err := a.Sources.Introspect(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("introspect %s: %w", args[0], err)
				}
				return printSchema(cmd.OutOrStdout(), info)
			})
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "Also list the tables and columns the connection exposes")
	return cmd
}

func printSchema(w io.Writer, info *dbclient.SchemaInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TABLE\tCOLUMNS")
	for _, t := range info.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name
			if c.Type != "" {
				cols[i] += " " + c.Type
			}
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", t.Name, strings.Join(cols, ", "))
	}
	return tw.Flush()
}

func newSourcesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a source connection and its stored password",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				if err := a.Sources.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				prompts.PrintResult(cmd.OutOrStdout(), []prompts.ResultField{
					{Label: "Source", Value: args[0]},
				}, "Source removed")
				return nil
			})
		},
	}
}

func newSourcesTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "types",
		Short:             "List record source types and their settings",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TYPE\tSETTING\tREQUIRED\tHELP")
			for _, spec := range records.ListSources() {
				for _, f := range spec.ConfigFields {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", spec.Type, f.Key, f.Required, f.Help)
				}
			}
			return tw.Flush()
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(v)
}
