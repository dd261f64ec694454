package commands

import (
	"github.com/spf13/cobra"

	"anthemengine/internal/app"
)

type serveOptions struct {
	addr       string
	noSchedule bool
}

func registerServeCmd(parent *cobra.Command) {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve POST /generateanthem and the run history over HTTP. Configured
schedules and file watches run alongside the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return runServe(cmd, a, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default server.addr)")
	cmd.Flags().BoolVar(&opts.noSchedule, "no-schedule", false, "Do not start schedules and watches")

	parent.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, a *app.App, opts *serveOptions) error {
	ctx := cmd.Context()
	addr := opts.addr
	if addr == "" {
		addr = a.Config.Server.Addr
	}

	if !opts.noSchedule {
		started, err := a.StartSchedules(ctx)
		if err != nil {
			return err
		}
		if started {
			a.Logger.Infof("running %d schedules and %d watches", len(a.Config.Schedules), len(a.Config.Watch))
		}
	}
	return a.HTTP().ListenAndServe(ctx, addr)
}

func registerMCPCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return a.MCP().ServeStdio()
			})
		},
	}
	parent.AddCommand(cmd)
}
