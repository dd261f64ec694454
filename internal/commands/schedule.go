package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"anthemengine/internal/app"
)

// ErrNothingScheduled indicates the config has no schedules or watches.
var ErrNothingScheduled = errors.New("no schedules or watches configured")

func registerScheduleCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run configured schedules and file watches until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return runSchedule(cmd, a)
			})
		},
	}
	parent.AddCommand(cmd)
}

func runSchedule(cmd *cobra.Command, a *app.App) error {
	ctx := cmd.Context()
	started, err := a.StartSchedules(ctx)
	if err != nil {
		return err
	}
	if !started {
		return ErrNothingScheduled
	}
	a.Logger.Infof("running %d schedules and %d watches", len(a.Config.Schedules), len(a.Config.Watch))
	<-ctx.Done()
	return nil
}
