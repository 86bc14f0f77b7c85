package backups

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/scheduler"
)

type ScheduleCmd struct {
	Foreground ScheduleRunCmd     `cmd:"" name:"run" help:"Run the backup scheduler in the foreground."`
	Enable     ScheduleEnableCmd  `cmd:"" help:"Turn on automatic backups."`
	Disable    ScheduleDisableCmd `cmd:"" help:"Turn off automatic backups."`
	Status     ScheduleStatusCmd  `cmd:"" help:"Show automatic backup status." default:"1"`
}

type ScheduleRunCmd struct {
	Once bool `help:"Run a single tick and exit."`
}

func (c *ScheduleRunCmd) Run(ctx *cli.Context) error {
	auto, err := ctx.Service.AutoBackup()
	if err != nil {
		return err
	}

	if c.Once {
		res, err := auto.RunNow(context.Background())
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Println("Automatic backups are disabled; nothing to do.")
			return nil
		}
		cli.OK("Backup created: %s", res.ID)
		return nil
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := auto.Start(runCtx); err != nil {
		return err
	}
	if next := auto.NextRun(); next != nil {
		fmt.Printf("Scheduler running (%s). Next backup at %s. Press Ctrl+C to stop.\n",
			ctx.Config.Schedule, next.Local().Format("2006-01-02 15:04:05"))
	}
	<-runCtx.Done()
	auto.Stop()
	fmt.Println("Scheduler stopped.")
	return nil
}

type ScheduleEnableCmd struct{}

func (c *ScheduleEnableCmd) Run(ctx *cli.Context) error {
	if err := scheduler.Enable(context.Background(), ctx.Service.DB().Metadata(), true); err != nil {
		return err
	}
	cli.OK("Automatic backups enabled (%s)", ctx.Config.Schedule)
	return nil
}

type ScheduleDisableCmd struct{}

func (c *ScheduleDisableCmd) Run(ctx *cli.Context) error {
	if err := scheduler.Enable(context.Background(), ctx.Service.DB().Metadata(), false); err != nil {
		return err
	}
	cli.OK("Automatic backups disabled")
	return nil
}

type ScheduleStatusCmd struct{}

func (c *ScheduleStatusCmd) Run(ctx *cli.Context) error {
	md := ctx.Service.DB().Metadata()
	var enabled bool
	if _, err := md.Get(context.Background(), constants.MetaAutoBackupEnabled, &enabled); err != nil {
		return err
	}
	if enabled {
		cli.OK("Automatic backups: enabled")
	} else {
		cli.Warn("Automatic backups: disabled")
	}
	fmt.Printf("  Schedule:  %s\n", ctx.Config.Schedule)
	fmt.Printf("  Transport: %s\n", ctx.Service.Transport().Kind())

	at, found, err := scheduler.LastSuccess(context.Background(), md)
	switch {
	case err != nil:
		return err
	case found:
		fmt.Printf("  Last run:  %s\n", at.Local().Format("2006-01-02 15:04:05"))
	default:
		fmt.Println("  Last run:  never")
	}
	return nil
}
