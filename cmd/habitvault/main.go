package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/app"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli/backups"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli/habits"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli/system"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/config"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/transport"
)

var CLI struct {
	Version   kong.VersionFlag
	Config    string `help:"Config file path. Defaults to ~/.config/habitvault/config.yaml when present." type:"path"`
	DB        string `name:"db" help:"Override the SQLite database path." type:"path"`
	Transport string `help:"Override the backup transport (local, dropbox or postgres)."`
	Debug     bool   `help:"Log to stderr at debug level."`

	Init     system.InitCmd     `cmd:"" help:"Initialize habitvault storage."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Keyring  system.KeyringCmd  `cmd:"" help:"Manage transport credentials in the OS keyring."`
	Habit    habits.HabitCmd    `cmd:"" help:"Manage habits and completions." default:"1"`
	Vacation habits.VacationCmd `cmd:"" help:"Pause and resume streaks."`
	Backup   struct {
		Create   backups.BackupCreateCmd   `cmd:"" help:"Create a backup on the configured transport." default:"1"`
		List     backups.BackupListCmd     `cmd:"" help:"List available backups."`
		Restore  backups.BackupRestoreCmd  `cmd:"" help:"Restore from a backup."`
		Validate backups.BackupValidateCmd `cmd:"" help:"Check a backup without restoring it."`
		Delete   backups.BackupDeleteCmd   `cmd:"" help:"Delete a backup."`
		Export   backups.BackupExportCmd   `cmd:"" help:"Write a snapshot to a file."`
		Schedule backups.ScheduleCmd       `cmd:"" help:"Manage automatic backups."`
	} `cmd:"" help:"Manage snapshot backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Local-first habit tracker with checksummed snapshot backups"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	errors.Fatal(err)
	if CLI.DB != "" {
		cfg.SetDatabasePath(CLI.DB)
	}
	if CLI.Transport != "" {
		cfg.Transport.Kind = CLI.Transport
	}
	if CLI.Debug {
		cfg.Log.Debug = true
	}
	errors.Fatal(cfg.Validate())

	errors.Fatal(logger.Init(logger.Config{Debug: cfg.Log.Debug, Dir: cfg.Log.Dir, Level: cfg.Log.Level}))

	tr, err := transport.New(app.TransportConfig(cfg))
	errors.Fatal(err)

	svc, err := app.Open(context.Background(), cfg, tr)
	errors.Fatal(err)

	err = ctx.Run(&cli.Context{Config: cfg, Service: svc})
	if cerr := svc.Close(); cerr != nil {
		logger.Warn("Failed to close service", "error", cerr)
	}
	errors.Fatal(err)
}
