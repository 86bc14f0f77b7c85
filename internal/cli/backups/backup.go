package backups

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/backup"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/transport"
)

type BackupCreateCmd struct {
	Quiet bool `help:"Do not print progress."`
}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	onProgress, stop := cli.Progress(c.Quiet)
	id, err := ctx.Service.CreateBackup(context.Background(), onProgress)
	stop()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	cli.OK("Backup created: %s (%s)", id, ctx.Service.Transport().Kind())
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	tr := ctx.Service.Transport()
	files, err := tr.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(files) == 0 {
		fmt.Printf("No backups found in %s.\n", describe(tr))
		return nil
	}

	fmt.Println(cli.HeadStyle.Render(fmt.Sprintf("Available backups (%d total)", len(files))))
	for _, f := range files {
		fmt.Printf("  %s  %s  (%s)  %s\n", f.Timestamp.Local().Format("2006-01-02 15:04:05"), f.Name, cli.FormatSize(f.Size), cli.Muted(f.ID))
	}
	fmt.Printf("\nStored in: %s\n", describe(tr))
	return nil
}

func describe(tr transport.Transport) string {
	if l, ok := tr.(interface{ Dir() string }); ok {
		return l.Dir()
	}
	return tr.Kind()
}

// Source resolves a backup either from a local file or from the transport by id.
type Source struct {
	ID   string `arg:"" optional:"" help:"Backup id as shown by 'backup list'."`
	File string `help:"Read the snapshot from a file instead of the configured transport." type:"existingfile"`
}

func (s Source) read(ctx *cli.Context) ([]byte, string, error) {
	switch {
	case s.File != "":
		raw, err := os.ReadFile(s.File)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", s.File, err)
		}
		return raw, s.File, nil
	case s.ID != "":
		raw, err := ctx.Service.Transport().Download(context.Background(), s.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to download backup: %w", err)
		}
		return raw, s.ID, nil
	default:
		return nil, "", errors.New("specify a backup id or --file")
	}
}

type BackupValidateCmd struct {
	Source `embed:""`
}

func (c *BackupValidateCmd) Run(ctx *cli.Context) error {
	raw, name, err := c.read(ctx)
	if err != nil {
		return err
	}
	v := backup.Validate(raw)
	if !v.Valid {
		cli.Fail("%s is not restorable: %s", name, v.Reason)
		return v.Err
	}
	snap := v.Snapshot
	cli.OK("%s is a valid version %d snapshot", name, snap.Version)
	fmt.Printf("  Created:  %s\n", snap.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Device:   %s %s (app %s)\n", snap.Device.Platform, snap.Device.DeviceID, snap.Device.AppVersion)
	fmt.Printf("  Habits:   %d (%d completions, %d entries)\n", len(snap.Data.Habits), len(snap.Data.Completions), len(snap.Data.Entries))
	fmt.Printf("  Badges:   %d unlocked\n", len(snap.Data.UnlockedBadges))
	return nil
}

type BackupRestoreCmd struct {
	Source `embed:""`
	Yes   bool `short:"y" help:"Skip the confirmation prompt."`
	Quiet bool `help:"Do not print progress."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	raw, name, err := c.read(ctx)
	if err != nil {
		return err
	}

	if v := backup.Validate(raw); !v.Valid {
		cli.Fail("%s cannot be restored: %s", name, v.Reason)
		return v.Err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Replace all habit data with this backup?").
			Description(fmt.Sprintf("Restoring from %s.\nA backup of your current data is uploaded first.", name)).
			Affirmative("Restore").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	onProgress, stop := cli.Progress(c.Quiet)
	out, err := ctx.Service.Restore(context.Background(), raw, onProgress)
	stop()
	if out.SafetyID != "" {
		fmt.Printf("Current data saved as %s (%s)\n", out.SafetyID, out.SafetyTransport)
	}
	if err != nil {
		if out.Reason != "" {
			cli.Fail("Restore failed: %s", out.Reason)
		}
		return fmt.Errorf("restore failed: %w", err)
	}

	cli.OK("Restored version %d snapshot from %s", out.Version, out.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  %d habits, %d completions, %d entries, %d templates\n", out.Habits, out.Completions, out.Entries, out.Templates)
	fmt.Printf("  %d vacation intervals, %d unlocked badges, %d settings\n", out.Vacation, out.UnlockedBadges, out.Settings)
	return nil
}

type BackupDeleteCmd struct {
	ID string `arg:"" help:"Backup id as shown by 'backup list'."`
}

func (c *BackupDeleteCmd) Run(ctx *cli.Context) error {
	deleted, err := ctx.Service.Transport().Delete(context.Background(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	if !deleted {
		return fmt.Errorf("backup not found: %s", c.ID)
	}
	cli.OK("Deleted %s", c.ID)
	return nil
}

type BackupExportCmd struct {
	Out   string `arg:"" help:"File to write the snapshot to."`
	Force bool   `help:"Overwrite an existing file."`
	Quiet bool   `help:"Do not print progress."`
}

func (c *BackupExportCmd) Run(ctx *cli.Context) error {
	if _, err := os.Stat(c.Out); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Out)
	}
	onProgress, stop := cli.Progress(c.Quiet)
	_, raw, err := ctx.Service.Export(context.Background(), onProgress)
	stop()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if dir := filepath.Dir(c.Out); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(c.Out, raw, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	cli.OK("Exported %s to %s", cli.FormatSize(int64(len(raw))), c.Out)
	return nil
}
