package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/backup"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/keyring"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/scheduler"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/state"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(ctx context.Context, c *cli.Context) error
	// warnOnly checks never fail the command.
	warnOnly bool
}

var checks = []check{
	{name: "Database schema", run: checkSchema},
	{name: "State hydration", run: checkHydration},
	{name: "Habit integrity", run: checkHabits},
	{name: "Snapshot round trip", run: checkSnapshot},
	{name: "Backup transport", run: checkTransport},
	{name: "Recent backup", run: checkRecentBackup, warnOnly: true},
	{name: "OS keyring", run: checkKeyring, warnOnly: true},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := 0
	for _, ch := range checks {
		err := ch.run(bg, ctx)
		switch {
		case err == nil:
			cli.OK("%s: OK", ch.name)
		case ch.warnOnly:
			cli.Warn("%s: WARNING", ch.name)
			fmt.Printf("   %v\n", err)
		default:
			cli.Fail("%s: FAIL", ch.name)
			fmt.Printf("   Error: %v\n", err)
			failed++
		}
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkSchema(ctx context.Context, c *cli.Context) error {
	st, err := c.Service.DB().Status(ctx)
	if err != nil {
		return err
	}
	if st.SchemaVersion != st.LatestVersion {
		return fmt.Errorf("schema version %d, expected %d", st.SchemaVersion, st.LatestVersion)
	}
	if !st.ForeignKeysEnabled {
		return errors.New("foreign keys are disabled")
	}
	return nil
}

func checkHydration(_ context.Context, c *cli.Context) error {
	if s := c.Service.HydrationStatus(); s != state.StatusHydrated {
		return fmt.Errorf("state is %s; the app is running on empty data", s)
	}
	return nil
}

func checkHabits(_ context.Context, c *cli.Context) error {
	var errs []error
	for _, h := range c.Service.State().Habits {
		if err := h.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.ID, err))
		}
		for date, comp := range h.Completions {
			if comp.Date != date {
				errs = append(errs, fmt.Errorf("%s: completion keyed %s holds date %s", h.ID, date, comp.Date))
			}
			if comp.CompletionCount < 0 {
				errs = append(errs, fmt.Errorf("%s: %s has a negative completion count", h.ID, date))
			}
		}
	}
	return errors.Join(errs...)
}

func checkSnapshot(ctx context.Context, c *cli.Context) error {
	snap, raw, err := c.Service.Export(ctx, nil)
	if err != nil {
		return err
	}
	v := backup.Validate(raw)
	if !v.Valid {
		return fmt.Errorf("fresh export does not validate: %w", v.Err)
	}
	if got, want := len(v.Snapshot.Data.Habits), len(snap.Data.Habits); got != want {
		return fmt.Errorf("export holds %d habits after parsing, expected %d", got, want)
	}
	return nil
}

func checkTransport(ctx context.Context, c *cli.Context) error {
	tr := c.Service.Transport()
	if !tr.IsAvailable(ctx) {
		return fmt.Errorf("%s transport is not reachable", tr.Kind())
	}
	return nil
}

func checkRecentBackup(ctx context.Context, c *cli.Context) error {
	at, found, err := scheduler.LastSuccess(ctx, c.Service.DB().Metadata())
	if err != nil {
		return err
	}
	if !found {
		return errors.New("no automatic backup has run yet")
	}
	if age := time.Since(at); age > 48*time.Hour {
		return fmt.Errorf("last automatic backup was %s ago", age.Round(time.Hour))
	}
	return nil
}

func checkKeyring(_ context.Context, _ *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

