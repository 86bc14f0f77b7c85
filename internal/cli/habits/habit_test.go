package habits

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/app"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/config"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/state"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/transport"
)

func setupCtx(t *testing.T) *cli.Context {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Database:  config.Database{Path: filepath.Join(dir, "habitvault.db")},
		App:       config.App{Platform: constants.PlatformIOS, Version: "test"},
		Transport: config.Transport{Kind: transport.KindLocal, Dir: filepath.Join(dir, "backups")},
		Backup:    config.Backup{Schedule: constants.DefaultBackupSchedule},
	}
	tr, err := transport.New(app.TransportConfig(cfg))
	require.NoError(t, err)
	svc, err := app.Open(context.Background(), cfg, tr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	return &cli.Context{Config: cfg, Service: svc, Clock: func() time.Time { return now }}
}

func addHabit(t *testing.T, ctx *cli.Context, name string) models.Habit {
	t.Helper()
	require.NoError(t, (&HabitAddCmd{Name: name, Frequency: "daily", Target: 2}).Run(ctx))
	st := ctx.Service.State()
	h, err := resolve(st, name)
	require.NoError(t, err)
	return h
}

func TestHabitAddAndDone(t *testing.T) {
	ctx := setupCtx(t)
	h := addHabit(t, ctx, "Stretch")
	assert.Equal(t, 2, h.TargetCompletionsPerDay)
	assert.Equal(t, models.AllWeekdays, h.SelectedDays)

	require.NoError(t, (&HabitDoneCmd{Habit: "stretch", Note: "felt good"}).Run(ctx))

	stored, err := ctx.Service.DB().Habits().GetByID(context.Background(), h.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	c := stored.Completions["2026-03-09"]
	assert.Equal(t, 1, c.CompletionCount)
	assert.Equal(t, 2, c.TargetCount)
	require.Len(t, c.Entries, 1)
	assert.Equal(t, "felt good", *c.Entries[0].Note)
}

func TestHabitDoneStreakFollowsLocalDay(t *testing.T) {
	ctx := setupCtx(t)
	tokyo := time.FixedZone("JST", 9*60*60)
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, tokyo)
	ctx.Clock = func() time.Time { return now }

	require.NoError(t, (&HabitAddCmd{Name: "Walk", Frequency: "daily", Target: 1}).Run(ctx))
	h, err := resolve(ctx.Service.State(), "Walk")
	require.NoError(t, err)

	require.NoError(t, (&HabitDoneCmd{Habit: h.ID}).Run(ctx))
	st := ctx.Service.State()
	done := st.Habits[st.HabitIndex(h.ID)]
	assert.True(t, done.Completions["2026-03-09"].IsComplete())
	assert.Equal(t, 1, done.Streak)
}

func TestHabitUndo(t *testing.T) {
	ctx := setupCtx(t)
	h := addHabit(t, ctx, "Read")

	// Nothing recorded yet is not an error.
	require.NoError(t, (&HabitUndoCmd{Habit: h.ID}).Run(ctx))

	require.NoError(t, (&HabitDoneCmd{Habit: h.ID}).Run(ctx))
	require.NoError(t, (&HabitUndoCmd{Habit: h.ID}).Run(ctx))
	st := ctx.Service.State()
	assert.Zero(t, st.Habits[st.HabitIndex(h.ID)].Completions["2026-03-09"].CompletionCount)
}

func TestHabitArchiveAndDelete(t *testing.T) {
	ctx := setupCtx(t)
	h := addHabit(t, ctx, "Meditate")

	require.NoError(t, (&HabitArchiveCmd{Habit: h.ID}).Run(ctx))
	st := ctx.Service.State()
	assert.True(t, st.Habits[st.HabitIndex(h.ID)].Archived)

	require.NoError(t, (&HabitDeleteCmd{Habit: h.ID}).Run(ctx))
	assert.Equal(t, -1, ctx.Service.State().HabitIndex(h.ID))
	stored, err := ctx.Service.DB().Habits().GetByID(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestHabitReorder(t *testing.T) {
	ctx := setupCtx(t)
	a := addHabit(t, ctx, "Alpha")
	b := addHabit(t, ctx, "Beta")

	require.NoError(t, (&HabitReorderCmd{Habits: []string{b.ID, a.ID}}).Run(ctx))
	st := ctx.Service.State()
	assert.Equal(t, b.ID, st.Habits[0].ID)
	assert.Equal(t, a.ID, st.Habits[1].ID)
}

func TestResolve(t *testing.T) {
	st := models.State{Habits: []models.Habit{
		{ID: "abc-1", Name: "Walk"},
		{ID: "abc-2", Name: "Run"},
	}}

	h, err := resolve(st, "walk")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", h.ID)

	h, err = resolve(st, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "Run", h.Name)

	_, err = resolve(st, "abc")
	assert.ErrorContains(t, err, "matches 2 habits")

	_, err = resolve(st, "swim")
	assert.ErrorIs(t, err, state.ErrHabitNotFound)
}

func TestVacationOnOff(t *testing.T) {
	ctx := setupCtx(t)

	require.NoError(t, (&VacationOnCmd{}).Run(ctx))
	require.NoError(t, (&VacationOnCmd{}).Run(ctx))
	vac := ctx.Service.State().Vacation
	require.Len(t, vac, 1)
	assert.Equal(t, "2026-03-09", vac[0].StartDate)
	assert.Nil(t, vac[0].EndDate)

	later := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)
	ctx.Clock = func() time.Time { return later }
	require.NoError(t, (&VacationOffCmd{}).Run(ctx))
	vac = ctx.Service.State().Vacation
	require.Len(t, vac, 1)
	require.NotNil(t, vac[0].EndDate)
	assert.Equal(t, "2026-03-12", *vac[0].EndDate)

	stored, err := ctx.Service.DB().Profile().GetVacationIntervals(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
