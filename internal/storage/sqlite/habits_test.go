package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

func strPtr(s string) *string { return &s }

func sampleHabits() []models.Habit {
	day := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	water := models.Habit{
		ID:                      "h-water",
		Name:                    "Water",
		Emoji:                   "💧",
		Streak:                  2,
		Category:                "health",
		Color:                   "blue",
		Frequency:               models.FrequencyDaily,
		TargetCompletionsPerDay: 2,
		SelectedDays:            []int{0, 1, 2, 3, 4, 5, 6},
		Reminder:                models.Reminder{Enabled: true, Time: "08:30"},
		SortOrder:               5,
		CreatedAt:               time.Date(2026, 1, 1, 9, 15, 30, 123456789, time.UTC),
	}
	water = models.Complete(water, "2026-03-01", day, &models.HabitEntry{ID: "e1", Mood: strPtr("good"), Note: strPtr("before work")})
	water = models.Complete(water, "2026-03-01", day.Add(3*time.Hour), &models.HabitEntry{ID: "e2"})
	water = models.Complete(water, "2026-03-02", day.AddDate(0, 0, 1), nil)

	walk := models.Habit{
		ID:                      "h-walk",
		Name:                    "Walk",
		Frequency:               models.FrequencyWeekly,
		TargetCompletionsPerDay: 1,
		SelectedDays:            []int{1, 3},
		Archived:                true,
		SortOrder:               1,
		CreatedAt:               time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	walk = models.Complete(walk, "2026-03-02", day.AddDate(0, 0, 1), &models.HabitEntry{ID: "e3", Note: strPtr("park")})

	bare := models.Habit{
		ID:                      "h-bare",
		Name:                    "Bare",
		Frequency:               models.FrequencyDaily,
		TargetCompletionsPerDay: 1,
		CreatedAt:               time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	return []models.Habit{water, walk, bare}
}

func TestHabitSyncAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	habits := sampleHabits()

	require.NoError(t, s.Habits().SyncAll(ctx, habits))

	got, err := s.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, habits, got)
}

func TestHabitSyncAllReplacesAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	habits := sampleHabits()
	require.NoError(t, s.Habits().SyncAll(ctx, habits))

	reordered := []models.Habit{habits[2], habits[0]}
	require.NoError(t, s.Habits().SyncAll(ctx, reordered))

	got, err := s.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, reordered, got)
	assert.Equal(t, 2, countRows(t, s, "entries"), "only the water habit entries remain")
}

func TestHabitGetAllExcludesArchived(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	habits := sampleHabits()
	require.NoError(t, s.Habits().SyncAll(ctx, habits))

	got, err := s.Habits().GetAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []models.Habit{habits[0], habits[2]}, got)
}

func TestHabitGetByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	habits := sampleHabits()
	require.NoError(t, s.Habits().SyncAll(ctx, habits))

	h, err := s.Habits().GetByID(ctx, "h-walk")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, habits[1], *h)

	missing, err := s.Habits().GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHabitCorruptSelectedDaysFallsBackToAllWeekdays(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, sampleHabits()))

	_, err := s.DB().Exec("UPDATE habits SET selected_days = '[1, 2,' WHERE id = 'h-walk'")
	require.NoError(t, err)

	h, err := s.Habits().GetByID(ctx, "h-walk")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, h.SelectedDays)
}

func TestHabitCorruptTimestampsFallBackToEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, sampleHabits()))

	_, err := s.DB().Exec("UPDATE completions SET timestamps = 'garbage' WHERE habit_id = 'h-walk'")
	require.NoError(t, err)

	h, err := s.Habits().GetByID(ctx, "h-walk")
	require.NoError(t, err)
	c := h.Completions["2026-03-02"]
	assert.Equal(t, 1, c.CompletionCount)
	assert.Nil(t, c.Timestamps)
	assert.Len(t, c.Entries, 1)
}

func TestDeletingHabitCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, sampleHabits()))

	_, err := s.DB().Exec("DELETE FROM habits WHERE id = 'h-water'")
	require.NoError(t, err)

	assert.Equal(t, 1, countRows(t, s, "completions"))
	assert.Equal(t, 1, countRows(t, s, "entries"))
}

func TestHabitDeleteAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Habits().SyncAll(ctx, sampleHabits()))
	require.NoError(t, s.Habits().DeleteAll(ctx))

	got, err := s.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, countRows(t, s, "completions"))
	assert.Equal(t, 0, countRows(t, s, "entries"))
}

func TestHabitSyncAllFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	habits := sampleHabits()
	require.NoError(t, s.Habits().SyncAll(ctx, habits))

	dup := []models.Habit{habits[0], habits[0]}
	require.Error(t, s.Habits().SyncAll(ctx, dup))

	got, err := s.Habits().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, habits, got)
}

func TestTemplateSyncNeverTouchesDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	defaults, err := s.Templates().GetAll(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, defaults)

	user := models.HabitTemplate{
		ID:        "tpl-user",
		Name:      "Evening wind-down",
		Habits:    []models.TemplateHabit{{Name: "No screens", Frequency: models.FrequencyDaily, TargetCompletionsPerDay: 1}},
		Benefits:  []string{"sleep"},
		Outcomes:  []string{},
		Timeline:  []models.TimelineStep{{Label: "Week 1", Description: "three nights"}},
		CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	hijack := models.HabitTemplate{ID: defaults[0].ID, Name: "overwritten", CreatedAt: user.CreatedAt}
	forgedDefault := models.HabitTemplate{ID: "tpl-forged", Name: "forged", IsDefault: true, CreatedAt: user.CreatedAt}

	require.NoError(t, s.Templates().SyncAll(ctx, []models.HabitTemplate{hijack, user, forgedDefault}))

	got, err := s.Templates().GetByID(ctx, defaults[0].ID)
	require.NoError(t, err)
	assert.Equal(t, defaults[0], *got)

	forged, err := s.Templates().GetByID(ctx, "tpl-forged")
	require.NoError(t, err)
	assert.Nil(t, forged)

	userOnly, err := s.Templates().GetAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []models.HabitTemplate{user}, userOnly)

	require.NoError(t, s.Templates().DeleteAll(ctx))
	all, err := s.Templates().GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, defaults, all)
}
