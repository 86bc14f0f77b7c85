package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

func apply(t *testing.T, cur models.State, a Action) (models.State, []Aggregate) {
	t.Helper()
	next, aggs, err := a(cur)
	require.NoError(t, err)
	return next, aggs
}

func TestAddHabitValidatesAndRejectsDuplicates(t *testing.T) {
	cur := models.EmptyState()
	next, aggs := apply(t, cur, AddHabit(habit("h1")))
	assert.Equal(t, []Aggregate{AggregateHabits}, aggs)
	assert.Len(t, next.Habits, 1)
	assert.Empty(t, cur.Habits)

	_, _, err := AddHabit(habit("h1"))(next)
	assert.Error(t, err)

	bad := habit("h2")
	bad.TargetCompletionsPerDay = 0
	_, _, err = AddHabit(bad)(next)
	assert.Error(t, err)
}

func TestUpdateHabitKeepsHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cur, _ := apply(t, models.EmptyState(), AddHabit(habit("h1")))
	cur, _ = apply(t, cur, CompleteHabit("h1", "2026-03-01", "2026-03-01", at, nil))

	edit := habit("h1")
	edit.Name = "Renamed"
	next, _ := apply(t, cur, UpdateHabit(edit))

	assert.Equal(t, "Renamed", next.Habits[0].Name)
	assert.Equal(t, cur.Habits[0].Completions, next.Habits[0].Completions)

	_, _, err := UpdateHabit(habit("ghost"))(cur)
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestCompleteAndUncompleteUpdateStreak(t *testing.T) {
	cur, _ := apply(t, models.EmptyState(), AddHabit(habit("h1")))
	day1 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	cur, _ = apply(t, cur, CompleteHabit("h1", "2026-03-01", "2026-03-01", day1, nil))
	cur, _ = apply(t, cur, CompleteHabit("h1", "2026-03-02", "2026-03-02", day2, nil))
	assert.Equal(t, 2, cur.Habits[0].Streak)

	cur, _ = apply(t, cur, UncompleteHabit("h1", "2026-03-02", "2026-03-02"))
	assert.Equal(t, 1, cur.Habits[0].Streak)

	_, _, err := UncompleteHabit("h1", "2026-03-02", "2026-03-02")(cur)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, _, err = CompleteHabit("h1", "03/02/2026", "2026-03-02", day2, nil)(cur)
	assert.Error(t, err)
}

func TestStreakUsesLocalDayNotTimestampDay(t *testing.T) {
	cur, _ := apply(t, models.EmptyState(), AddHabit(habit("h1")))
	// 08:00 in Tokyo on March 9 is still March 8 in UTC.
	tokyo := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 3, 9, 8, 0, 0, 0, tokyo).UTC()

	cur, _ = apply(t, cur, CompleteHabit("h1", "2026-03-09", "2026-03-09", at, nil))
	assert.Equal(t, 1, cur.Habits[0].Streak)

	cur, _ = apply(t, cur, CompleteHabit("h1", "2026-03-08", "2026-03-09", at, nil))
	assert.Equal(t, 2, cur.Habits[0].Streak)

	cur, _ = apply(t, cur, UncompleteHabit("h1", "2026-03-09", "2026-03-09"))
	assert.Equal(t, 1, cur.Habits[0].Streak)
}

func TestArchiveAndDeleteHabit(t *testing.T) {
	cur, _ := apply(t, models.EmptyState(), AddHabit(habit("h1")))
	cur, _ = apply(t, cur, AddHabit(habit("h2")))

	next, aggs := apply(t, cur, ArchiveHabit("h1", false))
	assert.Nil(t, aggs)
	assert.Equal(t, cur, next)

	next, _ = apply(t, cur, ArchiveHabit("h1", true))
	assert.True(t, next.Habits[0].Archived)
	assert.False(t, cur.Habits[0].Archived)

	next, _ = apply(t, next, DeleteHabit("h1"))
	require.Len(t, next.Habits, 1)
	assert.Equal(t, "h2", next.Habits[0].ID)
}

func TestReorderHabits(t *testing.T) {
	cur := models.EmptyState()
	for _, id := range []string{"a", "b", "c", "d"} {
		cur, _ = apply(t, cur, AddHabit(habit(id)))
	}

	next, _ := apply(t, cur, ReorderHabits([]string{"c", "a"}))
	var ids []string
	for i, h := range next.Habits {
		ids = append(ids, h.ID)
		assert.Equal(t, i, h.SortOrder)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)

	_, _, err := ReorderHabits([]string{"a", "a"})(cur)
	assert.Error(t, err)
	_, _, err = ReorderHabits([]string{"zzz"})(cur)
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestTemplates(t *testing.T) {
	cur := models.EmptyState()
	cur.Templates = []models.HabitTemplate{{ID: "tpl-default", IsDefault: true}}

	next, _ := apply(t, cur, AddTemplate(models.HabitTemplate{ID: "tpl-mine", IsDefault: true}))
	require.Len(t, next.Templates, 2)
	assert.False(t, next.Templates[1].IsDefault)

	_, _, err := RemoveTemplate("tpl-default")(next)
	assert.ErrorIs(t, err, ErrDefaultTemplate)
	_, _, err = RemoveTemplate("nope")(next)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	next, _ = apply(t, next, RemoveTemplate("tpl-mine"))
	assert.Len(t, next.Templates, 1)
}

func TestSetVacationModeIsIdempotent(t *testing.T) {
	cur := models.EmptyState()
	cur, aggs := apply(t, cur, SetVacationMode(true, "2026-06-01", "v1"))
	assert.ElementsMatch(t, []Aggregate{AggregateVacation, AggregateHabits}, aggs)

	_, aggs = apply(t, cur, SetVacationMode(true, "2026-06-02", "v2"))
	assert.Nil(t, aggs)

	closed, _ := apply(t, cur, SetVacationMode(false, "2026-06-05", ""))
	require.Len(t, closed.Vacation, 1)
	assert.Equal(t, "2026-06-05", *closed.Vacation[0].EndDate)
}

func TestBadgeActions(t *testing.T) {
	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cur := models.EmptyState()

	cur, _ = apply(t, cur, RecordBadgeProgress("zeta", 2, nil, at))
	cur, _ = apply(t, cur, RecordBadgeProgress("alpha", 1, json.RawMessage(`{"x":1}`), at))
	cur, _ = apply(t, cur, RecordBadgeProgress("zeta", 3, nil, at))
	require.Len(t, cur.BadgeProgress, 2)
	assert.Equal(t, "alpha", cur.BadgeProgress[0].BadgeID)
	assert.Equal(t, 5, cur.BadgeProgress[1].Progress)

	_, aggs := apply(t, cur, RecordBadgeProgress("zeta", -10, nil, at))
	assert.Nil(t, aggs)

	cur, _ = apply(t, cur, UnlockBadge("zeta", at))
	_, aggs = apply(t, cur, UnlockBadge("zeta", at.Add(time.Hour)))
	assert.Nil(t, aggs)

	cur, _ = apply(t, cur, MarkBadgeSeen("zeta"))
	assert.True(t, cur.UnlockedBadges[0].Seen)
	_, _, err := MarkBadgeSeen("alpha")(cur)
	assert.Error(t, err)
}

func TestSingletonActionsForceIDs(t *testing.T) {
	cur, _ := apply(t, models.EmptyState(), SaveProfile(models.UserProfile{ID: "other", DisplayName: "A"}))
	assert.Equal(t, "default", cur.Profile.ID)
	cur, _ = apply(t, cur, SaveMascot(models.MascotCustomization{ID: "other", Name: "Pip"}))
	assert.Equal(t, "default", cur.Mascot.ID)
}
