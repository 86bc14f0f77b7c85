package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/jsoncol"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

// HabitRepo stores habits flat across habits, completions and entries, and nests them
// again on read.
type HabitRepo struct {
	s *Store
}

const habitColumns = `id, name, emoji, streak, category, color, frequency, target_completions_per_day,
	selected_days, reminder_enabled, reminder_time, archived, sort_order, created_at`

func (r *HabitRepo) GetAll(ctx context.Context, includeArchived bool) ([]models.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits"
	if !includeArchived {
		query += " WHERE archived = 0"
	}
	query += " ORDER BY position, id"

	habits, err := queryHabits(ctx, r.s.db, query)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "habits.getAll", err)
	}
	completions, err := queryCompletions(ctx, r.s.db, "")
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "habits.getAll", err)
	}
	entries, err := queryEntries(ctx, r.s.db, "")
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "habits.getAll", err)
	}
	return models.NestHabits(habits, completions, entries), nil
}

func (r *HabitRepo) GetByID(ctx context.Context, id string) (*models.Habit, error) {
	habits, err := queryHabits(ctx, r.s.db, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "habits.getByID", err)
	}
	if len(habits) == 0 {
		return nil, nil
	}
	completions, err := queryCompletions(ctx, r.s.db, id)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "habits.getByID", err)
	}
	entries, err := queryEntries(ctx, r.s.db, id)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, "habits.getByID", err)
	}
	nested := models.NestHabits(habits, completions, entries)
	return &nested[0], nil
}

// SyncAll is a full replace: every habit, completion and entry row is deleted and the
// given collection is written back. Slice order is kept in the position column.
func (r *HabitRepo) SyncAll(ctx context.Context, habits []models.Habit) error {
	flat, completions, entries := models.FlattenHabits(habits)
	return r.s.withTx(ctx, "habits.syncAll", func(tx *sql.Tx) error {
		if err := deleteHabitTables(ctx, tx); err != nil {
			return err
		}
		return insertHabitRows(ctx, tx, flat, completions, entries)
	})
}

func (r *HabitRepo) DeleteAll(ctx context.Context) error {
	return r.s.withTx(ctx, "habits.deleteAll", func(tx *sql.Tx) error {
		return deleteHabitTables(ctx, tx)
	})
}

func deleteHabitTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"entries", "completions", "habits"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertHabitRows(ctx context.Context, tx *sql.Tx, habits []models.Habit, completions []models.CompletionRecord, entries []models.EntryRecord) error {
	for i, h := range habits {
		if err := insertHabit(ctx, tx, h, i, false); err != nil {
			return err
		}
	}
	for _, c := range completions {
		if err := insertCompletion(ctx, tx, c); err != nil {
			return err
		}
	}
	type key struct{ habitID, date string }
	positions := make(map[key]int)
	for _, e := range entries {
		k := key{e.HabitID, e.Date}
		if err := insertEntry(ctx, tx, e, positions[k]); err != nil {
			return err
		}
		positions[k]++
	}
	return nil
}

func insertHabit(ctx context.Context, q querier, h models.Habit, position int, orIgnore bool) error {
	selectedDays, err := jsoncol.Encode(h.SelectedDays)
	if err != nil {
		return err
	}
	verb := "INSERT"
	if orIgnore {
		verb = "INSERT OR IGNORE"
	}
	_, err = q.ExecContext(ctx, verb+` INTO habits (`+habitColumns+`, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Name, h.Emoji, h.Streak, h.Category, h.Color, string(h.Frequency), h.TargetCompletionsPerDay,
		selectedDays, boolToInt(h.Reminder.Enabled), h.Reminder.Time, boolToInt(h.Archived), h.SortOrder,
		formatTime(h.CreatedAt), position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit %s: %w", h.ID, err)
	}
	return nil
}

func insertCompletion(ctx context.Context, q querier, c models.CompletionRecord) error {
	timestamps, err := jsoncol.Encode(utcTimes(c.Timestamps))
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO completions (habit_id, date, completion_count, target_count, timestamps)
		VALUES (?, ?, ?, ?, ?)`,
		c.HabitID, c.Date, c.CompletionCount, c.TargetCount, timestamps,
	)
	if err != nil {
		return fmt.Errorf("failed to insert completion %s/%s: %w", c.HabitID, c.Date, err)
	}
	return nil
}

func insertEntry(ctx context.Context, q querier, e models.EntryRecord, position int) error {
	_, err := q.ExecContext(ctx, `INSERT INTO entries (id, habit_id, date, position, mood, note, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HabitID, e.Date, position, nullString(e.Mood), nullString(e.Note), formatTime(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
	}
	return nil
}

func utcTimes(ts []time.Time) []time.Time {
	if ts == nil {
		return nil
	}
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = t.UTC()
	}
	return out
}

func queryHabits(ctx context.Context, q querier, query string, args ...any) ([]models.Habit, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		var h models.Habit
		var frequency, selectedDays, createdAt string
		var reminderEnabled, archived int
		if err := rows.Scan(&h.ID, &h.Name, &h.Emoji, &h.Streak, &h.Category, &h.Color, &frequency,
			&h.TargetCompletionsPerDay, &selectedDays, &reminderEnabled, &h.Reminder.Time, &archived,
			&h.SortOrder, &createdAt); err != nil {
			return nil, err
		}
		h.Frequency = models.Frequency(frequency)
		h.Reminder.Enabled = reminderEnabled == 1
		h.Archived = archived == 1
		h.SelectedDays = jsoncol.Decode[[]int](selectedDays).
			OrLog("habits.selected_days", append([]int(nil), models.AllWeekdays...))
		if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// queryCompletions reads every completion, or only those of habitID when it is set.
func queryCompletions(ctx context.Context, q querier, habitID string) ([]models.CompletionRecord, error) {
	query := "SELECT habit_id, date, completion_count, target_count, timestamps FROM completions"
	var args []any
	if habitID != "" {
		query += " WHERE habit_id = ?"
		args = append(args, habitID)
	}
	query += " ORDER BY habit_id, date"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []models.CompletionRecord{}
	for rows.Next() {
		var c models.CompletionRecord
		var timestamps string
		if err := rows.Scan(&c.HabitID, &c.Date, &c.CompletionCount, &c.TargetCount, &timestamps); err != nil {
			return nil, err
		}
		c.Timestamps = jsoncol.Decode[[]time.Time](timestamps).OrLog("completions.timestamps", nil)
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// queryEntries reads entries in their stored order within each (habit, date).
func queryEntries(ctx context.Context, q querier, habitID string) ([]models.EntryRecord, error) {
	query := "SELECT id, habit_id, date, mood, note, timestamp FROM entries"
	var args []any
	if habitID != "" {
		query += " WHERE habit_id = ?"
		args = append(args, habitID)
	}
	query += " ORDER BY habit_id, date, position"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.EntryRecord{}
	for rows.Next() {
		var e models.EntryRecord
		var mood, note sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.HabitID, &e.Date, &mood, &note, &ts); err != nil {
			return nil, err
		}
		e.Mood = stringPtr(mood)
		e.Note = stringPtr(note)
		if e.Timestamp, err = parseTime("timestamp", ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
