package models

import (
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
)

// maxStreakLookback bounds the backwards walk when a habit has no usable creation date.
const maxStreakLookback = 3660

// Complete records one completion of h on date. The completion is created on first use
// with the habit's current target. A non-nil entry is appended alongside the timestamp.
func Complete(h Habit, date string, at time.Time, entry *HabitEntry) Habit {
	out := h.Clone()
	if out.Completions == nil {
		out.Completions = make(map[string]DailyCompletion)
	}
	c, ok := out.Completions[date]
	if !ok {
		c = DailyCompletion{
			Date:        date,
			TargetCount: h.TargetCompletionsPerDay,
		}
	}
	c.CompletionCount++
	c.Timestamps = append(c.Timestamps, at.UTC())
	if entry != nil {
		e := *entry
		e.Date = date
		if e.Timestamp.IsZero() {
			e.Timestamp = at
		}
		e.Timestamp = e.Timestamp.UTC()
		c.Entries = append(c.Entries, e)
	}
	out.Completions[date] = c
	return out
}

// Uncomplete undoes the most recent completion of h on date. The latest timestamp and
// the latest entry are removed together. The completion disappears when its count hits 0.
// The second return value is false when there was nothing to undo.
func Uncomplete(h Habit, date string) (Habit, bool) {
	c, ok := h.Completions[date]
	if !ok || c.CompletionCount == 0 {
		return h, false
	}
	out := h.Clone()
	c = out.Completions[date]
	c.CompletionCount--
	if n := len(c.Timestamps); n > 0 {
		c.Timestamps = c.Timestamps[:n-1]
	}
	if n := len(c.Entries); n > 0 {
		c.Entries = c.Entries[:n-1]
	}
	if c.CompletionCount <= 0 {
		delete(out.Completions, date)
		if len(out.Completions) == 0 {
			out.Completions = nil
		}
	} else {
		out.Completions[date] = c
	}
	return out, true
}

// IsScheduled reports whether h is due on the given day. An empty day set means every day.
func IsScheduled(h Habit, day time.Time) bool {
	if len(h.SelectedDays) == 0 {
		return true
	}
	wd := int(day.Weekday())
	for _, d := range h.SelectedDays {
		if d == wd {
			return true
		}
	}
	return false
}

// CalculateStreak counts consecutive scheduled days ending at today on which the target was met.
// Unscheduled days and vacation days neither extend nor break the streak. An unfinished
// today does not break it either.
func CalculateStreak(h Habit, today string, vacations []VacationInterval) int {
	day, err := time.Parse(constants.DateFormat, today)
	if err != nil {
		return 0
	}
	created := time.Time{}
	if !h.CreatedAt.IsZero() {
		y, m, d := h.CreatedAt.UTC().Date()
		created = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	streak := 0
	for i := 0; i < maxStreakLookback; i++ {
		if !created.IsZero() && day.Before(created) {
			break
		}
		date := day.Format(constants.DateFormat)
		if IsScheduled(h, day) && !OnVacation(vacations, date) {
			if c, ok := h.Completions[date]; ok && c.IsComplete() {
				streak++
			} else if date != today {
				break
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
