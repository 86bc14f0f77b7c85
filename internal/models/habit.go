package models

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// AllWeekdays is the schedule used when a habit's selected days are absent or unreadable.
var AllWeekdays = []int{0, 1, 2, 3, 4, 5, 6}

type Reminder struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time,omitempty"` // HH:MM format
}

// Habit is the aggregate root. Completions are keyed by YYYY-MM-DD.
type Habit struct {
	ID                      string                     `json:"id"`
	Name                    string                     `json:"name"`
	Emoji                   string                     `json:"emoji"`
	Streak                  int                        `json:"streak"`
	Category                string                     `json:"category"`
	Color                   string                     `json:"color"`
	Frequency               Frequency                  `json:"frequency"`
	TargetCompletionsPerDay int                        `json:"targetCompletionsPerDay"`
	SelectedDays            []int                      `json:"selectedDays"`
	Reminder                Reminder                   `json:"reminder"`
	Archived                bool                       `json:"archived"`
	SortOrder               int                        `json:"sortOrder"`
	CreatedAt               time.Time                  `json:"createdAt"`
	Completions             map[string]DailyCompletion `json:"completions,omitempty"`
}

// DailyCompletion holds one habit's progress for one calendar day.
// TargetCount is captured when the completion is created and never re-derived.
type DailyCompletion struct {
	Date            string       `json:"date"`
	CompletionCount int          `json:"completionCount"`
	TargetCount     int          `json:"targetCount"`
	Timestamps      []time.Time  `json:"timestamps"`
	Entries         []HabitEntry `json:"entries,omitempty"`
}

type HabitEntry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Mood      *string   `json:"mood,omitempty"`
	Note      *string   `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields a habit needs before it is accepted into state.
func (h *Habit) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return fmt.Errorf("habit id cannot be empty")
	}
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	switch h.Frequency {
	case FrequencyDaily, FrequencyWeekly:
	default:
		return fmt.Errorf("invalid frequency %q (expected daily or weekly)", h.Frequency)
	}
	if h.TargetCompletionsPerDay < 1 {
		return fmt.Errorf("target completions per day must be at least 1, got %d", h.TargetCompletionsPerDay)
	}
	seen := make(map[int]bool, len(h.SelectedDays))
	for _, d := range h.SelectedDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid weekday %d (expected 0-6)", d)
		}
		if seen[d] {
			return fmt.Errorf("duplicate weekday %d", d)
		}
		seen[d] = true
	}
	if h.Reminder.Enabled {
		if _, err := time.Parse("15:04", h.Reminder.Time); err != nil {
			return fmt.Errorf("invalid reminder time %q (expected HH:MM)", h.Reminder.Time)
		}
	}
	return nil
}

// Clone returns a deep copy so mutations never alias state held elsewhere.
func (h Habit) Clone() Habit {
	out := h
	if h.SelectedDays != nil {
		out.SelectedDays = append([]int(nil), h.SelectedDays...)
	}
	if h.Completions != nil {
		out.Completions = make(map[string]DailyCompletion, len(h.Completions))
		for date, c := range h.Completions {
			out.Completions[date] = c.clone()
		}
	}
	return out
}

func (c DailyCompletion) clone() DailyCompletion {
	out := c
	if c.Timestamps != nil {
		out.Timestamps = append([]time.Time(nil), c.Timestamps...)
	}
	if c.Entries != nil {
		out.Entries = append([]HabitEntry(nil), c.Entries...)
	}
	return out
}

// IsComplete reports whether the day's count met the target captured for it.
func (c DailyCompletion) IsComplete() bool {
	return c.TargetCount > 0 && c.CompletionCount >= c.TargetCount
}
