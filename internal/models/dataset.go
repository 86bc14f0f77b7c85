package models

import (
	"encoding/json"
	"sort"
	"time"
)

// CompletionRecord is the flat form of a DailyCompletion, one per (habit, date).
type CompletionRecord struct {
	HabitID         string      `json:"habitId"`
	Date            string      `json:"date"`
	CompletionCount int         `json:"completionCount"`
	TargetCount     int         `json:"targetCount"`
	Timestamps      []time.Time `json:"timestamps"`
}

// EntryRecord is the flat form of a HabitEntry. Order within a (habit, date) is slice order.
type EntryRecord struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	Date      string    `json:"date"`
	Mood      *string   `json:"mood,omitempty"`
	Note      *string   `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dataset is every persisted aggregate in flat form. It is what an export reads and
// what a restore writes.
type Dataset struct {
	Habits         []Habit                    `json:"habits"`
	Completions    []CompletionRecord         `json:"completions"`
	Entries        []EntryRecord              `json:"entries"`
	Templates      []HabitTemplate            `json:"templates"`
	Vacation       []VacationInterval         `json:"vacationIntervals"`
	UserProfile    *UserProfile               `json:"userProfile"`
	Mascot         *MascotCustomization       `json:"mascotCustomization"`
	Settings       map[string]json.RawMessage `json:"settings"`
	Metadata       map[string]json.RawMessage `json:"metadata"`
	BadgeProgress  []BadgeProgress            `json:"badgeProgress,omitempty"`
	UnlockedBadges []UnlockedBadge            `json:"unlockedBadges,omitempty"`
}

// RestoreCounts reports how many rows a restore wrote per aggregate.
type RestoreCounts struct {
	Habits         int  `json:"restoredHabits"`
	Completions    int  `json:"restoredCompletions"`
	Entries        int  `json:"restoredEntries"`
	Templates      int  `json:"restoredTemplates"`
	Vacation       int  `json:"restoredVacationIntervals"`
	BadgeProgress  int  `json:"restoredBadgeProgress"`
	UnlockedBadges int  `json:"restoredUnlockedBadges"`
	Settings       int  `json:"restoredSettings"`
	Metadata       int  `json:"restoredMetadata"`
	Profile        bool `json:"restoredUserProfile"`
	Mascot         bool `json:"restoredMascotCustomization"`
}

// FlattenHabits splits nested habits into habit rows without completions, completion
// rows and entry rows. Completion dates are emitted in ascending order.
func FlattenHabits(habits []Habit) ([]Habit, []CompletionRecord, []EntryRecord) {
	flat := make([]Habit, 0, len(habits))
	completions := []CompletionRecord{}
	entries := []EntryRecord{}
	for _, h := range habits {
		dates := make([]string, 0, len(h.Completions))
		for date := range h.Completions {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		for _, date := range dates {
			c := h.Completions[date]
			completions = append(completions, CompletionRecord{
				HabitID:         h.ID,
				Date:            date,
				CompletionCount: c.CompletionCount,
				TargetCount:     c.TargetCount,
				Timestamps:      c.Timestamps,
			})
			for _, e := range c.Entries {
				entries = append(entries, EntryRecord{
					ID:        e.ID,
					HabitID:   h.ID,
					Date:      date,
					Mood:      e.Mood,
					Note:      e.Note,
					Timestamp: e.Timestamp,
				})
			}
		}
		h.Completions = nil
		flat = append(flat, h)
	}
	return flat, completions, entries
}

// NestHabits rebuilds the nested habit shape, grouping completions by habit id and
// entries by (habit id, date). Records that reference a missing parent are dropped.
func NestHabits(habits []Habit, completions []CompletionRecord, entries []EntryRecord) []Habit {
	type key struct{ habitID, date string }
	byDay := make(map[key][]HabitEntry)
	for _, e := range entries {
		k := key{e.HabitID, e.Date}
		byDay[k] = append(byDay[k], HabitEntry{
			ID:        e.ID,
			Date:      e.Date,
			Mood:      e.Mood,
			Note:      e.Note,
			Timestamp: e.Timestamp,
		})
	}

	byHabit := make(map[string]map[string]DailyCompletion)
	for _, c := range completions {
		m := byHabit[c.HabitID]
		if m == nil {
			m = make(map[string]DailyCompletion)
			byHabit[c.HabitID] = m
		}
		m[c.Date] = DailyCompletion{
			Date:            c.Date,
			CompletionCount: c.CompletionCount,
			TargetCount:     c.TargetCount,
			Timestamps:      c.Timestamps,
			Entries:         byDay[key{c.HabitID, c.Date}],
		}
	}

	out := make([]Habit, 0, len(habits))
	for _, h := range habits {
		h.Completions = byHabit[h.ID]
		out = append(out, h)
	}
	return out
}
