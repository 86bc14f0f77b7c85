package models

import "time"

// TemplateHabit is the habit configuration a template installs.
type TemplateHabit struct {
	Name                    string    `json:"name" yaml:"name"`
	Emoji                   string    `json:"emoji" yaml:"emoji"`
	Category                string    `json:"category" yaml:"category"`
	Color                   string    `json:"color" yaml:"color"`
	Frequency               Frequency `json:"frequency" yaml:"frequency"`
	TargetCompletionsPerDay int       `json:"targetCompletionsPerDay" yaml:"target_completions_per_day"`
	SelectedDays            []int     `json:"selectedDays" yaml:"selected_days"`
}

type TimelineStep struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}

// HabitTemplate bundles habits with marketing copy. Default templates ship with the app
// and are never deleted or overwritten by a user-template sync.
type HabitTemplate struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	Emoji       string          `json:"emoji" yaml:"emoji"`
	Habits      []TemplateHabit `json:"habits" yaml:"habits"`
	Benefits    []string        `json:"benefits" yaml:"benefits"`
	Outcomes    []string        `json:"outcomes" yaml:"outcomes"`
	Timeline    []TimelineStep  `json:"timeline" yaml:"timeline"`
	IsDefault   bool            `json:"isDefault" yaml:"is_default"`
	CreatedAt   time.Time       `json:"createdAt" yaml:"-"`
}

// Instantiate turns a template habit into a concrete habit with the given id.
func (t TemplateHabit) Instantiate(id string, sortOrder int, now time.Time) Habit {
	days := t.SelectedDays
	if len(days) == 0 {
		days = AllWeekdays
	}
	target := t.TargetCompletionsPerDay
	if target < 1 {
		target = 1
	}
	freq := t.Frequency
	if freq == "" {
		freq = FrequencyDaily
	}
	return Habit{
		ID:                      id,
		Name:                    t.Name,
		Emoji:                   t.Emoji,
		Category:                t.Category,
		Color:                   t.Color,
		Frequency:               freq,
		TargetCompletionsPerDay: target,
		SelectedDays:            append([]int(nil), days...),
		SortOrder:               sortOrder,
		CreatedAt:               now.UTC(),
	}
}
