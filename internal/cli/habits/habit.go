package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/cli"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/state"
)

type HabitCmd struct {
	Add     HabitAddCmd     `cmd:"" help:"Add a new habit."`
	List    HabitListCmd    `cmd:"" help:"List habits." default:"1"`
	Done    HabitDoneCmd    `cmd:"" help:"Record a completion for today or --date."`
	Undo    HabitUndoCmd    `cmd:"" help:"Undo the latest completion on a day."`
	Archive HabitArchiveCmd `cmd:"" help:"Archive or unarchive a habit."`
	Delete  HabitDeleteCmd  `cmd:"" help:"Delete a habit and its history."`
	Reorder HabitReorderCmd `cmd:"" help:"Set the display order of habits."`
}

type HabitAddCmd struct {
	Name      string `arg:"" help:"Name of the habit."`
	Emoji     string `help:"Emoji shown next to the habit." default:"✅"`
	Category  string `help:"Category label." default:"general"`
	Color     string `help:"Display color." default:"#4CAF50"`
	Frequency string `help:"daily or weekly." enum:"daily,weekly" default:"daily"`
	Target    int    `help:"Completions needed per day." default:"1"`
	Days      string `help:"Comma-separated weekdays (e.g. mon,wed,fri). Empty means every day."`
	Reminder  string `help:"Reminder time in HH:MM format."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	days, err := cli.ParseWeekdays(c.Days)
	if err != nil {
		return err
	}

	st := ctx.Service.State()
	h := models.Habit{
		ID:                      uuid.New().String(),
		Name:                    strings.TrimSpace(c.Name),
		Emoji:                   c.Emoji,
		Category:                c.Category,
		Color:                   c.Color,
		Frequency:               models.Frequency(c.Frequency),
		TargetCompletionsPerDay: c.Target,
		SelectedDays:            days,
		Reminder:                models.Reminder{Enabled: c.Reminder != "", Time: c.Reminder},
		SortOrder:               len(st.Habits),
		CreatedAt:               ctx.Now().UTC(),
	}
	if err := ctx.Service.Apply(context.Background(), state.AddHabit(h)); err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}

	cli.OK("Added habit %s %s (%s)", h.Emoji, h.Name, h.ID)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	st := ctx.Service.State()
	today := ctx.Today()

	shown := 0
	fmt.Println(cli.HeadStyle.Render("Habits for " + today))
	for _, h := range st.Habits {
		if h.Archived && !c.Archived {
			continue
		}
		shown++
		fmt.Println(formatHabit(h, today, st.Vacation))
	}
	if shown == 0 {
		fmt.Println("No habits yet. Use 'habitvault habit add' to create one.")
	}
	if models.OnVacation(st.Vacation, today) {
		fmt.Println()
		cli.Warn("Vacation mode is on; streaks are paused.")
	}
	return nil
}

func formatHabit(h models.Habit, today string, vacation []models.VacationInterval) string {
	c := h.Completions[today]
	mark := "[ ]"
	if c.IsComplete() {
		mark = "[x]"
	}
	line := fmt.Sprintf("%s %s %s  %d/%d  streak %d", mark, h.Emoji, h.Name,
		c.CompletionCount, h.TargetCompletionsPerDay, models.CalculateStreak(h, today, vacation))
	meta := fmt.Sprintf("  %s · %s · %s", h.Category, h.Frequency, cli.FormatWeekdays(h.SelectedDays))
	if h.Archived {
		meta += " · archived"
	}
	return line + cli.Muted(meta+"  "+h.ID)
}

// resolve finds a habit by id, id prefix or case-insensitive name.
func resolve(st models.State, ref string) (models.Habit, error) {
	var matches []models.Habit
	for _, h := range st.Habits {
		if h.ID == ref {
			return h, nil
		}
		if strings.HasPrefix(h.ID, ref) || strings.EqualFold(h.Name, ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("%w: %s", state.ErrHabitNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("%q matches %d habits; use the full id", ref, len(matches))
	}
}

type HabitDoneCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
	Date  string `help:"Day to record (YYYY-MM-DD). Defaults to today."`
	Mood  string `help:"Mood to attach as a journal entry."`
	Note  string `help:"Note to attach as a journal entry."`
}

func (c *HabitDoneCmd) Run(ctx *cli.Context) error {
	h, err := resolve(ctx.Service.State(), c.Habit)
	if err != nil {
		return err
	}
	date := c.Date
	if date == "" {
		date = ctx.Today()
	}
	at := ctx.Now().UTC()

	var entry *models.HabitEntry
	if c.Mood != "" || c.Note != "" {
		entry = &models.HabitEntry{ID: uuid.New().String(), Date: date, Timestamp: at}
		if c.Mood != "" {
			entry.Mood = &c.Mood
		}
		if c.Note != "" {
			entry.Note = &c.Note
		}
	}

	if err := ctx.Service.Apply(context.Background(), state.CompleteHabit(h.ID, date, ctx.Today(), at, entry)); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	st := ctx.Service.State()
	updated := st.Habits[st.HabitIndex(h.ID)]
	comp := updated.Completions[date]
	cli.OK("%s %s: %d/%d on %s (streak %d)", updated.Emoji, updated.Name,
		comp.CompletionCount, comp.TargetCount, date, updated.Streak)
	return nil
}

type HabitUndoCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
	Date  string `help:"Day to undo (YYYY-MM-DD). Defaults to today."`
}

func (c *HabitUndoCmd) Run(ctx *cli.Context) error {
	h, err := resolve(ctx.Service.State(), c.Habit)
	if err != nil {
		return err
	}
	date := c.Date
	if date == "" {
		date = ctx.Today()
	}

	err = ctx.Service.Apply(context.Background(), state.UncompleteHabit(h.ID, date, ctx.Today()))
	if errors.Is(err, state.ErrNothingToUndo) {
		fmt.Printf("Nothing to undo for %s on %s.\n", h.Name, date)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to undo completion: %w", err)
	}
	cli.OK("Removed the latest completion of %s on %s", h.Name, date)
	return nil
}

type HabitArchiveCmd struct {
	Habit   string `arg:"" help:"Habit id, id prefix or name."`
	Restore bool   `help:"Unarchive instead."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	h, err := resolve(ctx.Service.State(), c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.Service.Apply(context.Background(), state.ArchiveHabit(h.ID, !c.Restore)); err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if c.Restore {
		cli.OK("Unarchived %s", h.Name)
	} else {
		cli.OK("Archived %s", h.Name)
	}
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit id, id prefix or name."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	h, err := resolve(ctx.Service.State(), c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.Service.Apply(context.Background(), state.DeleteHabit(h.ID)); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	cli.OK("Deleted %s and its history", h.Name)
	return nil
}

type HabitReorderCmd struct {
	Habits []string `arg:"" help:"Habit ids, id prefixes or names in the new order."`
}

func (c *HabitReorderCmd) Run(ctx *cli.Context) error {
	st := ctx.Service.State()
	ids := make([]string, 0, len(c.Habits))
	for _, ref := range c.Habits {
		h, err := resolve(st, ref)
		if err != nil {
			return err
		}
		ids = append(ids, h.ID)
	}
	if err := ctx.Service.Apply(context.Background(), state.ReorderHabits(ids)); err != nil {
		return fmt.Errorf("failed to reorder habits: %w", err)
	}
	cli.OK("Reordered %d habits", len(ids))
	return nil
}
