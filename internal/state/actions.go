package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

var (
	ErrHabitNotFound    = errors.New("habit not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrNothingToUndo    = errors.New("no completion to undo")
	ErrDefaultTemplate  = errors.New("default templates cannot be changed")
)

func changed(aggs ...Aggregate) []Aggregate { return aggs }

func replaceHabit(habits []models.Habit, i int, h models.Habit) []models.Habit {
	out := append([]models.Habit(nil), habits...)
	out[i] = h
	return out
}

func AddHabit(h models.Habit) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		if err := h.Validate(); err != nil {
			return cur, nil, err
		}
		if cur.HabitIndex(h.ID) >= 0 {
			return cur, nil, fmt.Errorf("habit %s already exists", h.ID)
		}
		next := cur
		next.Habits = append(append([]models.Habit(nil), cur.Habits...), h.Clone())
		return next, changed(AggregateHabits), nil
	}
}

// UpdateHabit replaces a habit's configuration. Completion history is kept from the
// stored habit.
func UpdateHabit(h models.Habit) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		if err := h.Validate(); err != nil {
			return cur, nil, err
		}
		i := cur.HabitIndex(h.ID)
		if i < 0 {
			return cur, nil, fmt.Errorf("%w: %s", ErrHabitNotFound, h.ID)
		}
		updated := h.Clone()
		updated.Completions = cur.Habits[i].Clone().Completions
		next := cur
		next.Habits = replaceHabit(cur.Habits, i, updated)
		return next, changed(AggregateHabits), nil
	}
}

func ArchiveHabit(id string, archived bool) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		i := cur.HabitIndex(id)
		if i < 0 {
			return cur, nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		if cur.Habits[i].Archived == archived {
			return cur, nil, nil
		}
		h := cur.Habits[i].Clone()
		h.Archived = archived
		next := cur
		next.Habits = replaceHabit(cur.Habits, i, h)
		return next, changed(AggregateHabits), nil
	}
}

func DeleteHabit(id string) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		i := cur.HabitIndex(id)
		if i < 0 {
			return cur, nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		next := cur
		next.Habits = append(append([]models.Habit(nil), cur.Habits[:i]...), cur.Habits[i+1:]...)
		return next, changed(AggregateHabits), nil
	}
}

// ReorderHabits moves the listed habits to the front in the given order and renumbers
// SortOrder. Habits not listed follow in their previous order.
func ReorderHabits(ids []string) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		listed := make(map[string]bool, len(ids))
		out := make([]models.Habit, 0, len(cur.Habits))
		for _, id := range ids {
			i := cur.HabitIndex(id)
			if i < 0 {
				return cur, nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
			}
			if listed[id] {
				return cur, nil, fmt.Errorf("habit %s listed twice", id)
			}
			listed[id] = true
			out = append(out, cur.Habits[i].Clone())
		}
		for _, h := range cur.Habits {
			if !listed[h.ID] {
				out = append(out, h.Clone())
			}
		}
		for i := range out {
			out[i].SortOrder = i
		}
		next := cur
		next.Habits = out
		return next, changed(AggregateHabits), nil
	}
}

// CompleteHabit records one completion on date, stamped at, and recomputes the streak
// as of today. today is the caller's local calendar day; at is only a timestamp.
func CompleteHabit(id, date, today string, at time.Time, entry *models.HabitEntry) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		if _, err := time.Parse(constants.DateFormat, date); err != nil {
			return cur, nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
		}
		i := cur.HabitIndex(id)
		if i < 0 {
			return cur, nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		h := models.Complete(cur.Habits[i], date, at, entry)
		h.Streak = models.CalculateStreak(h, today, cur.Vacation)
		next := cur
		next.Habits = replaceHabit(cur.Habits, i, h)
		return next, changed(AggregateHabits), nil
	}
}

// UncompleteHabit undoes the latest completion on date and recomputes the streak as of
// today.
func UncompleteHabit(id, date, today string) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		i := cur.HabitIndex(id)
		if i < 0 {
			return cur, nil, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		h, ok := models.Uncomplete(cur.Habits[i], date)
		if !ok {
			return cur, nil, fmt.Errorf("%w: %s on %s", ErrNothingToUndo, id, date)
		}
		h.Streak = models.CalculateStreak(h, today, cur.Vacation)
		next := cur
		next.Habits = replaceHabit(cur.Habits, i, h)
		return next, changed(AggregateHabits), nil
	}
}

func SaveMascot(m models.MascotCustomization) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		m.ID = constants.DefaultMascotID
		next := cur
		next.Mascot = &m
		return next, changed(AggregateMascot), nil
	}
}

func AddTemplate(t models.HabitTemplate) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		for _, existing := range cur.Templates {
			if existing.ID == t.ID {
				return cur, nil, fmt.Errorf("template %s already exists", t.ID)
			}
		}
		t.IsDefault = false
		next := cur
		next.Templates = append(append([]models.HabitTemplate(nil), cur.Templates...), t)
		return next, changed(AggregateTemplates), nil
	}
}

func RemoveTemplate(id string) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		for i, t := range cur.Templates {
			if t.ID != id {
				continue
			}
			if t.IsDefault {
				return cur, nil, fmt.Errorf("%w: %s", ErrDefaultTemplate, id)
			}
			next := cur
			next.Templates = append(append([]models.HabitTemplate(nil), cur.Templates[:i]...), cur.Templates[i+1:]...)
			return next, changed(AggregateTemplates), nil
		}
		return cur, nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
}

func SaveProfile(p models.UserProfile) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		p.ID = constants.DefaultUserProfileID
		next := cur
		next.Profile = &p
		return next, changed(AggregateProfile), nil
	}
}

// SetVacationMode opens or closes the vacation interval at today. Turning it on while
// an interval is open, or off while none is, changes nothing. Habit streaks are
// recomputed because vacation days are skipped.
func SetVacationMode(on bool, today, intervalID string) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		var intervals []models.VacationInterval
		var ok bool
		if on {
			intervals, ok = models.StartVacation(cur.Vacation, intervalID, today)
		} else {
			intervals, ok = models.EndVacation(cur.Vacation, today)
		}
		if !ok {
			return cur, nil, nil
		}
		next := cur
		next.Vacation = intervals
		next.Habits = make([]models.Habit, len(cur.Habits))
		for i, h := range cur.Habits {
			h.Streak = models.CalculateStreak(h, today, intervals)
			next.Habits[i] = h
		}
		return next, changed(AggregateVacation, AggregateHabits), nil
	}
}

func RecordBadgeProgress(badgeID string, delta int, metadata json.RawMessage, at time.Time) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		progress := append([]models.BadgeProgress(nil), cur.BadgeProgress...)
		found := false
		for i, p := range progress {
			if p.BadgeID != badgeID {
				continue
			}
			found = true
			next := models.AdvanceProgress(p.Progress, delta)
			if next == p.Progress && metadata == nil {
				return cur, nil, nil
			}
			p.Progress = next
			if metadata != nil {
				p.Metadata = metadata
			}
			p.UpdatedAt = at.UTC()
			progress[i] = p
		}
		if !found {
			progress = append(progress, models.BadgeProgress{
				BadgeID:   badgeID,
				Progress:  models.AdvanceProgress(0, delta),
				Metadata:  metadata,
				UpdatedAt: at.UTC(),
			})
			sort.Slice(progress, func(i, j int) bool { return progress[i].BadgeID < progress[j].BadgeID })
		}
		next := cur
		next.BadgeProgress = progress
		return next, changed(AggregateBadges), nil
	}
}

func UnlockBadge(badgeID string, at time.Time) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		for _, u := range cur.UnlockedBadges {
			if u.BadgeID == badgeID {
				return cur, nil, nil
			}
		}
		unlocked := append(append([]models.UnlockedBadge(nil), cur.UnlockedBadges...), models.UnlockedBadge{
			BadgeID:    badgeID,
			UnlockedAt: at.UTC(),
		})
		sort.Slice(unlocked, func(i, j int) bool { return unlocked[i].BadgeID < unlocked[j].BadgeID })
		next := cur
		next.UnlockedBadges = unlocked
		return next, changed(AggregateBadges), nil
	}
}

func MarkBadgeSeen(badgeID string) Action {
	return func(cur models.State) (models.State, []Aggregate, error) {
		for i, u := range cur.UnlockedBadges {
			if u.BadgeID != badgeID {
				continue
			}
			if u.Seen {
				return cur, nil, nil
			}
			unlocked := append([]models.UnlockedBadge(nil), cur.UnlockedBadges...)
			unlocked[i].Seen = true
			next := cur
			next.UnlockedBadges = unlocked
			return next, changed(AggregateBadges), nil
		}
		return cur, nil, fmt.Errorf("badge %s is not unlocked", badgeID)
	}
}
