package models

// State is the whole in-memory domain. Values held in a State are treated as immutable:
// changes build new slices instead of editing shared ones.
type State struct {
	Habits         []Habit
	Templates      []HabitTemplate
	Profile        *UserProfile
	Vacation       []VacationInterval
	Mascot         *MascotCustomization
	BadgeProgress  []BadgeProgress
	UnlockedBadges []UnlockedBadge
}

// EmptyState is what the app runs on when nothing could be loaded.
func EmptyState() State {
	return State{
		Habits:         []Habit{},
		Templates:      []HabitTemplate{},
		Vacation:       []VacationInterval{},
		BadgeProgress:  []BadgeProgress{},
		UnlockedBadges: []UnlockedBadge{},
	}
}

// HabitIndex returns the position of the habit with id, or -1.
func (s State) HabitIndex(id string) int {
	for i, h := range s.Habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}
