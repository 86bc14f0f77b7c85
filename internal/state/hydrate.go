package state

import (
	"context"
	"fmt"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
)

// Status is the hydration state machine: Uninitialized -> Hydrating -> Hydrated | Failed.
type Status int32

const (
	StatusUninitialized Status = iota
	StatusHydrating
	StatusHydrated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusHydrating:
		return "hydrating"
	case StatusHydrated:
		return "hydrated"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

func (s *Store) Status() Status { return Status(s.status.Load()) }

func (s *Store) setStatus(st Status) { s.status.Store(int32(st)) }

// Load reads every aggregate. Any failure aborts the load.
func Load(ctx context.Context, repos storage.Repositories) (models.State, error) {
	var st models.State
	var err error

	if st.Habits, err = repos.Habits().GetAll(ctx, true); err != nil {
		return models.State{}, fmt.Errorf("failed to load habits: %w", err)
	}
	if st.Templates, err = repos.Templates().GetAll(ctx, true); err != nil {
		return models.State{}, fmt.Errorf("failed to load templates: %w", err)
	}
	if st.Profile, err = repos.Profile().Get(ctx); err != nil {
		return models.State{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if st.Vacation, err = repos.Profile().GetVacationIntervals(ctx); err != nil {
		return models.State{}, fmt.Errorf("failed to load vacation intervals: %w", err)
	}
	if st.Mascot, err = repos.Mascot().Get(ctx); err != nil {
		return models.State{}, fmt.Errorf("failed to load mascot: %w", err)
	}
	if st.BadgeProgress, err = repos.Badges().GetProgress(ctx); err != nil {
		return models.State{}, fmt.Errorf("failed to load badge progress: %w", err)
	}
	if st.UnlockedBadges, err = repos.Badges().GetUnlocked(ctx); err != nil {
		return models.State{}, fmt.Errorf("failed to load unlocked badges: %w", err)
	}
	return st, nil
}
