package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
)

// HabitRepository persists the habit aggregate: habits, their completions and entries.
type HabitRepository interface {
	GetAll(ctx context.Context, includeArchived bool) ([]models.Habit, error)
	// GetByID returns nil, nil when no habit has the id.
	GetByID(ctx context.Context, id string) (*models.Habit, error)
	// SyncAll replaces every stored habit with habits in one transaction.
	SyncAll(ctx context.Context, habits []models.Habit) error
	DeleteAll(ctx context.Context) error
}

// TemplateRepository persists habit templates. Default templates are read-only to it.
type TemplateRepository interface {
	GetAll(ctx context.Context, includeDefaults bool) ([]models.HabitTemplate, error)
	GetByID(ctx context.Context, id string) (*models.HabitTemplate, error)
	// SyncAll replaces the user templates. Entries marked default are skipped.
	SyncAll(ctx context.Context, templates []models.HabitTemplate) error
	// DeleteAll removes user templates only.
	DeleteAll(ctx context.Context) error
}

type ProfileRepository interface {
	Get(ctx context.Context) (*models.UserProfile, error)
	Save(ctx context.Context, profile models.UserProfile) error
	GetVacationIntervals(ctx context.Context) ([]models.VacationInterval, error)
	SyncVacationIntervals(ctx context.Context, intervals []models.VacationInterval) error
	DeleteAll(ctx context.Context) error
}

type MascotRepository interface {
	Get(ctx context.Context) (*models.MascotCustomization, error)
	Save(ctx context.Context, mascot models.MascotCustomization) error
	DeleteAll(ctx context.Context) error
}

type BadgeRepository interface {
	GetProgress(ctx context.Context) ([]models.BadgeProgress, error)
	GetUnlocked(ctx context.Context) ([]models.UnlockedBadge, error)
	SyncAll(ctx context.Context, progress []models.BadgeProgress, unlocked []models.UnlockedBadge) error
	// IncrementProgress never lowers a counter. It returns the stored value.
	IncrementProgress(ctx context.Context, badgeID string, delta int, metadata json.RawMessage) (int, error)
	// Unlock reports false when the badge was already unlocked.
	Unlock(ctx context.Context, badgeID string, at time.Time) (bool, error)
	MarkSeen(ctx context.Context, badgeID string) error
	DeleteAll(ctx context.Context) error
}

// KeyValueRepository is a generic key to JSON value table.
type KeyValueRepository interface {
	// Get decodes the value into dest and reports whether the key exists.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]json.RawMessage, error)
}

// Repositories exposes one repository per aggregate.
type Repositories interface {
	Habits() HabitRepository
	Templates() TemplateRepository
	Profile() ProfileRepository
	Mascot() MascotRepository
	Badges() BadgeRepository
	Metadata() KeyValueRepository
	Settings() KeyValueRepository
}

// DatasetWriter replaces the whole dataset in a single transaction.
type DatasetWriter interface {
	ReplaceDataset(ctx context.Context, ds *models.Dataset) (models.RestoreCounts, error)
}

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	Repositories
	DatasetWriter

	Path() string
}
