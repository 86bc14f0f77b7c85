package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/metrics"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
)

// ProgressFunc receives a percentage in [0, 100] and a short label. Percentages
// never decrease within one export or restore.
type ProgressFunc func(percent int, label string)

func (f ProgressFunc) report(percent int, label string) {
	if f != nil {
		f(percent, label)
	}
}

type Exporter struct {
	repos      storage.Repositories
	platform   string
	appVersion string
	osVersion  string
	now        func() time.Time
}

func NewExporter(repos storage.Repositories, platform, appVersion string) *Exporter {
	return &Exporter{
		repos:      repos,
		platform:   platform,
		appVersion: appVersion,
		osVersion:  runtime.GOOS + "/" + runtime.GOARCH,
		now:        time.Now,
	}
}

// Export reads every aggregate and returns a sealed snapshot. A failed read
// aborts the export; no partial snapshot is ever returned.
func (e *Exporter) Export(ctx context.Context, onProgress ProgressFunc) (*Snapshot, error) {
	start := time.Now()
	snap, size, err := e.export(ctx, onProgress)
	metrics.ObserveExport(start, size, err)
	if err != nil {
		logger.Error("Export failed", "error", err)
		return nil, err
	}
	logger.Info("Export complete", "habits", len(snap.Data.Habits), "bytes", size)
	return snap, nil
}

func (e *Exporter) export(ctx context.Context, onProgress ProgressFunc) (*Snapshot, int, error) {
	onProgress.report(5, "Reading device info")
	device, err := e.device(ctx)
	if err != nil {
		return nil, 0, err
	}

	onProgress.report(15, "Reading habits")
	habits, err := e.repos.Habits().GetAll(ctx, true)
	if err != nil {
		return nil, 0, queryError("habits", err)
	}

	onProgress.report(25, "Reading templates")
	templates, err := e.repos.Templates().GetAll(ctx, true)
	if err != nil {
		return nil, 0, queryError("templates", err)
	}

	onProgress.report(35, "Reading profile")
	profile, err := e.repos.Profile().Get(ctx)
	if err != nil {
		return nil, 0, queryError("user profile", err)
	}

	onProgress.report(45, "Reading vacation intervals")
	vacation, err := e.repos.Profile().GetVacationIntervals(ctx)
	if err != nil {
		return nil, 0, queryError("vacation intervals", err)
	}

	onProgress.report(55, "Reading mascot")
	mascot, err := e.repos.Mascot().Get(ctx)
	if err != nil {
		return nil, 0, queryError("mascot", err)
	}

	onProgress.report(65, "Reading badges")
	progress, err := e.repos.Badges().GetProgress(ctx)
	if err != nil {
		return nil, 0, queryError("badge progress", err)
	}
	unlocked, err := e.repos.Badges().GetUnlocked(ctx)
	if err != nil {
		return nil, 0, queryError("unlocked badges", err)
	}

	onProgress.report(72, "Reading settings")
	settings, err := e.repos.Settings().All(ctx)
	if err != nil {
		return nil, 0, queryError("settings", err)
	}

	onProgress.report(80, "Reading metadata")
	metadata, err := e.repos.Metadata().All(ctx)
	if err != nil {
		return nil, 0, queryError("metadata", err)
	}

	onProgress.report(85, "Assembling snapshot")
	flat, completions, entries := models.FlattenHabits(habits)
	snap := &Snapshot{
		Version:   CurrentVersion,
		Timestamp: e.now().UTC(),
		Device:    device,
		Data: models.Dataset{
			Habits:         nonNil(flat),
			Completions:    nonNil(completions),
			Entries:        nonNil(entries),
			Templates:      nonNil(templates),
			Vacation:       nonNil(vacation),
			UserProfile:    profile,
			Mascot:         mascot,
			Settings:       nonNilMap(settings),
			Metadata:       nonNilMap(metadata),
			BadgeProgress:  progress,
			UnlockedBadges: unlocked,
		},
	}

	onProgress.report(90, "Serializing")
	onProgress.report(95, "Computing checksum")
	raw, err := seal(snap)
	if err != nil {
		return nil, 0, err
	}

	onProgress.report(100, "Export complete")
	return snap, len(raw), nil
}

func (e *Exporter) device(ctx context.Context) (Device, error) {
	var id string
	found, err := e.repos.Metadata().Get(ctx, constants.MetaDeviceID, &id)
	if err != nil {
		return Device{}, queryError("device id", err)
	}
	if !found || id == "" {
		// Stores that skipped Init have no device id yet.
		id = uuid.NewString()
		logger.Warn("No device id recorded, using a temporary one", "id", id)
	}
	return Device{
		Platform:   e.platform,
		DeviceID:   id,
		AppVersion: e.appVersion,
		OSVersion:  e.osVersion,
	}, nil
}

func queryError(what string, err error) error {
	return apperrors.E(apperrors.KindQuery, "backup.export", fmt.Errorf("failed to read %s: %w", what, err))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}
