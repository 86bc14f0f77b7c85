// Package scheduler runs automatic backups on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/metrics"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
)

// BackupFunc exports and uploads one snapshot and returns its transport id.
type BackupFunc func(ctx context.Context) (string, error)

// RunResult describes one tick.
type RunResult struct {
	Skipped bool
	ID      string
	At      time.Time
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression or an @descriptor.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// AutoBackup backs up on every tick while the backup.auto_enabled metadata flag is set.
type AutoBackup struct {
	metadata storage.KeyValueRepository
	backup   BackupFunc
	schedule string
	now      func() time.Time

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	// runMu keeps a manual run and a tick from overlapping.
	runMu sync.Mutex
}

func NewAutoBackup(metadata storage.KeyValueRepository, backup BackupFunc, schedule string) (*AutoBackup, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	return &AutoBackup{
		metadata: metadata,
		backup:   backup,
		schedule: schedule,
		now:      time.Now,
		cron:     cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// Start schedules the job. It stops when ctx is cancelled or Stop is called.
func (a *AutoBackup) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isRunning {
		return nil
	}

	entryID, err := a.cron.AddFunc(a.schedule, func() {
		if _, err := a.RunNow(ctx); err != nil {
			logger.Error("Automatic backup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	a.entryID = entryID
	a.cron.Start()
	a.isRunning = true
	logger.Info("Automatic backup scheduler started", "schedule", a.schedule)

	go func() {
		<-ctx.Done()
		a.Stop()
	}()
	return nil
}

// Stop waits for a running job to finish.
func (a *AutoBackup) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isRunning {
		return
	}
	<-a.cron.Stop().Done()
	a.cron.Remove(a.entryID)
	a.isRunning = false
	logger.Info("Automatic backup scheduler stopped")
}

func (a *AutoBackup) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isRunning
}

// NextRun returns when the next tick fires, or nil when stopped.
func (a *AutoBackup) NextRun() *time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.isRunning {
		return nil
	}
	next := a.cron.Entry(a.entryID).Next
	return &next
}

// RunNow performs one tick immediately. A disabled flag skips the backup.
func (a *AutoBackup) RunNow(ctx context.Context) (RunResult, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	var enabled bool
	if _, err := a.metadata.Get(ctx, constants.MetaAutoBackupEnabled, &enabled); err != nil {
		return RunResult{}, fmt.Errorf("failed to read %s: %w", constants.MetaAutoBackupEnabled, err)
	}
	if !enabled {
		logger.Debug("Automatic backup skipped (disabled)")
		return RunResult{Skipped: true}, nil
	}

	id, err := a.backup(ctx)
	if err != nil {
		return RunResult{}, err
	}

	at := a.now().UTC()
	if err := a.metadata.Set(ctx, constants.MetaLastBackupAt, at.Format(time.RFC3339)); err != nil {
		return RunResult{}, fmt.Errorf("backup %s uploaded but not recorded: %w", id, err)
	}
	if err := a.metadata.Set(ctx, constants.MetaLastBackupID, id); err != nil {
		logger.Warn("Failed to record last backup id", "id", id, "error", err)
	}
	metrics.RecordBackupSuccess(at)
	logger.Info("Automatic backup complete", "id", id)
	return RunResult{ID: id, At: at}, nil
}

// Enable sets or clears the backup.auto_enabled flag.
func Enable(ctx context.Context, metadata storage.KeyValueRepository, on bool) error {
	return metadata.Set(ctx, constants.MetaAutoBackupEnabled, on)
}

// LastSuccess returns the time of the last recorded automatic backup.
func LastSuccess(ctx context.Context, metadata storage.KeyValueRepository) (time.Time, bool, error) {
	var raw string
	found, err := metadata.Get(ctx, constants.MetaLastBackupAt, &raw)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s: %w", constants.MetaLastBackupAt, err)
	}
	return at, true, nil
}
