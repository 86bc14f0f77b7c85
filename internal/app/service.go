// Package app wires storage, the state store, backups and transports into one service.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/backup"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/config"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/lock"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/models"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/scheduler"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/state"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage/sqlite"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/transport"
)

type Service struct {
	cfg       *config.Config
	db        *sqlite.Store
	state     *state.Store
	persister *state.Persister
	transport transport.Transport
	exporter  *backup.Exporter
	importer  *backup.Importer

	cancel        context.CancelFunc
	persisterDone chan struct{}

	lockMu sync.Mutex
	held   *lock.Lock
}

// TransportConfig maps the loaded configuration onto transport options.
func TransportConfig(cfg *config.Config) transport.Config {
	return transport.Config{
		Kind:              cfg.Transport.Kind,
		Platform:          cfg.Platform,
		LocalDir:          cfg.Transport.Dir,
		MaxBackups:        cfg.MaxBackups,
		DropboxFolder:     cfg.Folder,
		DropboxAPIURL:     cfg.APIURL,
		DropboxContentURL: cfg.ContentURL,
		PostgresConn:      cfg.Conn,
	}
}

// Open initializes the database, hydrates the state store and starts the
// persister. A failed hydration is logged and leaves an empty state.
func Open(ctx context.Context, cfg *config.Config, tr transport.Transport) (*Service, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	st := state.New(models.EmptyState())
	if err := st.Hydrate(ctx, db); err != nil {
		logger.Warn("Continuing with empty state", "status", st.Status().String(), "error", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:           cfg,
		db:            db,
		state:         st,
		persister:     state.NewPersister(st, db),
		transport:     tr,
		exporter:      backup.NewExporter(db, cfg.Platform, cfg.App.Version),
		importer:      backup.NewImporter(db),
		cancel:        cancel,
		persisterDone: make(chan struct{}),
	}
	go func() {
		defer close(s.persisterDone)
		s.persister.Run(runCtx)
	}()
	return s, nil
}

// Close persists pending changes and releases every resource.
func (s *Service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		logger.Warn("Pending changes were not persisted", "error", err)
	}

	s.state.Close()
	s.cancel()
	<-s.persisterDone
	s.lockMu.Lock()
	if err := s.held.Release(); err != nil {
		logger.Warn("Failed to release lock", "error", err)
	}
	s.held = nil
	s.lockMu.Unlock()
	if c, ok := s.transport.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close transport", "transport", s.transport.Kind(), "error", err)
		}
	}
	return s.db.Close()
}

func (s *Service) DB() *sqlite.Store { return s.db }

func (s *Service) State() models.State { return s.state.State() }

func (s *Service) HydrationStatus() state.Status { return s.state.Status() }

func (s *Service) Transport() transport.Transport { return s.transport }

func (s *Service) Config() *config.Config { return s.cfg }

// Apply dispatches action and waits until the change is on disk. The first call takes
// the instance lock, so another process cannot restore underneath this one.
func (s *Service) Apply(ctx context.Context, action state.Action) error {
	if err := s.Lock(ctx); err != nil {
		return err
	}
	if err := s.state.Dispatch(ctx, action); err != nil {
		return err
	}
	return s.Flush(ctx)
}

// Flush waits for every change dispatched so far to be persisted.
func (s *Service) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx, s.state.Seq())
}

// Lock takes the instance lock for the lifetime of the service. State hydrated before
// the lock was taken may be stale, so it is reloaded once the lock is held.
func (s *Service) Lock(ctx context.Context) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.held != nil {
		return nil
	}
	l, err := lock.Acquire(s.lockDir())
	if err != nil {
		return err
	}
	if err := s.state.Hydrate(ctx, s.db); err != nil {
		_ = l.Release()
		return fmt.Errorf("failed to reload state: %w", err)
	}
	s.held = l
	return nil
}

// withLock runs fn under the instance lock, taking it only for the call when the
// service does not hold it already.
func (s *Service) withLock(fn func() error) error {
	s.lockMu.Lock()
	held := s.held != nil
	s.lockMu.Unlock()
	if held {
		return fn()
	}
	l, err := lock.Acquire(s.lockDir())
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			logger.Warn("Failed to release lock", "error", err)
		}
	}()
	return fn()
}

func (s *Service) lockDir() string { return filepath.Dir(s.cfg.Database.Path) }

// Export returns a serialized snapshot of the persisted dataset.
func (s *Service) Export(ctx context.Context, onProgress backup.ProgressFunc) (*backup.Snapshot, []byte, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to persist pending changes: %w", err)
	}
	snap, err := s.exporter.Export(ctx, onProgress)
	if err != nil {
		return nil, nil, err
	}
	raw, err := backup.Marshal(snap)
	if err != nil {
		return nil, nil, err
	}
	return snap, raw, nil
}

// CreateBackup exports and uploads a snapshot. It returns the transport id.
func (s *Service) CreateBackup(ctx context.Context, onProgress backup.ProgressFunc) (string, error) {
	snap, raw, err := s.Export(ctx, onProgress)
	if err != nil {
		return "", err
	}
	id, err := s.transport.Upload(ctx, transport.SnapshotName(snap.Timestamp), raw)
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	return id, nil
}

// safetyBackup uploads a snapshot of the current data to the configured transport.
// When that fails the snapshot is written to the backup directory next to the
// database instead. It returns the id and the kind of transport that stored it.
func (s *Service) safetyBackup(ctx context.Context) (string, string, error) {
	snap, raw, err := s.Export(ctx, nil)
	if err != nil {
		return "", "", err
	}
	name := transport.SnapshotName(snap.Timestamp)
	id, err := s.transport.Upload(ctx, name, raw)
	if err == nil {
		return id, s.transport.Kind(), nil
	}

	dir := filepath.Join(s.lockDir(), constants.BackupDirName)
	if s.transport.Kind() == transport.KindLocal && filepath.Clean(s.cfg.Transport.Dir) == filepath.Clean(dir) {
		return "", "", err
	}
	logger.Warn("Safety backup upload failed, keeping it locally", "transport", s.transport.Kind(), "dir", dir, "error", err)
	local, lerr := transport.New(transport.Config{Kind: transport.KindLocal, LocalDir: dir, MaxBackups: s.cfg.MaxBackups})
	if lerr != nil {
		return "", "", lerr
	}
	id, lerr = local.Upload(ctx, name, raw)
	if lerr != nil {
		return "", "", fmt.Errorf("%w; local fallback: %v", err, lerr)
	}
	return id, local.Kind(), nil
}

// RestoreOutcome is the result of Service.Restore.
type RestoreOutcome struct {
	backup.RestoreResult
	// SafetyID is the id of the snapshot taken before replacing data.
	SafetyID string
	// SafetyTransport is the kind of transport holding it.
	SafetyTransport string
}

// Restore replaces the dataset with raw. Invalid snapshots are rejected before
// anything else happens. Otherwise dispatch is suspended, pending changes are
// persisted, a safety snapshot of the current data is stored, the dataset is
// replaced and the state store is rehydrated.
func (s *Service) Restore(ctx context.Context, raw []byte, onProgress backup.ProgressFunc) (RestoreOutcome, error) {
	if v := backup.Validate(raw); !v.Valid {
		return RestoreOutcome{RestoreResult: backup.RestoreResult{Reason: v.Reason}}, v.Err
	}

	if err := s.Lock(ctx); err != nil {
		return RestoreOutcome{}, err
	}

	if err := s.state.Suspend(ctx); err != nil {
		return RestoreOutcome{}, err
	}
	defer s.state.Resume()
	if err := s.Flush(ctx); err != nil {
		return RestoreOutcome{}, fmt.Errorf("failed to persist pending changes: %w", err)
	}

	safetyID, safetyKind, err := s.safetyBackup(ctx)
	if err != nil {
		return RestoreOutcome{}, fmt.Errorf("failed to back up current data before restore: %w", err)
	}
	logger.Info("Created safety backup before restore", "id", safetyID, "transport", safetyKind)

	res, err := s.importer.Restore(ctx, raw, onProgress)
	out := RestoreOutcome{RestoreResult: res, SafetyID: safetyID, SafetyTransport: safetyKind}
	if err != nil {
		return out, err
	}

	if err := s.db.Metadata().Set(ctx, constants.MetaLastRestoreAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		logger.Warn("Failed to record restore time", "error", err)
	}
	if err := s.state.Hydrate(ctx, s.db); err != nil {
		return out, fmt.Errorf("restored, but failed to reload state: %w", err)
	}
	return out, nil
}

// AutoBackup builds the scheduler that uploads a snapshot on every tick. Each tick
// holds the instance lock while it exports, so a restore in another process is
// refused until the tick is done.
func (s *Service) AutoBackup() (*scheduler.AutoBackup, error) {
	return scheduler.NewAutoBackup(s.db.Metadata(), func(ctx context.Context) (string, error) {
		var id string
		err := s.withLock(func() error {
			var err error
			id, err = s.CreateBackup(ctx, nil)
			return err
		})
		return id, err
	}, s.cfg.Schedule)
}
