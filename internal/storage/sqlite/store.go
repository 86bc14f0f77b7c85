package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/migration"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/storage"
	"github.com/shanky101/habit-tracker-mobile-sub000/migrations"
)

// Store owns the single database handle. Repositories borrow it; nothing else opens the file.
type Store struct {
	path string
	db   *sql.DB

	// mu serializes every write so no two transactions against the same tables overlap.
	mu sync.Mutex

	habits    *HabitRepo
	templates *TemplateRepo
	profile   *ProfileRepo
	mascot    *MascotRepo
	badges    *BadgeRepo
	metadata  *KeyValueRepo
	settings  *KeyValueRepo
}

var _ storage.Provider = (*Store)(nil)

// Open opens (creating if needed) the database at path. The schema is not touched until Init.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: pragmas stick and writers queue behind each other.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{path: path, db: db}
	s.habits = &HabitRepo{s: s}
	s.templates = &TemplateRepo{s: s}
	s.profile = &ProfileRepo{s: s}
	s.mascot = &MascotRepo{s: s}
	s.badges = &BadgeRepo{s: s}
	s.metadata = &KeyValueRepo{s: s, table: "app_metadata", stamped: true}
	s.settings = &KeyValueRepo{s: s, table: "settings"}

	s.enableForeignKeys(context.Background())
	return s, nil
}

// execPragma is swapped in tests.
var execPragma = func(ctx context.Context, db *sql.DB, pragma string) error {
	_, err := db.ExecContext(ctx, pragma)
	return err
}

// enableForeignKeys is fail-soft: a store without enforcement still runs.
func (s *Store) enableForeignKeys(ctx context.Context) {
	if err := execPragma(ctx, s.db, "PRAGMA foreign_keys = ON"); err != nil {
		logger.Warn("Failed to enable foreign key enforcement", "error", err)
	}
}

// Init creates the schema, seeds defaults once and assigns a device id. It is safe to
// call on every start.
func (s *Store) Init(ctx context.Context) error {
	if err := s.runMigrations(ctx); err != nil {
		return err
	}
	if err := s.seedDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed defaults: %w", err)
	}
	if _, err := s.DeviceID(ctx); err != nil {
		return fmt.Errorf("failed to assign device id: %w", err)
	}
	return nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return apperrors.E(apperrors.KindSchema, "sqlite.init", fmt.Errorf("failed to access sqlite migrations: %w", err))
	}

	runner := migration.NewRunner(s.db, subFS)
	_, err = runner.ApplyMigrations(ctx, func(msg string) {
		logger.Debug(msg)
	})
	return err
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Habits() storage.HabitRepository       { return s.habits }
func (s *Store) Templates() storage.TemplateRepository { return s.templates }
func (s *Store) Profile() storage.ProfileRepository    { return s.profile }
func (s *Store) Mascot() storage.MascotRepository      { return s.mascot }
func (s *Store) Badges() storage.BadgeRepository       { return s.badges }
func (s *Store) Metadata() storage.KeyValueRepository  { return s.metadata }
func (s *Store) Settings() storage.KeyValueRepository  { return s.settings }

// DeviceID returns the id stored for this installation, creating one on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	var id string
	found, err := s.metadata.Get(ctx, constants.MetaDeviceID, &id)
	if err != nil {
		return "", err
	}
	if found && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.metadata.Set(ctx, constants.MetaDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// withTx runs fn inside one transaction holding the write lock. fn must only use tx;
// touching s.db from inside would wait on the single connection forever.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.E(apperrors.KindTransactionAbort, op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Rollback failed", "op", op, "error", rbErr)
		}
		return apperrors.E(apperrors.KindTransactionAbort, op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.E(apperrors.KindTransactionAbort, op, fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// exec runs a single write statement under the write lock.
func (s *Store) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.E(apperrors.KindQuery, op, err)
	}
	return res, nil
}

// persistedTables lists every data table, children before parents.
var persistedTables = []string{
	"entries",
	"completions",
	"habits",
	"habit_templates",
	"vacation_intervals",
	"user_badges",
	"badge_progress",
	"mascot_customization",
	"user_profile",
	"settings",
	"app_metadata",
}

// Status summarises the database for diagnostics.
type Status struct {
	SchemaVersion      int
	LatestVersion      int
	ForeignKeysEnabled bool
	RowCounts          map[string]int
}

func (s *Store) Status(ctx context.Context) (Status, error) {
	st := Status{RowCounts: make(map[string]int, len(persistedTables))}

	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return st, err
	}
	runner := migration.NewRunner(s.db, subFS)
	st.SchemaVersion, err = runner.CurrentVersion(ctx)
	if err != nil {
		return st, apperrors.E(apperrors.KindQuery, "sqlite.status", err)
	}
	if st.LatestVersion, err = runner.LatestVersion(); err != nil {
		return st, apperrors.E(apperrors.KindSchema, "sqlite.status", err)
	}

	var fk int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err == nil {
		st.ForeignKeysEnabled = fk == 1
	}

	for _, table := range persistedTables {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return st, apperrors.E(apperrors.KindQuery, "sqlite.status", err)
		}
		st.RowCounts[table] = n
	}
	return st, nil
}
