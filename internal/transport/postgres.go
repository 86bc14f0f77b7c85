package transport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

const snapshotTableDDL = `CREATE TABLE IF NOT EXISTS habitvault_snapshots (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	size       BIGINT NOT NULL,
	data       BYTEA NOT NULL
)`

// Postgres keeps snapshots in a server-side table. The table is created on first use.
type Postgres struct {
	db  *sql.DB
	now func() time.Time

	mu    sync.Mutex
	ready bool
}

// NewPostgres opens a pool for connStr. The password must come from .pgpass or
// PGPASSWORD, never from the string itself.
func NewPostgres(connStr string) (*Postgres, error) {
	if _, err := ValidateConnString(connStr); err != nil {
		return nil, transportError(KindPostgres, "open", err)
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, transportError(KindPostgres, "open", fmt.Errorf("failed to open database: %w", err))
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Postgres{db: db, now: time.Now}, nil
}

// ValidateConnString checks that connStr is a PostgreSQL URI or DSN without a password.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := u.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return true, nil
	}

	for _, pair := range strings.Fields(connStr) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "password") {
			return false, ErrEmbeddedCredentials
		}
	}
	return true, nil
}

func (p *Postgres) Kind() string { return KindPostgres }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) setup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, snapshotTableDDL); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	p.ready = true
	return nil
}

func (p *Postgres) IsAvailable(ctx context.Context) bool {
	if err := p.db.PingContext(ctx); err != nil {
		return false
	}
	return p.setup(ctx) == nil
}

func (p *Postgres) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := p.setup(ctx); err != nil {
		return "", transportError(KindPostgres, "upload", err)
	}
	id := uuid.NewString()
	created := p.now().UTC()
	if ts, ok := parseSnapshotName(name); ok {
		created = ts
	}
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO habitvault_snapshots (id, name, created_at, size, data) VALUES ($1, $2, $3, $4, $5)",
		id, name, created, len(data), data)
	if err != nil {
		return "", transportError(KindPostgres, "upload", err)
	}
	return id, nil
}

func (p *Postgres) List(ctx context.Context) ([]FileInfo, error) {
	if err := p.setup(ctx); err != nil {
		return nil, transportError(KindPostgres, "list", err)
	}
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, name, created_at, size FROM habitvault_snapshots ORDER BY created_at DESC, name DESC")
	if err != nil {
		return nil, transportError(KindPostgres, "list", err)
	}
	defer rows.Close()

	files := []FileInfo{}
	for rows.Next() {
		var f FileInfo
		if err := rows.Scan(&f.ID, &f.Name, &f.Timestamp, &f.Size); err != nil {
			return nil, transportError(KindPostgres, "list", err)
		}
		f.Timestamp = f.Timestamp.UTC()
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, transportError(KindPostgres, "list", err)
	}
	return files, nil
}

func (p *Postgres) Download(ctx context.Context, id string) ([]byte, error) {
	if err := p.setup(ctx); err != nil {
		return nil, transportError(KindPostgres, "download", err)
	}
	var data []byte
	err := p.db.QueryRowContext(ctx, "SELECT data FROM habitvault_snapshots WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transportError(KindPostgres, "download", fmt.Errorf("snapshot %s not found", id))
	}
	if err != nil {
		return nil, transportError(KindPostgres, "download", err)
	}
	return data, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) (bool, error) {
	if err := p.setup(ctx); err != nil {
		return false, transportError(KindPostgres, "delete", err)
	}
	res, err := p.db.ExecContext(ctx, "DELETE FROM habitvault_snapshots WHERE id = $1", id)
	if err != nil {
		return false, transportError(KindPostgres, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, transportError(KindPostgres, "delete", err)
	}
	return n > 0, nil
}
