// Package transport moves serialized snapshots to and from backup destinations.
package transport

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/keyring"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/metrics"
)

const (
	KindLocal    = "local"
	KindDropbox  = "dropbox"
	KindPostgres = "postgres"
)

// FileInfo describes one stored snapshot.
type FileInfo struct {
	ID        string
	Name      string
	Timestamp time.Time
	Size      int64
}

// Transport stores snapshot documents. List returns newest first.
type Transport interface {
	Kind() string
	IsAvailable(ctx context.Context) bool
	Upload(ctx context.Context, name string, data []byte) (string, error)
	List(ctx context.Context) ([]FileInfo, error)
	Download(ctx context.Context, id string) ([]byte, error)
	// Delete reports false when id did not exist.
	Delete(ctx context.Context, id string) (bool, error)
}

type Config struct {
	// Kind selects the backend. Empty picks the platform default.
	Kind     string
	Platform string

	LocalDir   string
	MaxBackups int

	DropboxFolder     string
	DropboxAPIURL     string
	DropboxContentURL string
	// DropboxToken overrides the keyring lookup.
	DropboxToken TokenFunc

	// PostgresConn overrides the keyring lookup.
	PostgresConn string
}

// DefaultKind maps a platform to its native destination.
func DefaultKind(platform string) string {
	if platform == constants.PlatformAndroid {
		return KindDropbox
	}
	return KindLocal
}

// New builds the configured transport. Every operation on the result is logged
// and counted.
func New(cfg Config) (Transport, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = DefaultKind(cfg.Platform)
	}

	var t Transport
	switch kind {
	case KindLocal:
		t = NewLocal(cfg.LocalDir, cfg.MaxBackups)
	case KindDropbox:
		token := cfg.DropboxToken
		if token == nil {
			token = func(context.Context) (string, error) { return keyring.DropboxToken() }
		}
		t = NewDropbox(DropboxOptions{
			Folder:     cfg.DropboxFolder,
			APIURL:     cfg.DropboxAPIURL,
			ContentURL: cfg.DropboxContentURL,
			Token:      token,
		})
	case KindPostgres:
		connStr := cfg.PostgresConn
		if connStr == "" {
			var err error
			connStr, err = keyring.PostgresConnectionString()
			if err != nil {
				return nil, apperrors.E(apperrors.KindTransport, "transport.new", fmt.Errorf("postgres connection string: %w", err))
			}
		}
		pg, err := NewPostgres(connStr)
		if err != nil {
			return nil, err
		}
		t = pg
	default:
		return nil, apperrors.E(apperrors.KindTransport, "transport.new", fmt.Errorf("unknown transport %q", kind))
	}
	return &instrumented{next: t}, nil
}

func transportError(kind, op string, err error) error {
	return apperrors.E(apperrors.KindTransport, "transport."+kind+"."+op, err)
}

type instrumented struct {
	next Transport
}

func (i *instrumented) done(op string, err error, keyvals ...any) {
	metrics.RecordTransport(i.next.Kind(), op, err)
	if err != nil {
		logger.Error("Transport operation failed", append([]any{"transport", i.next.Kind(), "op", op, "error", err}, keyvals...)...)
		return
	}
	logger.Debug("Transport operation", append([]any{"transport", i.next.Kind(), "op", op}, keyvals...)...)
}

func (i *instrumented) Kind() string { return i.next.Kind() }

func (i *instrumented) IsAvailable(ctx context.Context) bool {
	ok := i.next.IsAvailable(ctx)
	logger.Debug("Transport availability", "transport", i.next.Kind(), "available", ok)
	return ok
}

func (i *instrumented) Upload(ctx context.Context, name string, data []byte) (string, error) {
	id, err := i.next.Upload(ctx, name, data)
	i.done("upload", err, "name", name, "bytes", len(data))
	return id, err
}

func (i *instrumented) List(ctx context.Context) ([]FileInfo, error) {
	files, err := i.next.List(ctx)
	i.done("list", err, "count", len(files))
	return files, err
}

func (i *instrumented) Download(ctx context.Context, id string) ([]byte, error) {
	data, err := i.next.Download(ctx, id)
	i.done("download", err, "id", id)
	return data, err
}

func (i *instrumented) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := i.next.Delete(ctx, id)
	i.done("delete", err, "id", id, "deleted", ok)
	return ok, err
}

// Close releases the backend's resources when it holds any.
func (i *instrumented) Close() error {
	if c, ok := i.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SnapshotName is the file name used for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return constants.BackupFilePrefix + t.UTC().Format(nameLayout) + constants.BackupFileSuffix
}

const nameLayout = "20060102-150405"

// parseSnapshotName returns the timestamp encoded in a SnapshotName, with or
// without a trailing "-N" collision counter.
func parseSnapshotName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)
	if len(stamp) < len(nameLayout) {
		return time.Time{}, false
	}
	if rest := stamp[len(nameLayout):]; rest != "" {
		if _, err := strconv.Atoi(strings.TrimPrefix(rest, "-")); err != nil || rest[0] != '-' {
			return time.Time{}, false
		}
	}
	ts, err := time.Parse(nameLayout, stamp[:len(nameLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
