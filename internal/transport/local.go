package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/logger"
)

// Local keeps snapshots as files in one directory and rotates the oldest away.
type Local struct {
	dir        string
	maxBackups int
}

func NewLocal(dir string, maxBackups int) *Local {
	if maxBackups <= 0 {
		maxBackups = constants.MaxBackups
	}
	return &Local{dir: dir, maxBackups: maxBackups}
}

func (l *Local) Kind() string { return KindLocal }

// Dir returns the backup directory path
func (l *Local) Dir() string { return l.dir }

func (l *Local) ensureDir() error {
	return os.MkdirAll(l.dir, 0700)
}

func (l *Local) IsAvailable(ctx context.Context) bool {
	if err := l.ensureDir(); err != nil {
		return false
	}
	check, err := os.CreateTemp(l.dir, ".writable-*")
	if err != nil {
		return false
	}
	check.Close()
	os.Remove(check.Name())
	return true
}

// Upload writes data under name, adding a counter when the name is taken. The
// write goes through a temporary file and a rename so a crash never leaves a
// truncated snapshot behind.
func (l *Local) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := l.ensureDir(); err != nil {
		return "", transportError(KindLocal, "upload", fmt.Errorf("failed to create backup directory: %w", err))
	}
	name, err := l.uniqueName(filepath.Base(name))
	if err != nil {
		return "", transportError(KindLocal, "upload", err)
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", transportError(KindLocal, "upload", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", transportError(KindLocal, "upload", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", transportError(KindLocal, "upload", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", transportError(KindLocal, "upload", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(l.dir, name)); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tmpPath, "error", removeErr)
		}
		return "", transportError(KindLocal, "upload", err)
	}

	// Rotation failure does not fail the upload.
	if err := l.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	return name, nil
}

func (l *Local) uniqueName(name string) (string, error) {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	if _, err := os.Stat(filepath.Join(l.dir, name)); os.IsNotExist(err) {
		return name, nil
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for counter := 1; counter <= 100; counter++ {
		candidate := fmt.Sprintf("%s-%d%s", base, counter, ext)
		if _, err := os.Stat(filepath.Join(l.dir, candidate)); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique backup filename")
}

// List returns snapshot files sorted by timestamp, newest first. Files whose
// names carry no timestamp are ignored.
func (l *Local) List(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, transportError(KindLocal, "list", fmt.Errorf("failed to read backup directory: %w", err))
	}

	files := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := parseSnapshotName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			ID:        entry.Name(),
			Name:      entry.Name(),
			Timestamp: ts,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Timestamp.Equal(files[j].Timestamp) {
			return files[i].Name > files[j].Name
		}
		return files[i].Timestamp.After(files[j].Timestamp)
	})
	return files, nil
}

func (l *Local) rotate() error {
	files, err := l.List(context.Background())
	if err != nil {
		return err
	}
	if len(files) <= l.maxBackups {
		return nil
	}
	for _, f := range files[l.maxBackups:] {
		if err := os.Remove(filepath.Join(l.dir, f.ID)); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", f.ID, err)
		}
	}
	return nil
}

func (l *Local) path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid backup id %q", id)
	}
	return filepath.Join(l.dir, id), nil
}

func (l *Local) Download(ctx context.Context, id string) ([]byte, error) {
	p, err := l.path(id)
	if err != nil {
		return nil, transportError(KindLocal, "download", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, transportError(KindLocal, "download", err)
	}
	return data, nil
}

func (l *Local) Delete(ctx context.Context, id string) (bool, error) {
	p, err := l.path(id)
	if err != nil {
		return false, transportError(KindLocal, "delete", err)
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, transportError(KindLocal, "delete", err)
	}
	return true, nil
}
