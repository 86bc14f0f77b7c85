package transport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shanky101/habit-tracker-mobile-sub000/internal/errors"
)

func TestLocalUploadListDownloadDelete(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(filepath.Join(t.TempDir(), "backups"), 0)
	require.True(t, l.IsAvailable(ctx))

	older := SnapshotName(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	newer := SnapshotName(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	id1, err := l.Upload(ctx, older, []byte(`{"a":1}`))
	require.NoError(t, err)
	id2, err := l.Upload(ctx, newer, []byte(`{"b":22}`))
	require.NoError(t, err)

	files, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, id2, files[0].ID, "newest first")
	assert.Equal(t, id1, files[1].ID)
	assert.Equal(t, int64(8), files[0].Size)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), files[0].Timestamp)

	data, err := l.Download(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	deleted, err := l.Delete(ctx, id1)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = l.Delete(ctx, id1)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLocalRotatesOldest(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir(), 3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := l.Upload(ctx, SnapshotName(base.AddDate(0, 0, i)), []byte("{}"))
		require.NoError(t, err)
	}

	files, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, SnapshotName(base.AddDate(0, 0, 4)), files[0].Name)
	assert.Equal(t, SnapshotName(base.AddDate(0, 0, 2)), files[2].Name)
}

func TestLocalNameCollisionAddsCounter(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir(), 0)
	name := SnapshotName(time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC))

	first, err := l.Upload(ctx, name, []byte("1"))
	require.NoError(t, err)
	second, err := l.Upload(ctx, name, []byte("2"))
	require.NoError(t, err)

	assert.Equal(t, name, first)
	assert.Equal(t, strings.TrimSuffix(name, ".json")+"-1.json", second)

	files, err := l.List(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestLocalLeavesNoTemporaryFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l := NewLocal(dir, 0)
	require.True(t, l.IsAvailable(ctx))

	_, err := l.Upload(ctx, SnapshotName(time.Now()), []byte("{}"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "habitvault-"))
}

func TestLocalIgnoresForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "habitvault-latest.json"), []byte("x"), 0600))

	files, err := NewLocal(dir, 0).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalMissingDirectoryListsEmpty(t *testing.T) {
	files, err := NewLocal(filepath.Join(t.TempDir(), "nope"), 0).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalRejectsPathIDs(t *testing.T) {
	l := NewLocal(t.TempDir(), 0)

	_, err := l.Download(context.Background(), "../secrets.json")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	_, err = l.Delete(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}
