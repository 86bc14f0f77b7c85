package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "habitvault", "habitvault.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(home, ".config", "habitvault", "backups"), cfg.Transport.Dir)
	assert.Equal(t, "ios", cfg.Platform)
	assert.Equal(t, 14, cfg.MaxBackups)
	assert.Equal(t, "0 3 * * *", cfg.Schedule)
	assert.Empty(t, cfg.Transport.Kind)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HABITVAULT_APP_PLATFORM", "Android")
	t.Setenv("HABITVAULT_TRANSPORT_KIND", "dropbox")
	t.Setenv("HABITVAULT_TRANSPORT_MAX_BACKUPS", "3")
	t.Setenv("HABITVAULT_DROPBOX_FOLDER", "/Apps/vault")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "android", cfg.Platform)
	assert.Equal(t, "dropbox", cfg.Transport.Kind)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, "/Apps/vault", cfg.Folder)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	file := filepath.Join(dir, "habitvault.yaml")
	content := `
database:
  path: ` + filepath.Join(dir, "data.db") + `
transport:
  kind: local
  max_backups: 5
backup:
  schedule: "*/30 * * * *"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0600))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.Transport.Dir)
	assert.Equal(t, 5, cfg.MaxBackups)
	assert.Equal(t, "*/30 * * * *", cfg.Schedule)
}

func TestSetDatabasePathMovesDerivedBackupDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	other := filepath.Join(t.TempDir(), "alt", "vault.db")
	cfg.SetDatabasePath(other)
	assert.Equal(t, other, cfg.Database.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(other), "backups"), cfg.Transport.Dir)
}

func TestSetDatabasePathKeepsExplicitBackupDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	explicit := t.TempDir()
	t.Setenv("HABITVAULT_TRANSPORT_DIR", explicit)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.SetDatabasePath(filepath.Join(t.TempDir(), "vault.db"))
	assert.Equal(t, explicit, cfg.Transport.Dir)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"HABITVAULT_APP_PLATFORM":          "windows",
		"HABITVAULT_TRANSPORT_KIND":        "ftp",
		"HABITVAULT_TRANSPORT_MAX_BACKUPS": "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "x", "y.db"), ExpandHome("~/x/y.db"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/file", ExpandHome("~user/file"))
}
