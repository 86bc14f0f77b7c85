// Package config reads settings from an optional YAML file and HABITVAULT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
)

type (
	Config struct {
		Database
		Log
		App
		Transport
		Dropbox
		Postgres
		Backup

		// derivedDir is set when Transport.Dir was not configured and follows the database.
		derivedDir bool
	}

	Database struct {
		Path string
	}
	Log struct {
		Dir   string
		Level string
		Debug bool
	}
	App struct {
		Platform string // ios or android; recorded in every snapshot
		Version  string
	}
	Transport struct {
		Kind       string // local, dropbox or postgres; empty picks the platform default
		Dir        string // local backup directory
		MaxBackups int
	}
	Dropbox struct {
		Folder     string
		APIURL     string
		ContentURL string
	}
	Postgres struct {
		// Conn must not embed a password. Empty falls back to the OS keyring.
		Conn string
	}
	Backup struct {
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
)

const envPrefix = "HABITVAULT"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configDir := ExpandHome(constants.DefaultConfigDir)
	v.SetDefault("database.path", filepath.Join(configDir, constants.DefaultDBFileName))
	v.SetDefault("log.dir", filepath.Join(configDir, "logs"))
	v.SetDefault("log.level", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("app.platform", constants.PlatformIOS)
	v.SetDefault("app.version", constants.Version)
	v.SetDefault("transport.kind", "")
	v.SetDefault("transport.dir", "")
	v.SetDefault("transport.max_backups", constants.MaxBackups)
	v.SetDefault("dropbox.folder", "/habitvault")
	v.SetDefault("dropbox.api_url", "https://api.dropboxapi.com/2")
	v.SetDefault("dropbox.content_url", "https://content.dropboxapi.com/2")
	v.SetDefault("postgres.conn", "")
	v.SetDefault("backup.schedule", constants.DefaultBackupSchedule)
	return v
}

// Load reads configuration. An explicit file must exist; otherwise config.yaml in
// the default config directory is used when present.
func Load(file string) (*Config, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(ExpandHome(file))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ExpandHome(constants.DefaultConfigDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: Database{
			Path: ExpandHome(v.GetString("database.path")),
		},
		Log: Log{
			Dir:   ExpandHome(v.GetString("log.dir")),
			Level: v.GetString("log.level"),
			Debug: v.GetBool("log.debug"),
		},
		App: App{
			Platform: strings.ToLower(v.GetString("app.platform")),
			Version:  v.GetString("app.version"),
		},
		Transport: Transport{
			Kind:       strings.ToLower(v.GetString("transport.kind")),
			Dir:        ExpandHome(v.GetString("transport.dir")),
			MaxBackups: v.GetInt("transport.max_backups"),
		},
		Dropbox: Dropbox{
			Folder:     v.GetString("dropbox.folder"),
			APIURL:     v.GetString("dropbox.api_url"),
			ContentURL: v.GetString("dropbox.content_url"),
		},
		Postgres: Postgres{
			Conn: v.GetString("postgres.conn"),
		},
		Backup: Backup{
			Schedule: v.GetString("backup.schedule"),
		},
	}
	if cfg.Transport.Dir == "" {
		cfg.Transport.Dir = defaultBackupDir(cfg.Database.Path)
		cfg.derivedDir = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultBackupDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), constants.BackupDirName)
}

// SetDatabasePath points the config at another database. A backup directory that was
// not configured explicitly moves along with it.
func (c *Config) SetDatabasePath(path string) {
	c.Database.Path = ExpandHome(path)
	if c.derivedDir {
		c.Transport.Dir = defaultBackupDir(c.Database.Path)
	}
}

func (c *Config) Validate() error {
	if c.Platform != constants.PlatformIOS && c.Platform != constants.PlatformAndroid {
		return fmt.Errorf("invalid platform %q: must be %s or %s", c.Platform, constants.PlatformIOS, constants.PlatformAndroid)
	}
	switch c.Transport.Kind {
	case "", "local", "dropbox", "postgres":
	default:
		return fmt.Errorf("invalid transport %q", c.Transport.Kind)
	}
	if c.MaxBackups < 1 {
		return fmt.Errorf("max backups must be at least 1, got %d", c.MaxBackups)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
