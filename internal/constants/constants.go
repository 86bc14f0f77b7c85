package constants

const (
	AppName           = "habitvault"
	DefaultConfigDir  = "~/.config/habitvault"
	DefaultDBFileName = "habitvault.db"
	Version           = "v0.3.0"

	// DateFormat is the calendar date format used for completions and vacation intervals (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the reminder time format (HH:MM)
	TimeFormat = "15:04"

	// Keyring accounts
	KeyringDropboxToken   = "dropbox-token"
	KeyringPostgresConn   = "postgres-connection"
	InstanceLockfileName  = "habitvault.lock"
	DefaultMascotID       = "default"
	DefaultUserProfileID  = "default"
	DefaultBackupSchedule = "0 3 * * *" // daily at 03:00

	// Local transport
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitvault-"
	BackupFileSuffix = ".json"
)

// Metadata keys stored in app_metadata.
const (
	MetaSeedDefaultHabits  = "seed.default_habits"
	MetaDeviceID           = "device.id"
	MetaAutoBackupEnabled  = "backup.auto_enabled"
	MetaLastBackupAt       = "backup.last_success_at"
	MetaLastBackupID       = "backup.last_success_id"
	MetaLastRestoreAt      = "backup.last_restore_at"
	MetaOnboardingComplete = "onboarding.complete"
)

// Platforms recorded in the snapshot device descriptor.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)
