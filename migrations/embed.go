package migrations

import "embed"

// FS holds the SQL migration files, one directory per driver.
//
//go:embed sqlite/*.sql
var FS embed.FS
