// Package migration applies the storefront schema and tracks which
// versions have been applied.
package migration

import (
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version string // Version (e.g., "0001")
	Name    string // Migration name (e.g., "create_storefront_schema")
	UpSQL   string // SQL for applying the migration
	DownSQL string // SQL for rolling back the migration
}

// MigrationFile represents a migration file pair inside a source.
type MigrationFile struct {
	Version  string // Version prefix of the file name
	Name     string // Migration name
	UpPath   string // Path to .up.sql file
	DownPath string // Path to .down.sql file
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusPending means the migration has not been applied.
	StatusPending MigrationStatus = "pending"
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the migration failed to apply.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a migration in the tracking table.
type MigrationRecord struct {
	Version   string          `json:"version"`              // Migration version
	Name      string          `json:"name"`                 // Migration name
	Status    MigrationStatus `json:"status"`               // Current status
	AppliedAt *time.Time      `json:"applied_at,omitempty"` // When applied (nil if not applied)
	Error     *string         `json:"error,omitempty"`      // Error message if failed
}

// FileName builds a migration file name.
// Format: {version}_{name}.{up|down}.sql
func FileName(version, name, direction string) string {
	return version + "_" + name + "." + direction + ".sql"
}
