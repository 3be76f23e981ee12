package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/runtime"
)

// DefaultLockID is the advisory lock key held while migrations run.
const DefaultLockID int64 = 7_215_003_001

// Executor executes and tracks database migrations.
type Executor struct {
	session *runtime.Session
	lockID  int64
}

// NewExecutor creates a new migration executor.
func NewExecutor(session *runtime.Session) *Executor {
	return &Executor{
		session: session,
		lockID:  DefaultLockID,
	}
}

// WithLockID sets a custom advisory lock ID.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := e.session.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// Lock acquires an advisory lock to prevent concurrent migrations.
// The lock is bound to the session's connection.
func (e *Executor) Lock(ctx context.Context) error {
	return e.session.WithConn(ctx, func(conn runtime.Conn) error {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		return nil
	})
}

// Unlock releases the advisory lock.
func (e *Executor) Unlock(ctx context.Context) error {
	return e.session.WithConn(ctx, func(conn runtime.Conn) error {
		var released bool
		if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", e.lockID).Scan(&released); err != nil {
			return fmt.Errorf("failed to release migration lock: %w", err)
		}
		if !released {
			return fmt.Errorf("lock was not held")
		}
		return nil
	})
}

func scanRecord(row pgx.Row) (MigrationRecord, error) {
	var record MigrationRecord
	err := row.Scan(&record.Version, &record.Name, &record.Status, &record.AppliedAt, &record.Error)
	return record, err
}

// GetAppliedMigrations returns all migrations that have been applied.
func (e *Executor) GetAppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	records, err := runtime.QueryAll(ctx, e.session, scanRecord, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		WHERE status = 'applied'
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	return records, nil
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	records, err := runtime.QueryAll(ctx, e.session, scanRecord, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	return records, nil
}

// Apply executes a migration's up SQL and records it as applied. A failed
// statement rolls back the schema change and records the failure.
func (e *Executor) Apply(ctx context.Context, migration Migration) error {
	var stmtErr error
	err := e.session.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, "SELECT status FROM schema_migrations WHERE version = $1", migration.Version).Scan(&status)
		if err == nil && status == string(StatusApplied) {
			return fmt.Errorf("migration %s is already applied", migration.Version)
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		for i, stmt := range splitSQL(migration.UpSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				stmtErr = fmt.Errorf("migration failed at statement %d: %w", i+1, err)
				return stmtErr
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO schema_migrations (version, name, status, applied_at)
			VALUES ($1, $2, 'applied', $3)
			ON CONFLICT (version) DO UPDATE SET status = 'applied', applied_at = $3, error = NULL
		`, migration.Version, migration.Name, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})

	if stmtErr != nil {
		// Record failure outside the rolled back transaction
		_, recErr := e.session.Exec(ctx, `
			INSERT INTO schema_migrations (version, name, status, error)
			VALUES ($1, $2, 'failed', $3)
			ON CONFLICT (version) DO UPDATE SET status = 'failed', error = $3
		`, migration.Version, migration.Name, stmtErr.Error())
		if recErr != nil {
			return fmt.Errorf("%w (and failed to record failure: %v)", err, recErr)
		}
	}
	return err
}

// Rollback executes a migration's down SQL and removes its record.
func (e *Executor) Rollback(ctx context.Context, migration Migration) error {
	return e.session.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, "SELECT status FROM schema_migrations WHERE version = $1", migration.Version).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && status != string(StatusApplied)) {
			return fmt.Errorf("migration %s is not applied", migration.Version)
		}
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		for i, stmt := range splitSQL(migration.DownSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rollback failed at statement %d: %w", i+1, err)
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to delete migration record: %w", err)
		}
		return nil
	})
}

// ApplyAll applies all pending migrations in order and returns the
// versions it applied.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration) ([]string, error) {
	appliedMap := make(map[string]bool)
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	var done []string
	for _, migration := range migrations {
		if appliedMap[migration.Version] {
			continue
		}
		if err := e.Apply(ctx, migration); err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		done = append(done, migration.Version)
	}
	return done, nil
}

// RollbackSteps rolls back the most recently applied migrations, newest
// first, and returns the versions it rolled back.
func (e *Executor) RollbackSteps(ctx context.Context, migrations []Migration, steps int) ([]string, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	migrationMap := make(map[string]Migration)
	for _, m := range migrations {
		migrationMap[m.Version] = m
	}

	var done []string
	for i := len(applied) - 1; i >= 0 && len(done) < steps; i-- {
		record := applied[i]
		migration, exists := migrationMap[record.Version]
		if !exists {
			return done, fmt.Errorf("migration file not found for version %s", record.Version)
		}
		if err := e.Rollback(ctx, migration); err != nil {
			return done, fmt.Errorf("failed to rollback migration %s: %w", record.Version, err)
		}
		done = append(done, record.Version)
	}
	return done, nil
}

// GetStatus returns the status of all known migrations.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	recorded, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	recordMap := make(map[string]MigrationRecord)
	for _, m := range recorded {
		recordMap[m.Version] = m
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, migration := range migrations {
		if record, exists := recordMap[migration.Version]; exists {
			records = append(records, record)
			continue
		}
		records = append(records, MigrationRecord{
			Version: migration.Version,
			Name:    migration.Name,
			Status:  StatusPending,
		})
	}
	return records, nil
}

// splitSQL splits a SQL script into statements on semicolons that are not
// inside quotes, dollar-quoted bodies or comments.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
		dollarTag  string
		inSingle   bool
		inLine     bool
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]

		switch {
		case inLine:
			if c == '\n' {
				inLine = false
				current.WriteByte(c)
			}
			continue
		case dollarTag != "":
			if strings.HasPrefix(script[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			inLine = true
			continue
		case c == '\'':
			inSingle = true
		case c == '$':
			if tag, ok := readDollarTag(script[i:]); ok {
				dollarTag = tag
				current.WriteString(tag)
				i += len(tag) - 1
				continue
			}
		case c == ';':
			flush()
			continue
		}
		current.WriteByte(c)
	}
	flush()

	return statements
}

// readDollarTag returns the $tag$ opening at the start of s.
func readDollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1], true
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' && j > 1) {
			return "", false
		}
	}
	return "", false
}
