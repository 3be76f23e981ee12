// Package runtime owns the database session, the unit-of-work query
// helpers and the error types shared by the storefront packages.
package runtime

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrNoConnection is returned when no database connection is available.
	ErrNoConnection = errors.New("no database connection")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session closed")
)

// PostgreSQL SQLSTATE codes the store layer translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// ConfigError is a fatal configuration problem. It is never retried.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error (%s): %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("config error (%s): %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// QueryError represents a query execution error. Parameter values are
// never recorded.
type QueryError struct {
	Query string
	Err   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a unique constraint violation
// and returns the violated constraint name.
func IsUniqueViolation(err error) (string, bool) {
	return constraintViolation(err, codeUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a foreign key violation
// and returns the violated constraint name.
func IsForeignKeyViolation(err error) (string, bool) {
	return constraintViolation(err, codeForeignKeyViolation)
}

// IsCheckViolation reports whether err is a CHECK constraint violation
// and returns the violated constraint name.
func IsCheckViolation(err error) (string, bool) {
	return constraintViolation(err, codeCheckViolation)
}

func constraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}
