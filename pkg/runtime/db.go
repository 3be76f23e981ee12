package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the subset of *pgx.Conn the session needs.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Connector opens a new connection for the given config.
type Connector func(ctx context.Context, cfg Config) (Conn, error)

// Session holds one database connection for the lifetime of an
// application session. The connection is opened lazily and reopened once
// if it is found closed.
type Session struct {
	cfg     Config
	connect Connector

	mu     sync.Mutex
	conn   Conn
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithConnector replaces the default pgx connector.
func WithConnector(c Connector) Option {
	return func(s *Session) {
		s.connect = c
	}
}

// NewSession creates a session for cfg. No connection is made until the
// first call that needs one.
func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		cfg:     cfg,
		connect: Connect,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens a pgx connection and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (Conn, error) {
	connConfig, err := pgx.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// Open establishes the connection eagerly.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.acquire(ctx)
	return err
}

// Close closes the held connection. The session cannot be reused.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(ctx)
	s.conn = nil
	return err
}

// Config returns the configuration snapshot used by the session.
func (s *Session) Config() Config {
	return s.cfg
}

// WithConn runs fn with the working connection held exclusively.
func (s *Session) WithConn(ctx context.Context, fn func(conn Conn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	return fn(conn)
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic.
func (s *Session) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return s.WithConn(ctx, func(conn Conn) error {
		return runTx(ctx, conn, fn)
	})
}

// Exec executes a statement as its own unit of work and returns the number
// of affected rows.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return &QueryError{Query: sql, Err: err}
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// ExecBatch executes sql once per argument set inside a single unit of
// work and returns the total number of affected rows.
func (s *Session) ExecBatch(ctx context.Context, sql string, argSets [][]any) (int64, error) {
	var total int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		for i, args := range argSets {
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, &QueryError{Query: sql, Err: err})
			}
			total += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// RowScanner maps one result row to a named record.
type RowScanner[T any] func(row pgx.Row) (T, error)

// QueryOne runs a query as its own unit of work and scans exactly one row.
// ErrNotFound is returned when the query yields no rows.
func QueryOne[T any](ctx context.Context, s *Session, scan RowScanner[T], sql string, args ...any) (T, error) {
	var result T
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		result, err = ScanOne(tx.QueryRow(ctx, sql, args...), scan, sql)
		return err
	})
	return result, err
}

// QueryAll runs a query as its own unit of work and scans every row.
func QueryAll[T any](ctx context.Context, s *Session, scan RowScanner[T], sql string, args ...any) ([]T, error) {
	var results []T
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		results, err = ScanAll(ctx, tx, scan, sql, args...)
		return err
	})
	return results, err
}

// ScanOne scans a single row, translating pgx.ErrNoRows to ErrNotFound.
func ScanOne[T any](row pgx.Row, scan RowScanner[T], sql string) (T, error) {
	result, err := scan(row)
	if err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, &QueryError{Query: sql, Err: err}
	}
	return result, nil
}

// ScanAll runs a query on tx and scans every row.
func ScanAll[T any](ctx context.Context, tx pgx.Tx, scan RowScanner[T], sql string, args ...any) ([]T, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, &QueryError{Query: sql, Err: err}
	}
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, &QueryError{Query: sql, Err: err}
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: sql, Err: err}
	}
	return results, nil
}

// acquire returns a live connection, reconnecting at most once.
// The caller must hold s.mu.
func (s *Session) acquire(ctx context.Context) (Conn, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.conn != nil && !isClosed(s.conn) {
		return s.conn, nil
	}

	if s.conn != nil {
		_ = s.conn.Close(ctx)
		s.conn = nil
	}

	conn, err := s.connect(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	s.conn = conn
	return conn, nil
}

// isClosed reports whether the connection knows it is closed. Connections
// that cannot tell are assumed open.
func isClosed(conn Conn) bool {
	if c, ok := conn.(interface{ IsClosed() bool }); ok {
		return c.IsClosed()
	}
	return false
}

func runTx(ctx context.Context, conn Conn, fn func(tx pgx.Tx) error) (err error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
