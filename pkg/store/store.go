// Package store is the storefront's data-access layer. Every exported
// operation runs as one unit of work on the caller's runtime.Session.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Store runs storefront operations against a session.
type Store struct {
	db   *runtime.Session
	log  logrus.FieldLogger
	cost int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used at operation boundaries.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithBcryptCost sets the bcrypt cost used for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Store) {
		s.cost = cost
	}
}

// New creates a Store on session.
func New(session *runtime.Session, opts ...Option) *Store {
	s := &Store{
		db:   session,
		log:  logrus.StandardLogger(),
		cost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session the store runs on.
func (s *Store) Session() *runtime.Session {
	return s.db
}

// finish logs err once for op. Expected outcomes are returned unchanged,
// anything else is wrapped with the operation name.
func (s *Store) finish(op string, fields logrus.Fields, err error) error {
	if err == nil {
		return nil
	}
	entry := s.log.WithFields(fields).WithField("op", op)
	if isExpected(err) {
		entry.WithError(err).Debug("operation refused")
		return err
	}
	entry.WithError(err).Error("operation failed")
	return fmt.Errorf("%s: %w", op, err)
}

// actor is the authorisation view of a user.
type actor struct {
	ID          int64
	IsAdmin     bool
	IsBanned    bool
	IsDeveloper bool
	StudioID    *int64
}

const actorSQL = `
	SELECT u.id, u.is_app_admin, u.is_banned, d.id IS NOT NULL, d.studio_id
	FROM users u
	LEFT JOIN developers d ON d.user_id = u.id
	WHERE u.id = $1`

// loadActor reads a user's roles inside tx. A missing user is ErrUserNotFound.
func loadActor(ctx context.Context, tx pgx.Tx, userID int64, lock bool) (actor, error) {
	query := actorSQL
	if lock {
		query += "\n\tFOR UPDATE OF u"
	}
	var a actor
	err := tx.QueryRow(ctx, query, userID).Scan(&a.ID, &a.IsAdmin, &a.IsBanned, &a.IsDeveloper, &a.StudioID)
	if errors.Is(err, pgx.ErrNoRows) {
		return actor{}, ErrUserNotFound
	}
	if err != nil {
		return actor{}, &runtime.QueryError{Query: query, Err: err}
	}
	return a, nil
}

// requireAdmin loads adminID and checks it is an unbanned admin.
func requireAdmin(ctx context.Context, tx pgx.Tx, adminID int64) (actor, error) {
	a, err := loadActor(ctx, tx, adminID, false)
	if errors.Is(err, ErrUserNotFound) {
		return actor{}, ErrNotAdmin
	}
	if err != nil {
		return actor{}, err
	}
	if !a.IsAdmin || a.IsBanned {
		return actor{}, ErrNotAdmin
	}
	return a, nil
}

// queryRowErr translates a single-row scan error.
func queryRowErr(err error, query string, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return &runtime.QueryError{Query: query, Err: err}
}
