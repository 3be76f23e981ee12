package store

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
	maxPasswordLen = 72
)

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// compareDummy spends one bcrypt comparison so an unknown username costs
// the same as a wrong password.
func (s *Store) compareDummy(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-placeholder"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

type credentials struct {
	id       int64
	hash     string
	isBanned bool
}

func scanCredentials(row pgx.Row) (credentials, error) {
	var c credentials
	err := row.Scan(&c.id, &c.hash, &c.isBanned)
	return c, err
}

// ValidateUser checks a username and password and returns the user id.
func (s *Store) ValidateUser(ctx context.Context, username, password string) (int64, error) {
	const op = "ValidateUser"

	// PostgreSQL rejects these bytes outright; treat them as an unknown user
	if !utf8.ValidString(username) || strings.ContainsRune(username, 0) {
		s.compareDummy(password)
		return 0, s.finish(op, nil, ErrInvalidCredentials)
	}

	creds, err := runtime.QueryOne(ctx, s.db, scanCredentials,
		`SELECT id, password_hash, is_banned FROM users WHERE username = $1`, username)
	if errors.Is(err, runtime.ErrNotFound) {
		s.compareDummy(password)
		return 0, s.finish(op, nil, ErrInvalidCredentials)
	}
	if err != nil {
		return 0, s.finish(op, nil, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.hash), []byte(password)); err != nil {
		return 0, s.finish(op, nil, ErrInvalidCredentials)
	}
	if creds.isBanned {
		return 0, s.finish(op, logrus.Fields{"user_id": creds.id}, ErrAccountBanned)
	}
	return creds.id, nil
}

// RegisterUser creates an account and returns its id.
func (s *Store) RegisterUser(ctx context.Context, username, email, password string) (int64, error) {
	const op = "RegisterUser"

	if err := validateRegistration(username, email, password); err != nil {
		return 0, s.finish(op, nil, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, s.finish(op, nil, err)
	}

	id, err := runtime.QueryOne(ctx, s.db, scanID,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		username, email, string(hash))
	if err != nil {
		if constraint, ok := runtime.IsUniqueViolation(err); ok {
			switch constraint {
			case "users_username_key":
				err = ErrDuplicateUsername
			case "users_email_key":
				err = ErrDuplicateEmail
			default:
				err = errors.Join(ErrIntegrity, err)
			}
		}
		return 0, s.finish(op, nil, err)
	}

	s.log.WithFields(logrus.Fields{"op": op, "user_id": id}).Info("user registered")
	return id, nil
}

func validateRegistration(username, email, password string) error {
	n := utf8.RuneCountInString(username)
	if strings.TrimSpace(username) != username || n < minUsernameLen || n > maxUsernameLen {
		return &runtime.ValidationError{Field: "username", Message: "must be 3 to 50 characters without surrounding spaces"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &runtime.ValidationError{Field: "email", Message: "must be a single address"}
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return &runtime.ValidationError{Field: "password", Message: "must be 8 to 72 bytes"}
	}
	return nil
}

func scanID(row pgx.Row) (int64, error) {
	var id int64
	err := row.Scan(&id)
	return id, err
}
