package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/sirupsen/logrus"
)

// RoleOwner is the developer role of a studio's founder.
const RoleOwner = "Owner"

func scanDeveloperStatus(row pgx.Row) (models.DeveloperStatus, error) {
	status := models.DeveloperStatus{IsDeveloper: true}
	err := row.Scan(&status.StudioID, &status.StudioName, &status.Role)
	return status, err
}

// CheckDeveloperStatus reports whether userID is a developer and which
// studio they belong to.
func (s *Store) CheckDeveloperStatus(ctx context.Context, userID int64) (models.DeveloperStatus, error) {
	status, err := runtime.QueryOne(ctx, s.db, scanDeveloperStatus, `
		SELECT d.studio_id, st.name, d.role
		FROM developers d
		LEFT JOIN studios st ON st.id = d.studio_id
		WHERE d.user_id = $1`, userID)
	if errors.Is(err, runtime.ErrNotFound) {
		return models.DeveloperStatus{}, nil
	}
	if err != nil {
		return models.DeveloperStatus{}, s.finish("CheckDeveloperStatus", logrus.Fields{"user_id": userID}, err)
	}
	return status, nil
}

// SetDeveloperStatus grants or revokes developer status. Revoking fails
// while the developer still belongs to a studio.
func (s *Store) SetDeveloperStatus(ctx context.Context, userID int64, enable bool) error {
	fields := logrus.Fields{"user_id": userID, "enable": enable}
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return setDeveloperStatus(ctx, tx, userID, enable)
	})
	if err != nil {
		return s.finish("SetDeveloperStatus", fields, err)
	}
	s.log.WithFields(fields).WithField("op", "SetDeveloperStatus").Info("developer status set")
	return nil
}

const (
	userEmailSQL       = `SELECT email FROM users WHERE id = $1`
	insertDeveloperSQL = `INSERT INTO developers (user_id, contact_email) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`
	lockDeveloperSQL   = `SELECT studio_id FROM developers WHERE user_id = $1 FOR UPDATE`
	deleteDeveloperSQL = `DELETE FROM developers WHERE user_id = $1`
)

func setDeveloperStatus(ctx context.Context, tx pgx.Tx, userID int64, enable bool) error {
	if enable {
		return grantDeveloper(ctx, tx, userID)
	}

	var studioID *int64
	if err := tx.QueryRow(ctx, lockDeveloperSQL, userID).Scan(&studioID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return &runtime.QueryError{Query: lockDeveloperSQL, Err: err}
	}
	if studioID != nil {
		return ErrLeaveStudioFirst
	}
	if _, err := tx.Exec(ctx, deleteDeveloperSQL, userID); err != nil {
		return &runtime.QueryError{Query: deleteDeveloperSQL, Err: err}
	}
	return nil
}

// grantDeveloper inserts the developer row using the account's email as
// the contact address. An existing developer row is left as it is.
func grantDeveloper(ctx context.Context, tx pgx.Tx, userID int64) error {
	var email string
	if err := tx.QueryRow(ctx, userEmailSQL, userID).Scan(&email); err != nil {
		return queryRowErr(err, userEmailSQL, ErrUserNotFound)
	}
	if strings.TrimSpace(email) == "" {
		return ErrContactEmailMissing
	}
	if _, err := tx.Exec(ctx, insertDeveloperSQL, userID, email); err != nil {
		return &runtime.QueryError{Query: insertDeveloperSQL, Err: err}
	}
	return nil
}

// LeaveStudio detaches a developer from their studio.
func (s *Store) LeaveStudio(ctx context.Context, userID int64) error {
	const op = "LeaveStudio"
	fields := logrus.Fields{"user_id": userID}

	n, err := s.db.Exec(ctx, `UPDATE developers SET studio_id = NULL, role = 'Developer' WHERE user_id = $1`, userID)
	if err == nil && n == 0 {
		err = ErrNotDeveloper
	}
	if err != nil {
		return s.finish(op, fields, err)
	}
	s.log.WithFields(fields).WithField("op", op).Info("left studio")
	return nil
}

// StudioInput holds the fields of a new studio.
type StudioInput struct {
	Name            string
	Website         *string
	LogoURL         *string
	Country         *string
	Description     *string
	EstablishedDate *time.Time
}

// CreateStudio creates a studio owned by userID, who must be a developer
// without a studio.
func (s *Store) CreateStudio(ctx context.Context, userID int64, in StudioInput) (int64, error) {
	const op = "CreateStudio"
	fields := logrus.Fields{"user_id": userID}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return 0, s.finish(op, fields, &runtime.ValidationError{Field: "name", Message: "must not be empty"})
	}

	const (
		insertStudioSQL = `
			INSERT INTO studios (name, website, logo_url, country, description, established_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		linkOwnerSQL = `UPDATE developers SET studio_id = $1, role = $2 WHERE user_id = $3`
	)

	var studioID int64
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var current *int64
		if err := tx.QueryRow(ctx, lockDeveloperSQL, userID).Scan(&current); err != nil {
			return queryRowErr(err, lockDeveloperSQL, ErrNotDeveloper)
		}
		if current != nil {
			return ErrAlreadyInStudio
		}

		err := tx.QueryRow(ctx, insertStudioSQL, in.Name, in.Website, in.LogoURL, in.Country,
			in.Description, in.EstablishedDate).Scan(&studioID)
		if err != nil {
			if constraint, ok := runtime.IsUniqueViolation(err); ok && constraint == "studios_name_key" {
				return ErrDuplicateStudio
			}
			return &runtime.QueryError{Query: insertStudioSQL, Err: err}
		}

		if _, err := tx.Exec(ctx, linkOwnerSQL, studioID, RoleOwner, userID); err != nil {
			return &runtime.QueryError{Query: linkOwnerSQL, Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithFields(logrus.Fields{"op": op, "studio_id": studioID}).Info("studio created")
	return studioID, nil
}
