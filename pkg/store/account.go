package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func scanUserInfo(row pgx.Row) (models.UserInfo, error) {
	var u models.UserInfo
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Balance, &u.IsAppAdmin, &u.IsBanned, &u.CreatedAt,
		&u.IsDeveloper, &u.StudioID, &u.StudioName)
	return u, err
}

// FetchUserInfo returns a user's profile and developer standing.
func (s *Store) FetchUserInfo(ctx context.Context, userID int64) (models.UserInfo, error) {
	info, err := runtime.QueryOne(ctx, s.db, scanUserInfo, `
		SELECT u.id, u.username, u.email, u.balance, u.is_app_admin, u.is_banned, u.created_at,
			d.id IS NOT NULL, d.studio_id, st.name
		FROM users u
		LEFT JOIN developers d ON d.user_id = u.id
		LEFT JOIN studios st ON st.id = d.studio_id
		WHERE u.id = $1`, userID)
	if errors.Is(err, runtime.ErrNotFound) {
		err = ErrUserNotFound
	}
	if err != nil {
		return models.UserInfo{}, s.finish("FetchUserInfo", logrus.Fields{"user_id": userID}, err)
	}
	return info, nil
}

// AddFunds credits amount to userID and returns the new balance.
func (s *Store) AddFunds(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "AddFunds"
	fields := logrus.Fields{"user_id": userID}

	amount = amount.Round(2)
	if !amount.IsPositive() || amount.GreaterThan(MaxTopUp) {
		err := fmt.Errorf("%w: %s must be above 0 and at most %s", ErrInvalidAmount, amount.StringFixed(2), MaxTopUp.StringFixed(2))
		return decimal.Zero, s.finish(op, fields, err)
	}

	balance, err := runtime.QueryOne(ctx, s.db, func(row pgx.Row) (decimal.Decimal, error) {
		var b decimal.Decimal
		err := row.Scan(&b)
		return b, err
	}, `UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`, amount, userID)
	if errors.Is(err, runtime.ErrNotFound) {
		err = ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithField("op", op).Info("funds added")
	return balance, nil
}

// DeleteUserAccount deletes a regular account together with its purchases,
// reviews and notifications. Admin and developer accounts are refused.
func (s *Store) DeleteUserAccount(ctx context.Context, userID int64) error {
	const op = "DeleteUserAccount"
	fields := logrus.Fields{"user_id": userID}

	const deleteUserSQL = `DELETE FROM users WHERE id = $1`

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		a, err := loadActor(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if a.IsAdmin || a.IsDeveloper {
			return ErrPrivilegedAccount
		}
		tag, err := tx.Exec(ctx, deleteUserSQL, userID)
		if err != nil {
			return &runtime.QueryError{Query: deleteUserSQL, Err: err}
		}
		if n := tag.RowsAffected(); n != 1 {
			return fmt.Errorf("%w: user delete affected %d rows", ErrIntegrity, n)
		}
		return nil
	})
	if err != nil {
		return s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithField("op", op).Info("account deleted")
	return nil
}

// LookupUserID resolves a username to its id.
func (s *Store) LookupUserID(ctx context.Context, username string) (int64, error) {
	id, err := runtime.QueryOne(ctx, s.db, scanID, `SELECT id FROM users WHERE username = $1`, username)
	if errors.Is(err, runtime.ErrNotFound) {
		err = ErrUserNotFound
	}
	if err != nil {
		return 0, s.finish("LookupUserID", nil, err)
	}
	return id, nil
}
