package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/sirupsen/logrus"
)

// DefaultRequestMessage is stored when a developer request has no message.
const DefaultRequestMessage = "Requesting developer status"

// CreateDeveloperStatusRequest queues a request for userID to become a
// developer and returns the notification id.
func (s *Store) CreateDeveloperStatusRequest(ctx context.Context, userID int64, message string) (int64, error) {
	const op = "CreateDeveloperStatusRequest"
	fields := logrus.Fields{"user_id": userID}

	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultRequestMessage
	}

	const (
		pendingSQL = `
			SELECT EXISTS (
				SELECT 1 FROM admin_notifications
				WHERE user_id = $1 AND notification_type = $2 AND status = 'pending'
			)`
		insertRequestSQL = `
			INSERT INTO admin_notifications (user_id, target_user_id, notification_type, message, status)
			VALUES ($1, $1, $2, $3, 'pending')
			RETURNING id`
	)

	var id int64
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		// Locking the requester serialises concurrent requests.
		a, err := loadActor(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if a.IsDeveloper {
			return ErrAlreadyDeveloper
		}

		var pending bool
		if err := tx.QueryRow(ctx, pendingSQL, userID, models.NotificationDeveloperRequest).Scan(&pending); err != nil {
			return &runtime.QueryError{Query: pendingSQL, Err: err}
		}
		if pending {
			return ErrRequestAlreadyPending
		}

		if err := tx.QueryRow(ctx, insertRequestSQL, userID, models.NotificationDeveloperRequest, message).Scan(&id); err != nil {
			return &runtime.QueryError{Query: insertRequestSQL, Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithFields(logrus.Fields{"op": op, "notification_id": id}).Info("developer request queued")
	return id, nil
}

// ProcessDeveloperStatusRequest approves or rejects a pending developer
// request. Approval grants developer status in the same transaction.
func (s *Store) ProcessDeveloperStatusRequest(ctx context.Context, adminID, notificationID int64, approve bool) error {
	const op = "ProcessDeveloperStatusRequest"
	fields := logrus.Fields{"admin_id": adminID, "notification_id": notificationID, "approve": approve}

	const (
		lockNotificationSQL = `
			SELECT user_id, target_user_id, notification_type, status
			FROM admin_notifications
			WHERE id = $1
			FOR UPDATE`
		reviewSQL = `
			UPDATE admin_notifications
			SET status = $1, reviewed_by = $2, reviewed_at = NOW()
			WHERE id = $3 AND status = 'pending'`
	)

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := requireAdmin(ctx, tx, adminID); err != nil {
			return err
		}

		var (
			requester int64
			target    *int64
			kind      string
			status    models.NotificationStatus
		)
		if err := tx.QueryRow(ctx, lockNotificationSQL, notificationID).Scan(&requester, &target, &kind, &status); err != nil {
			return queryRowErr(err, lockNotificationSQL, ErrNotificationNotFound)
		}
		if status != models.NotificationPending {
			return ErrNotificationNotPending
		}
		if kind != models.NotificationDeveloperRequest {
			return fmt.Errorf("%w: %s", ErrUnsupportedNotification, kind)
		}

		next := models.NotificationRejected
		if approve {
			subject := requester
			if target != nil {
				subject = *target
			}
			if err := grantDeveloper(ctx, tx, subject); err != nil {
				return err
			}
			next = models.NotificationApproved
		}

		tag, err := tx.Exec(ctx, reviewSQL, next, adminID, notificationID)
		if err != nil {
			return &runtime.QueryError{Query: reviewSQL, Err: err}
		}
		if n := tag.RowsAffected(); n != 1 {
			return fmt.Errorf("%w: notification update affected %d rows", ErrIntegrity, n)
		}
		return nil
	})
	if err != nil {
		return s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithField("op", op).Info("developer request processed")
	return nil
}

func scanNotification(row pgx.Row) (models.AdminNotification, error) {
	var n models.AdminNotification
	err := row.Scan(&n.ID, &n.UserID, &n.Username, &n.TargetUserID, &n.Type, &n.Message,
		&n.Status, &n.CreatedAt, &n.ReviewedBy, &n.ReviewedAt)
	return n, err
}

// FetchPendingNotifications lists the moderation queue, oldest first.
func (s *Store) FetchPendingNotifications(ctx context.Context, adminID int64) ([]models.AdminNotification, error) {
	const pendingQueueSQL = `
		SELECT n.id, n.user_id, u.username, n.target_user_id, n.notification_type, n.message,
			n.status, n.created_at, n.reviewed_by, n.reviewed_at
		FROM admin_notifications n
		JOIN users u ON u.id = n.user_id
		WHERE n.status = 'pending'
		ORDER BY n.created_at ASC, n.id ASC`

	var queue []models.AdminNotification
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := requireAdmin(ctx, tx, adminID); err != nil {
			return err
		}
		var err error
		queue, err = runtime.ScanAll(ctx, tx, scanNotification, pendingQueueSQL)
		return err
	})
	if err != nil {
		return nil, s.finish("FetchPendingNotifications", logrus.Fields{"admin_id": adminID}, err)
	}
	return queue, nil
}

// moderationTarget checks that adminID may moderate targetID and returns
// the locked target.
func moderationTarget(ctx context.Context, tx pgx.Tx, adminID, targetID int64) (actor, error) {
	if _, err := requireAdmin(ctx, tx, adminID); err != nil {
		return actor{}, err
	}
	target, err := loadActor(ctx, tx, targetID, true)
	if err != nil {
		return actor{}, err
	}
	if target.IsAdmin && target.ID != adminID {
		return actor{}, ErrCannotModerateAdmin
	}
	return target, nil
}

// SetUserBanStatus bans or unbans targetID.
func (s *Store) SetUserBanStatus(ctx context.Context, adminID, targetID int64, banned bool) error {
	const op = "SetUserBanStatus"
	fields := logrus.Fields{"admin_id": adminID, "target_id": targetID, "banned": banned}

	const banSQL = `UPDATE users SET is_banned = $1 WHERE id = $2`

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if adminID == targetID && banned {
			if _, err := requireAdmin(ctx, tx, adminID); err != nil {
				return err
			}
			return ErrCannotBanSelf
		}
		if _, err := moderationTarget(ctx, tx, adminID, targetID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, banSQL, banned, targetID); err != nil {
			return &runtime.QueryError{Query: banSQL, Err: err}
		}
		return nil
	})
	if err != nil {
		return s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithField("op", op).Info("ban status set")
	return nil
}

// AdminSetDeveloperStatus grants or revokes developer status for targetID
// on behalf of adminID.
func (s *Store) AdminSetDeveloperStatus(ctx context.Context, adminID, targetID int64, enable bool) error {
	const op = "AdminSetDeveloperStatus"
	fields := logrus.Fields{"admin_id": adminID, "target_id": targetID, "enable": enable}

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := moderationTarget(ctx, tx, adminID, targetID); err != nil {
			return err
		}
		return setDeveloperStatus(ctx, tx, targetID, enable)
	})
	if err != nil {
		return s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithField("op", op).Info("developer status set")
	return nil
}
