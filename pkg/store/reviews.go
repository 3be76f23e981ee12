package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/sirupsen/logrus"
)

const (
	minRating = 1
	maxRating = 5
)

// foreignKeyErrors maps referencing constraints to the missing record.
var foreignKeyErrors = map[string]error{
	"reviews_user_id_fkey":           ErrUserNotFound,
	"reviews_game_id_fkey":           ErrGameNotFound,
	"review_comments_review_id_fkey": ErrReviewNotFound,
	"review_comments_user_id_fkey":   ErrUserNotFound,
}

func translateForeignKey(err error) error {
	if constraint, ok := runtime.IsForeignKeyViolation(err); ok {
		if mapped, ok := foreignKeyErrors[constraint]; ok {
			return mapped
		}
		return errors.Join(ErrIntegrity, err)
	}
	return err
}

// AddOrUpdateReview writes userID's review of gameID, replacing any earlier
// one, and returns the review id. A nil rating leaves the review unrated.
func (s *Store) AddOrUpdateReview(ctx context.Context, userID, gameID int64, text string, rating *int) (int64, error) {
	const op = "AddOrUpdateReview"
	fields := logrus.Fields{"user_id": userID, "game_id": gameID}

	text = strings.TrimSpace(text)
	if text == "" {
		return 0, s.finish(op, fields, &runtime.ValidationError{Field: "review_text", Message: "must not be empty"})
	}
	if rating != nil && (*rating < minRating || *rating > maxRating) {
		return 0, s.finish(op, fields, &runtime.ValidationError{Field: "rating", Message: "must be between 1 and 5"})
	}

	id, err := runtime.QueryOne(ctx, s.db, scanID, `
		INSERT INTO reviews (user_id, game_id, review_text, rating)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, game_id) DO UPDATE
		SET review_text = EXCLUDED.review_text, rating = EXCLUDED.rating, review_date = NOW()
		RETURNING id`, userID, gameID, text, rating)
	if err != nil {
		return 0, s.finish(op, fields, translateForeignKey(err))
	}
	return id, nil
}

func scanReview(row pgx.Row) (models.Review, error) {
	var r models.Review
	err := row.Scan(&r.ID, &r.UserID, &r.Username, &r.GameID, &r.Text, &r.Rating, &r.ReviewDate)
	return r, err
}

// FetchGameReviews lists a game's reviews, newest first.
func (s *Store) FetchGameReviews(ctx context.Context, gameID int64) ([]models.Review, error) {
	reviews, err := runtime.QueryAll(ctx, s.db, scanReview, `
		SELECT r.id, r.user_id, u.username, r.game_id, r.review_text, r.rating, r.review_date
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.game_id = $1
		ORDER BY r.review_date DESC, r.id DESC`, gameID)
	if err != nil {
		return nil, s.finish("FetchGameReviews", logrus.Fields{"game_id": gameID}, err)
	}
	return reviews, nil
}

// AddReviewComment adds userID's comment to a review and returns its id.
func (s *Store) AddReviewComment(ctx context.Context, reviewID, userID int64, text string) (int64, error) {
	const op = "AddReviewComment"
	fields := logrus.Fields{"review_id": reviewID, "user_id": userID}

	text = strings.TrimSpace(text)
	if text == "" {
		return 0, s.finish(op, fields, &runtime.ValidationError{Field: "comment_text", Message: "must not be empty"})
	}

	id, err := runtime.QueryOne(ctx, s.db, scanID, `
		INSERT INTO review_comments (review_id, user_id, comment_text)
		VALUES ($1, $2, $3)
		RETURNING id`, reviewID, userID, text)
	if err != nil {
		return 0, s.finish(op, fields, translateForeignKey(err))
	}
	return id, nil
}

func scanComment(row pgx.Row) (models.ReviewComment, error) {
	var c models.ReviewComment
	err := row.Scan(&c.ID, &c.ReviewID, &c.UserID, &c.Username, &c.Text, &c.CommentDate)
	return c, err
}

// FetchReviewComments lists a review's comments, oldest first.
func (s *Store) FetchReviewComments(ctx context.Context, reviewID int64) ([]models.ReviewComment, error) {
	comments, err := runtime.QueryAll(ctx, s.db, scanComment, `
		SELECT c.id, c.review_id, c.user_id, u.username, c.comment_text, c.comment_date
		FROM review_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.review_id = $1
		ORDER BY c.comment_date ASC, c.id ASC`, reviewID)
	if err != nil {
		return nil, s.finish("FetchReviewComments", logrus.Fields{"review_id": reviewID}, err)
	}
	return comments, nil
}
