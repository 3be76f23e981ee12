package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddOrUpdateReview(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("ON CONFLICT (user_id, game_id) DO UPDATE")).
		WithArgs(int64(1), int64(10), "Great game", ptr(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectCommit()

	id, err := s.AddOrUpdateReview(context.Background(), 1, 10, " Great game ", ptr(5))
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestAddOrUpdateReviewValidation(t *testing.T) {
	s, _ := newMockStore(t)

	for _, rating := range []int{0, 6, -1} {
		_, err := s.AddOrUpdateReview(context.Background(), 1, 10, "text", ptr(rating))
		var verr *runtime.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "rating", verr.Field)
	}

	_, err := s.AddOrUpdateReview(context.Background(), 1, 10, "   ", nil)
	var verr *runtime.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "review_text", verr.Field)
}

func TestAddOrUpdateReviewUnknownReferences(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"reviews_user_id_fkey", ErrUserNotFound},
		{"reviews_game_id_fkey", ErrGameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectBegin()
			mock.ExpectQuery(q("INSERT INTO reviews")).
				WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: tt.constraint})
			mock.ExpectRollback()

			_, err := s.AddOrUpdateReview(context.Background(), 1, 10, "text", nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchGameReviews(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("ORDER BY r.review_date DESC, r.id DESC")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "username", "game_id", "review_text", "rating", "review_date"}).
			AddRow(int64(4), int64(2), "bob", int64(10), "Meh", nil, now).
			AddRow(int64(3), int64(1), "alice", int64(10), "Great", ptr(5), now.Add(-time.Hour)))
	mock.ExpectCommit()

	reviews, err := s.FetchGameReviews(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Nil(t, reviews[0].Rating)
	require.NotNil(t, reviews[1].Rating)
	assert.Equal(t, 5, *reviews[1].Rating)
}

func TestAddReviewComment(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO review_comments")).
		WithArgs(int64(3), int64(2), "agreed").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO review_comments")).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "review_comments_review_id_fkey"})
	mock.ExpectRollback()

	id, err := s.AddReviewComment(context.Background(), 3, 2, "agreed")
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	_, err = s.AddReviewComment(context.Background(), 404, 2, "hello?")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestFetchReviewComments(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("ORDER BY c.comment_date ASC, c.id ASC")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "review_id", "user_id", "username", "comment_text", "comment_date"}).
			AddRow(int64(11), int64(3), int64(2), "bob", "agreed", now))
	mock.ExpectCommit()

	comments, err := s.FetchReviewComments(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].Username)
}
