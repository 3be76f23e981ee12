package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDeveloperStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM developers d")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id", "name", "role"}).
			AddRow(ptr(int64(4)), ptr("Nightjar"), RoleOwner))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM developers d")).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id", "name", "role"}))
	mock.ExpectRollback()

	status, err := s.CheckDeveloperStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, status.IsDeveloper)
	assert.Equal(t, RoleOwner, status.Role)
	require.NotNil(t, status.StudioName)
	assert.Equal(t, "Nightjar", *status.StudioName)

	status, err = s.CheckDeveloperStatus(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, status.IsDeveloper)
}

func TestSetDeveloperStatusEnable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(userEmailSQL)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("dev@example.com"))
	mock.ExpectExec(q("INSERT INTO developers (user_id, contact_email)")).
		WithArgs(int64(3), "dev@example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	assert.NoError(t, s.SetDeveloperStatus(context.Background(), 3, true))
}

func TestSetDeveloperStatusEnableWithoutEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(userEmailSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow(""))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.SetDeveloperStatus(context.Background(), 3, true), ErrContactEmailMissing)
}

func TestSetDeveloperStatusDisableRequiresLeavingStudio(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockDeveloperSQL)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id"}).AddRow(ptr(int64(4))))
	// The developer row must not be deleted
	mock.ExpectRollback()

	assert.ErrorIs(t, s.SetDeveloperStatus(context.Background(), 3, false), ErrLeaveStudioFirst)
}

func TestSetDeveloperStatusDisable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockDeveloperSQL)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id"}).AddRow((*int64)(nil)))
	mock.ExpectExec(q(deleteDeveloperSQL)).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	assert.NoError(t, s.SetDeveloperStatus(context.Background(), 3, false))
}

func TestLeaveStudio(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE developers SET studio_id = NULL")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE developers SET studio_id = NULL")).
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	assert.NoError(t, s.LeaveStudio(context.Background(), 3))
	assert.ErrorIs(t, s.LeaveStudio(context.Background(), 8), ErrNotDeveloper)
}

func TestCreateStudio(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockDeveloperSQL)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id"}).AddRow((*int64)(nil)))
	mock.ExpectQuery(q("INSERT INTO studios")).
		WithArgs("Nightjar", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectExec(q("UPDATE developers SET studio_id = $1, role = $2")).
		WithArgs(int64(4), RoleOwner, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	id, err := s.CreateStudio(context.Background(), 3, StudioInput{Name: " Nightjar "})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestCreateStudioRefusals(t *testing.T) {
	t.Run("not a developer", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockDeveloperSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"studio_id"}))
		mock.ExpectRollback()

		_, err := s.CreateStudio(context.Background(), 3, StudioInput{Name: "Nightjar"})
		assert.ErrorIs(t, err, ErrNotDeveloper)
	})

	t.Run("already in a studio", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockDeveloperSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"studio_id"}).AddRow(ptr(int64(1))))
		mock.ExpectRollback()

		_, err := s.CreateStudio(context.Background(), 3, StudioInput{Name: "Nightjar"})
		assert.ErrorIs(t, err, ErrAlreadyInStudio)
	})

	t.Run("duplicate name", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(lockDeveloperSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"studio_id"}).AddRow((*int64)(nil)))
		mock.ExpectQuery(q("INSERT INTO studios")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "studios_name_key"})
		mock.ExpectRollback()

		_, err := s.CreateStudio(context.Background(), 3, StudioInput{Name: "Nightjar"})
		assert.ErrorIs(t, err, ErrDuplicateStudio)
	})
}
