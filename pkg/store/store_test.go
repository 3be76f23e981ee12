package store

import (
	"context"
	"io"
	"regexp"
	"testing"

	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newMockStore returns a store whose session talks to a pgxmock connection.
func newMockStore(t *testing.T) (*Store, pgxmock.PgxConnIface) {
	t.Helper()

	mock, err := pgxmock.NewConn()
	require.NoError(t, err)

	session := runtime.NewSession(runtime.Config{}, runtime.WithConnector(
		func(context.Context, runtime.Config) (runtime.Conn, error) {
			return mock, nil
		},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return New(session, WithLogger(log), WithBcryptCost(bcrypt.MinCost)), mock
}

// q matches a statement by a literal fragment.
func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

// money matches a decimal argument by value.
type money string

func (m money) Match(v any) bool {
	want := dec(string(m))
	switch got := v.(type) {
	case decimal.Decimal:
		return got.Equal(want)
	case *decimal.Decimal:
		return got != nil && got.Equal(want)
	}
	return false
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// expectActor queues the roles lookup for a user.
func expectActor(mock pgxmock.PgxConnIface, id int64, admin, banned, developer bool, studioID *int64) {
	mock.ExpectQuery(q("SELECT u.id, u.is_app_admin")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_app_admin", "is_banned", "is_developer", "studio_id"}).
			AddRow(id, admin, banned, developer, studioID))
}

// expectNoActor queues a roles lookup that finds nobody.
func expectNoActor(mock pgxmock.PgxConnIface, id int64) {
	mock.ExpectQuery(q("SELECT u.id, u.is_app_admin")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "is_app_admin", "is_banned", "is_developer", "studio_id"}))
}
