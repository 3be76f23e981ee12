package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closableConn lets a test flip the closed state the session observes.
type closableConn struct {
	pgxmock.PgxConnIface
	closed bool
}

func (c *closableConn) IsClosed() bool {
	return c.closed
}

func newMockSession(t *testing.T) (*Session, pgxmock.PgxConnIface) {
	t.Helper()

	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return NewSession(Config{}, WithConnector(func(context.Context, Config) (Conn, error) {
		return mock, nil
	})), mock
}

type pair struct {
	ID   int64
	Name string
}

func scanPair(row pgx.Row) (pair, error) {
	var p pair
	err := row.Scan(&p.ID, &p.Name)
	return p, err
}

func TestSessionExec(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE games").WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectCommit()

	n, err := s.Exec(context.Background(), "UPDATE games SET status = 'Released' WHERE studio_id = $1", int64(1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSessionExecRollsBackOnError(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := s.Exec(context.Background(), "DELETE FROM games WHERE id = $1", int64(1))
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "DELETE FROM games WHERE id = $1", qerr.Query)
}

func TestQueryOne(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(4), "Nightjar"))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").WillReturnRows(pgxmock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	got, err := QueryOne(context.Background(), s, scanPair, "SELECT id, name FROM studios WHERE id = $1", int64(4))
	require.NoError(t, err)
	assert.Equal(t, pair{ID: 4, Name: "Nightjar"}, got)

	_, err = QueryOne(context.Background(), s, scanPair, "SELECT id, name FROM studios WHERE id = $1", int64(5))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryAll(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
		AddRow(int64(1), "a").
		AddRow(int64(2), "b"))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name").WillReturnRows(pgxmock.NewRows([]string{"id", "name"}))
	mock.ExpectCommit()

	got, err := QueryAll(context.Background(), s, scanPair, "SELECT id, name FROM studios ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []pair{{1, "a"}, {2, "b"}}, got)

	got, err = QueryAll(context.Background(), s, scanPair, "SELECT id, name FROM studios ORDER BY id")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExecBatch(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO studios").WithArgs("a").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO studios").WithArgs("b").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.ExecBatch(context.Background(), "INSERT INTO studios (name) VALUES ($1)", [][]any{{"a"}, {"b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestExecBatchIsAtomic(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO studios").WithArgs("a").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO studios").WithArgs("a").WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	n, err := s.ExecBatch(context.Background(), "INSERT INTO studios (name) VALUES ($1)", [][]any{{"a"}, {"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch item 1")
	assert.Zero(t, n)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	s, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.WithTx(context.Background(), func(pgx.Tx) error {
			panic("kaboom")
		})
	})

	// The mutex is released after the panic
	mock.ExpectBegin()
	mock.ExpectCommit()
	assert.NoError(t, s.WithTx(context.Background(), func(pgx.Tx) error { return nil }))
}

func TestSessionReconnectsOnce(t *testing.T) {
	first, err := pgxmock.NewConn()
	require.NoError(t, err)
	second, err := pgxmock.NewConn()
	require.NoError(t, err)

	stale := &closableConn{PgxConnIface: first}
	conns := []Conn{stale, second}
	calls := 0
	s := NewSession(Config{}, WithConnector(func(context.Context, Config) (Conn, error) {
		c := conns[calls]
		calls++
		return c, nil
	}))

	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, 1, calls)

	stale.closed = true
	first.ExpectClose()
	second.ExpectPing()
	require.NoError(t, s.WithConn(context.Background(), func(conn Conn) error {
		return conn.Ping(context.Background())
	}))
	assert.Equal(t, 2, calls)

	assert.NoError(t, first.ExpectationsWereMet())
	assert.NoError(t, second.ExpectationsWereMet())
}

func TestSessionConnectFailure(t *testing.T) {
	s := NewSession(Config{}, WithConnector(func(context.Context, Config) (Conn, error) {
		return nil, errors.New("connection refused")
	}))

	err := s.Open(context.Background())
	require.ErrorIs(t, err, ErrNoConnection)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSessionClosed(t *testing.T) {
	s, mock := newMockSession(t)

	require.NoError(t, s.Open(context.Background()))
	mock.ExpectClose()
	require.NoError(t, s.Close(context.Background()))

	err := s.WithConn(context.Background(), func(Conn) error { return nil })
	assert.ErrorIs(t, err, ErrSessionClosed)
}
