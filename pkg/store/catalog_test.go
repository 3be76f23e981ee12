package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gameRowColumns = []string{
	"id", "title", "description", "price", "image_url", "status",
	"release_date", "studio_id", "created_at", "updated_at",
}

func gameRows() *pgxmock.Rows {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(gameRowColumns).
		AddRow(int64(2), "Free Thing", nil, decimal.NullDecimal{}, nil, models.GameAlpha, nil, nil, now, now).
		AddRow(int64(1), "Aurora", ptr("a space game"), decimal.NullDecimal{Decimal: dec("9.99"), Valid: true},
			nil, models.GameReleased, nil, ptr(int64(4)), now, now)
}

func TestResolveSort(t *testing.T) {
	tests := []struct {
		sortBy, sortOrder string
		wantKey           SortKey
		wantOrder         SortOrder
	}{
		{"title", "ASC", SortTitle, SortAsc},
		{"price", "desc", SortPrice, SortDesc},
		{" PRICE ", "Desc ", SortPrice, SortDesc},
		{"", "", SortTitle, SortAsc},
		{"id; DROP TABLE users", "DESC", SortTitle, SortDesc},
		{"price", "DESC; --", SortPrice, SortAsc},
		{"release_date", "sideways", SortTitle, SortAsc},
	}

	for _, tt := range tests {
		key, order := ResolveSort(tt.sortBy, tt.sortOrder)
		assert.Equal(t, tt.wantKey, key, "sortBy %q", tt.sortBy)
		assert.Equal(t, tt.wantOrder, order, "sortOrder %q", tt.sortOrder)
	}
}

func TestFetchAllGamesOrderClause(t *testing.T) {
	tests := []struct {
		sortBy, sortOrder string
		clause            string
	}{
		{"price", "ASC", "ORDER BY g.price ASC NULLS FIRST, g.title ASC"},
		{"price", "DESC", "ORDER BY g.price DESC NULLS LAST, g.title ASC"},
		{"title", "DESC", "ORDER BY g.title DESC, g.id ASC"},
		{"bogus", "bogus", "ORDER BY g.title ASC, g.id ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"_"+tt.sortOrder, func(t *testing.T) {
			s, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(q(tt.clause) + "$").WillReturnRows(gameRows())
			mock.ExpectCommit()

			games, err := s.FetchAllGames(context.Background(), tt.sortBy, tt.sortOrder)
			require.NoError(t, err)
			require.Len(t, games, 2)
			assert.False(t, games[0].Price.Valid)
			assert.True(t, games[1].Price.Decimal.Equal(dec("9.99")))
			require.NotNil(t, games[1].StudioID)
			assert.Equal(t, int64(4), *games[1].StudioID)
		})
	}
}

func TestFetchAllGamesEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM games g")).WillReturnRows(pgxmock.NewRows(gameRowColumns))
	mock.ExpectCommit()

	games, err := s.FetchAllGames(context.Background(), "", "")
	require.NoError(t, err)
	assert.NotNil(t, games)
	assert.Empty(t, games)
}

func TestFetchGameDetailsUnknownGame(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("LEFT JOIN studios st")).
		WithArgs(int64(77)).
		WillReturnRows(pgxmock.NewRows(append(gameRowColumns, "studio_name")))
	mock.ExpectRollback()

	_, err := s.FetchGameDetails(context.Background(), 77)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestFetchPurchasedGames(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("WHERE p.user_id = $1 AND p.status = 'Completed'")).
		WithArgs(int64(1)).
		WillReturnRows(gameRows())
	mock.ExpectCommit()

	games, err := s.FetchPurchasedGames(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestCheckOwnership(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	expectOwned(mock, 1, 10, true)
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT EXISTS")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	assert.True(t, s.CheckOwnership(context.Background(), 1, 10))
	assert.False(t, s.CheckOwnership(context.Background(), 1, 10))
}

func TestFetchPurchaseHistory(t *testing.T) {
	s, mock := newMockStore(t)
	when := time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM purchases")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "total_amount", "status", "purchase_date"}).
			AddRow(int64(8), int64(1), dec("5.00"), models.PurchaseCompleted, when).
			AddRow(int64(7), int64(1), dec("0.00"), models.PurchaseCompleted, when.Add(-time.Hour)))
	mock.ExpectQuery(q("FROM purchase_items pi")).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "purchase_id", "game_id", "title", "price_at_purchase"}).
			AddRow(int64(1), int64(7), int64(2), "Free Thing", dec("0.00")).
			AddRow(int64(2), int64(8), int64(1), "Aurora", dec("5.00")))
	mock.ExpectCommit()

	history, err := s.FetchPurchaseHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Len(t, history[0].Items, 1)
	assert.Equal(t, "Aurora", history[0].Items[0].GameTitle)
	assert.Equal(t, "Free Thing", history[1].Items[0].GameTitle)
}

func TestCreateGame(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	expectActor(mock, 3, false, false, true, ptr(int64(4)))
	mock.ExpectQuery(q("INSERT INTO games")).
		WithArgs("Nebula", (*string)(nil), money("14.99"), (*string)(nil), models.GameEarlyAccess, (*time.Time)(nil), ptr(int64(4))).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(30)))
	mock.ExpectCommit()

	id, err := s.CreateGame(context.Background(), 3, GameInput{
		Title:  "Nebula",
		Price:  ptr(dec("14.99")),
		Status: models.GameEarlyAccess,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30), id)
}

func TestCreateGameForbidden(t *testing.T) {
	tests := []struct {
		name     string
		admin    bool
		dev      bool
		studio   *int64
		inStudio *int64
	}{
		{"regular user", false, false, nil, nil},
		{"developer of another studio", false, true, ptr(int64(4)), ptr(int64(5))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			mock.ExpectBegin()
			expectActor(mock, 3, tt.admin, false, tt.dev, tt.studio)
			mock.ExpectRollback()

			_, err := s.CreateGame(context.Background(), 3, GameInput{Title: "Nebula", StudioID: tt.inStudio})
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestCreateGameValidation(t *testing.T) {
	s, _ := newMockStore(t)

	_, err := s.CreateGame(context.Background(), 3, GameInput{Title: " "})
	assert.Error(t, err)

	_, err = s.CreateGame(context.Background(), 3, GameInput{Title: "X", Status: "Vapourware"})
	assert.Error(t, err)

	_, err = s.CreateGame(context.Background(), 3, GameInput{Title: "X", Price: ptr(dec("-3"))})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestUpdateGamePriceLeavesItemsAlone(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	expectActor(mock, 1, true, false, false, nil)
	mock.ExpectQuery(q("SELECT studio_id FROM games WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id"}).AddRow(ptr(int64(4))))
	mock.ExpectExec(q("UPDATE games SET price = $1")).
		WithArgs(money("30.00"), int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, s.UpdateGamePrice(context.Background(), 1, 10, ptr(dec("30"))))
}

func TestUpdateGamePriceUnknownGame(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	expectActor(mock, 1, true, false, false, nil)
	mock.ExpectQuery(q("SELECT studio_id FROM games")).
		WillReturnRows(pgxmock.NewRows([]string{"studio_id"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.UpdateGamePrice(context.Background(), 1, 10, nil), ErrGameNotFound)
}

func TestListStudios(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM studios")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "website", "logo_url", "country", "description", "established_date"}).
			AddRow(int64(4), "Nebula", ptr("https://nebula.example"), (*string)(nil), ptr("NZ"), (*string)(nil), (*time.Time)(nil)))
	mock.ExpectCommit()

	studios, err := s.ListStudios(context.Background())
	require.NoError(t, err)
	require.Len(t, studios, 1)
	assert.Equal(t, "Nebula", studios[0].Name)
	require.NotNil(t, studios[0].Country)
	assert.Equal(t, "NZ", *studios[0].Country)
	assert.Nil(t, studios[0].LogoURL)
}
