package commands

import (
	"context"
	"testing"

	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurchaser struct {
	info          models.UserInfo
	paid          []*decimal.Decimal
	catalogBought int
}

func (f *fakePurchaser) FetchUserInfo(_ context.Context, _ int64) (models.UserInfo, error) {
	return f.info, nil
}

func (f *fakePurchaser) PurchaseGame(_ context.Context, userID, gameID int64, price *decimal.Decimal) (store.Receipt, error) {
	f.paid = append(f.paid, price)
	return store.Receipt{UserID: userID, GameID: gameID}, nil
}

func (f *fakePurchaser) PurchaseGameAtCatalogPrice(_ context.Context, userID, gameID int64) (store.Receipt, error) {
	f.catalogBought++
	return store.Receipt{UserID: userID, GameID: gameID}, nil
}

func TestBuyGameUsesCatalogPrice(t *testing.T) {
	p := &fakePurchaser{}

	_, err := buyGame(context.Background(), p, 1, 7, "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.catalogBought)
	assert.Empty(t, p.paid)
}

func TestBuyGameCustomPriceRequiresAdmin(t *testing.T) {
	tests := []struct {
		name string
		info models.UserInfo
	}{
		{"customer", models.UserInfo{User: models.User{ID: 1}}},
		{"developer", models.UserInfo{User: models.User{ID: 1}, IsDeveloper: true}},
		{"banned admin", models.UserInfo{User: models.User{ID: 1, IsAppAdmin: true, IsBanned: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePurchaser{info: tt.info}

			_, err := buyGame(context.Background(), p, 1, 7, "0")
			assert.ErrorIs(t, err, store.ErrNotAdmin)
			assert.Empty(t, p.paid)
			assert.Zero(t, p.catalogBought)
		})
	}
}

func TestBuyGameCustomPriceAsAdmin(t *testing.T) {
	p := &fakePurchaser{info: models.UserInfo{User: models.User{ID: 1, IsAppAdmin: true}}}

	_, err := buyGame(context.Background(), p, 1, 7, "4.50")
	require.NoError(t, err)
	require.Len(t, p.paid, 1)
	assert.Equal(t, "4.50", p.paid[0].StringFixed(2))

	_, err = buyGame(context.Background(), p, 1, 7, "abc")
	assert.ErrorIs(t, err, store.ErrInvalidPrice)
	assert.Len(t, p.paid, 1)
}
