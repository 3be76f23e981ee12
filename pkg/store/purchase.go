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

// Receipt describes a completed purchase.
type Receipt struct {
	PurchaseID int64           `json:"purchase_id"`
	UserID     int64           `json:"user_id"`
	GameID     int64           `json:"game_id"`
	Price      decimal.Decimal `json:"price"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

const (
	lockBalanceSQL    = `SELECT balance FROM users WHERE id = $1 FOR UPDATE`
	insertPurchaseSQL = `INSERT INTO purchases (user_id, total_amount, status) VALUES ($1, $2, $3) RETURNING id`
	insertItemSQL     = `INSERT INTO purchase_items (purchase_id, game_id, price_at_purchase) VALUES ($1, $2, $3)`
	debitBalanceSQL   = `UPDATE users SET balance = balance - $1 WHERE id = $2`
	catalogPriceSQL   = `SELECT price FROM games WHERE id = $1`
)

// PurchaseGame buys gameID for userID at price. A nil price is free. The
// balance check, the order rows and the debit commit together or not at all.
func (s *Store) PurchaseGame(ctx context.Context, userID, gameID int64, price *decimal.Decimal) (Receipt, error) {
	const op = "PurchaseGame"
	fields := logrus.Fields{"user_id": userID, "game_id": gameID}

	amount, err := NormalizePrice(price)
	if err != nil {
		return Receipt{}, s.finish(op, fields, err)
	}

	var receipt Receipt
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		receipt, err = purchase(ctx, tx, userID, gameID, amount)
		return err
	})
	if err != nil {
		return Receipt{}, s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithFields(logrus.Fields{"op": op, "purchase_id": receipt.PurchaseID}).Info("purchase completed")
	return receipt, nil
}

// PurchaseGameAtCatalogPrice buys gameID at its current catalog price.
func (s *Store) PurchaseGameAtCatalogPrice(ctx context.Context, userID, gameID int64) (Receipt, error) {
	const op = "PurchaseGameAtCatalogPrice"
	fields := logrus.Fields{"user_id": userID, "game_id": gameID}

	var receipt Receipt
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var price decimal.NullDecimal
		if err := tx.QueryRow(ctx, catalogPriceSQL, gameID).Scan(&price); err != nil {
			return queryRowErr(err, catalogPriceSQL, ErrGameNotFound)
		}
		var p *decimal.Decimal
		if price.Valid {
			p = &price.Decimal
		}
		amount, err := NormalizePrice(p)
		if err != nil {
			return err
		}
		receipt, err = purchase(ctx, tx, userID, gameID, amount)
		return err
	})
	if err != nil {
		return Receipt{}, s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithFields(logrus.Fields{"op": op, "purchase_id": receipt.PurchaseID}).Info("purchase completed")
	return receipt, nil
}

// purchase runs the purchase statements inside tx. amount is already
// normalized.
func purchase(ctx context.Context, tx pgx.Tx, userID, gameID int64, amount decimal.Decimal) (Receipt, error) {
	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, lockBalanceSQL, userID).Scan(&balance); err != nil {
		return Receipt{}, queryRowErr(err, lockBalanceSQL, ErrUserNotFound)
	}
	balance = balance.Round(2)

	// The user row is locked, so no concurrent purchase by this user can
	// slip in between this check and the insert.
	owned, err := ownsGame(ctx, tx, userID, gameID)
	if err != nil {
		return Receipt{}, err
	}
	if owned {
		return Receipt{}, ErrAlreadyOwned
	}

	if balance.LessThan(amount) {
		return Receipt{}, &InsufficientFundsError{Balance: balance, Price: amount}
	}

	var purchaseID int64
	if err := tx.QueryRow(ctx, insertPurchaseSQL, userID, amount, models.PurchaseCompleted).Scan(&purchaseID); err != nil {
		return Receipt{}, &runtime.QueryError{Query: insertPurchaseSQL, Err: err}
	}

	tag, err := tx.Exec(ctx, insertItemSQL, purchaseID, gameID, amount)
	if err != nil {
		if constraint, ok := runtime.IsForeignKeyViolation(err); ok && constraint == "purchase_items_game_id_fkey" {
			return Receipt{}, ErrGameNotFound
		}
		return Receipt{}, &runtime.QueryError{Query: insertItemSQL, Err: err}
	}
	if n := tag.RowsAffected(); n != 1 {
		return Receipt{}, fmt.Errorf("%w: purchase item insert affected %d rows", ErrIntegrity, n)
	}

	newBalance := balance
	if amount.IsPositive() {
		tag, err := tx.Exec(ctx, debitBalanceSQL, amount, userID)
		if err != nil {
			if _, ok := runtime.IsCheckViolation(err); ok {
				return Receipt{}, errors.Join(ErrIntegrity, err)
			}
			return Receipt{}, &runtime.QueryError{Query: debitBalanceSQL, Err: err}
		}
		if n := tag.RowsAffected(); n != 1 {
			return Receipt{}, fmt.Errorf("%w: balance update affected %d rows", ErrIntegrity, n)
		}
		newBalance = balance.Sub(amount)
	}

	return Receipt{
		PurchaseID: purchaseID,
		UserID:     userID,
		GameID:     gameID,
		Price:      amount,
		NewBalance: newBalance,
	}, nil
}
