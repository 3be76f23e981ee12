package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marshallshelly/storefront/pkg/models"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SortKey selects the catalog sort column.
type SortKey string

// SortOrder selects the catalog sort direction.
type SortOrder string

const (
	SortTitle SortKey = "title"
	SortPrice SortKey = "price"

	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// orderClauses is the only source of ORDER BY text. User input never
// reaches the SQL.
var orderClauses = map[SortKey]map[SortOrder]string{
	SortTitle: {
		SortAsc:  "g.title ASC, g.id ASC",
		SortDesc: "g.title DESC, g.id ASC",
	},
	SortPrice: {
		SortAsc:  "g.price ASC NULLS FIRST, g.title ASC",
		SortDesc: "g.price DESC NULLS LAST, g.title ASC",
	},
}

// ResolveSort maps free-form sort input onto the allow-list. Unknown keys
// fall back to title and unknown orders to ascending.
func ResolveSort(sortBy, sortOrder string) (SortKey, SortOrder) {
	key := SortKey(strings.ToLower(strings.TrimSpace(sortBy)))
	if _, ok := orderClauses[key]; !ok {
		key = SortTitle
	}
	order := SortOrder(strings.ToUpper(strings.TrimSpace(sortOrder)))
	if order != SortDesc {
		order = SortAsc
	}
	return key, order
}

const gameColumns = `g.id, g.title, g.description, g.price, g.image_url, g.status,
	g.release_date, g.studio_id, g.created_at, g.updated_at`

func scanGame(row pgx.Row) (models.Game, error) {
	var g models.Game
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Price, &g.ImageURL, &g.Status,
		&g.ReleaseDate, &g.StudioID, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func scanGameDetails(row pgx.Row) (models.GameDetails, error) {
	var g models.GameDetails
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Price, &g.ImageURL, &g.Status,
		&g.ReleaseDate, &g.StudioID, &g.CreatedAt, &g.UpdatedAt, &g.StudioName)
	return g, err
}

const ownershipSQL = `
	SELECT EXISTS (
		SELECT 1
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		WHERE p.user_id = $1 AND pi.game_id = $2 AND p.status = 'Completed'
	)`

func ownsGame(ctx context.Context, tx pgx.Tx, userID, gameID int64) (bool, error) {
	var owned bool
	if err := tx.QueryRow(ctx, ownershipSQL, userID, gameID).Scan(&owned); err != nil {
		return false, &runtime.QueryError{Query: ownershipSQL, Err: err}
	}
	return owned, nil
}

// CheckOwnership reports whether userID owns gameID. Failures are logged
// and reported as not owned.
func (s *Store) CheckOwnership(ctx context.Context, userID, gameID int64) bool {
	var owned bool
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		owned, err = ownsGame(ctx, tx, userID, gameID)
		return err
	})
	if err != nil {
		_ = s.finish("CheckOwnership", logrus.Fields{"user_id": userID, "game_id": gameID}, err)
		return false
	}
	return owned
}

// FetchAllGames lists the catalog in the requested order.
func (s *Store) FetchAllGames(ctx context.Context, sortBy, sortOrder string) ([]models.Game, error) {
	key, order := ResolveSort(sortBy, sortOrder)
	query := "SELECT " + gameColumns + "\n\tFROM games g\n\tORDER BY " + orderClauses[key][order]

	games, err := runtime.QueryAll(ctx, s.db, scanGame, query)
	if err != nil {
		return nil, s.finish("FetchAllGames", logrus.Fields{"sort": key, "order": order}, err)
	}
	return games, nil
}

// FetchPurchasedGames lists each game userID owns once, by title.
func (s *Store) FetchPurchasedGames(ctx context.Context, userID int64) ([]models.Game, error) {
	query := "SELECT " + gameColumns + `
	FROM games g
	WHERE g.id IN (
		SELECT pi.game_id
		FROM purchase_items pi
		JOIN purchases p ON p.id = pi.purchase_id
		WHERE p.user_id = $1 AND p.status = 'Completed'
	)
	ORDER BY g.title ASC, g.id ASC`

	games, err := runtime.QueryAll(ctx, s.db, scanGame, query, userID)
	if err != nil {
		return nil, s.finish("FetchPurchasedGames", logrus.Fields{"user_id": userID}, err)
	}
	return games, nil
}

// FetchGameDetails returns a game with its studio name.
func (s *Store) FetchGameDetails(ctx context.Context, gameID int64) (models.GameDetails, error) {
	query := "SELECT " + gameColumns + `, st.name
	FROM games g
	LEFT JOIN studios st ON st.id = g.studio_id
	WHERE g.id = $1`

	game, err := runtime.QueryOne(ctx, s.db, scanGameDetails, query, gameID)
	if errors.Is(err, runtime.ErrNotFound) {
		err = ErrGameNotFound
	}
	if err != nil {
		return models.GameDetails{}, s.finish("FetchGameDetails", logrus.Fields{"game_id": gameID}, err)
	}
	return game, nil
}

// GameInput holds the fields of a new catalog entry. A nil Price means the
// game is not for sale yet. StudioID defaults to the developer's studio.
type GameInput struct {
	Title       string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	Status      models.GameStatus
	ReleaseDate *time.Time
	StudioID    *int64
}

// CreateGame adds a game to the catalog. The actor must be an admin or a
// developer; a developer may only publish under their own studio.
func (s *Store) CreateGame(ctx context.Context, actorID int64, in GameInput) (int64, error) {
	const op = "CreateGame"
	fields := logrus.Fields{"user_id": actorID}

	if strings.TrimSpace(in.Title) == "" {
		return 0, s.finish(op, fields, &runtime.ValidationError{Field: "title", Message: "must not be empty"})
	}
	if in.Status == "" {
		in.Status = models.GameDevelopment
	}
	if !in.Status.Valid() {
		return 0, s.finish(op, fields, &runtime.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)})
	}
	var price *decimal.Decimal
	if in.Price != nil {
		p, err := NormalizePrice(in.Price)
		if err != nil {
			return 0, s.finish(op, fields, err)
		}
		price = &p
	}

	const insertGameSQL = `
		INSERT INTO games (title, description, price, image_url, status, release_date, studio_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		a, err := loadActor(ctx, tx, actorID, false)
		if err != nil {
			return err
		}
		if a.IsBanned || (!a.IsAdmin && !a.IsDeveloper) {
			return ErrForbidden
		}
		studioID := in.StudioID
		if !a.IsAdmin {
			if studioID == nil {
				studioID = a.StudioID
			}
			if !sameStudio(studioID, a.StudioID) {
				return ErrForbidden
			}
		}

		if err := tx.QueryRow(ctx, insertGameSQL, in.Title, in.Description, price, in.ImageURL,
			in.Status, in.ReleaseDate, studioID).Scan(&id); err != nil {
			if _, ok := runtime.IsForeignKeyViolation(err); ok {
				return errors.Join(ErrIntegrity, err)
			}
			return &runtime.QueryError{Query: insertGameSQL, Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, s.finish(op, fields, err)
	}

	s.log.WithFields(fields).WithFields(logrus.Fields{"op": op, "game_id": id}).Info("game created")
	return id, nil
}

// UpdateGamePrice changes a game's catalog price. Past purchases keep the
// price they were made at.
func (s *Store) UpdateGamePrice(ctx context.Context, actorID, gameID int64, price *decimal.Decimal) error {
	const op = "UpdateGamePrice"
	fields := logrus.Fields{"user_id": actorID, "game_id": gameID}

	var newPrice *decimal.Decimal
	if price != nil {
		p, err := NormalizePrice(price)
		if err != nil {
			return s.finish(op, fields, err)
		}
		newPrice = &p
	}

	const (
		gameStudioSQL  = `SELECT studio_id FROM games WHERE id = $1 FOR UPDATE`
		updatePriceSQL = `UPDATE games SET price = $1, updated_at = NOW() WHERE id = $2`
	)

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		a, err := loadActor(ctx, tx, actorID, false)
		if err != nil {
			return err
		}
		var studioID *int64
		if err := tx.QueryRow(ctx, gameStudioSQL, gameID).Scan(&studioID); err != nil {
			return queryRowErr(err, gameStudioSQL, ErrGameNotFound)
		}
		if a.IsBanned || !(a.IsAdmin || a.IsDeveloper && a.StudioID != nil && sameStudio(studioID, a.StudioID)) {
			return ErrForbidden
		}
		if _, err := tx.Exec(ctx, updatePriceSQL, newPrice, gameID); err != nil {
			return &runtime.QueryError{Query: updatePriceSQL, Err: err}
		}
		return nil
	})
	return s.finish(op, fields, err)
}

func sameStudio(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func scanStudio(row pgx.Row) (models.Studio, error) {
	var st models.Studio
	err := row.Scan(&st.ID, &st.Name, &st.Website, &st.LogoURL, &st.Country, &st.Description, &st.EstablishedDate)
	return st, err
}

// ListStudios lists every studio by name.
func (s *Store) ListStudios(ctx context.Context) ([]models.Studio, error) {
	studios, err := runtime.QueryAll(ctx, s.db, scanStudio, `
		SELECT id, name, website, logo_url, country, description, established_date
		FROM studios
		ORDER BY name ASC`)
	if err != nil {
		return nil, s.finish("ListStudios", nil, err)
	}
	return studios, nil
}

// FetchPurchaseHistory lists userID's purchases, newest first, with their
// items at the price paid.
func (s *Store) FetchPurchaseHistory(ctx context.Context, userID int64) ([]models.Purchase, error) {
	const (
		purchasesSQL = `
			SELECT id, user_id, total_amount, status, purchase_date
			FROM purchases
			WHERE user_id = $1
			ORDER BY purchase_date DESC, id DESC`
		itemsSQL = `
			SELECT pi.id, pi.purchase_id, pi.game_id, g.title, pi.price_at_purchase
			FROM purchase_items pi
			JOIN purchases p ON p.id = pi.purchase_id
			JOIN games g ON g.id = pi.game_id
			WHERE p.user_id = $1
			ORDER BY pi.id ASC`
	)

	var purchases []models.Purchase
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		purchases, err = runtime.ScanAll(ctx, tx, func(row pgx.Row) (models.Purchase, error) {
			var p models.Purchase
			err := row.Scan(&p.ID, &p.UserID, &p.TotalAmount, &p.Status, &p.PurchaseDate)
			return p, err
		}, purchasesSQL, userID)
		if err != nil {
			return err
		}

		items, err := runtime.ScanAll(ctx, tx, func(row pgx.Row) (models.PurchaseItem, error) {
			var it models.PurchaseItem
			err := row.Scan(&it.ID, &it.PurchaseID, &it.GameID, &it.GameTitle, &it.PriceAtPurchase)
			return it, err
		}, itemsSQL, userID)
		if err != nil {
			return err
		}

		index := make(map[int64]int, len(purchases))
		for i, p := range purchases {
			index[p.ID] = i
		}
		for _, it := range items {
			if i, ok := index[it.PurchaseID]; ok {
				purchases[i].Items = append(purchases[i].Items, it)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.finish("FetchPurchaseHistory", logrus.Fields{"user_id": userID}, err)
	}
	return purchases, nil
}
