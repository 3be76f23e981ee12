// Package models defines the named records returned by the storefront
// store.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStatus is the release state of a game.
type GameStatus string

const (
	GameReleased    GameStatus = "Released"
	GameEarlyAccess GameStatus = "Early Access"
	GameAlpha       GameStatus = "Alpha"
	GameBeta        GameStatus = "Beta"
	GameDevelopment GameStatus = "Development"
	GameCancelled   GameStatus = "Cancelled"
	GameOnHold      GameStatus = "On Hold"
)

// GameStatuses lists every valid GameStatus.
var GameStatuses = []GameStatus{
	GameReleased, GameEarlyAccess, GameAlpha, GameBeta, GameDevelopment, GameCancelled, GameOnHold,
}

// Valid reports whether s is a known status.
func (s GameStatus) Valid() bool {
	for _, v := range GameStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// PurchaseStatus is the state of a purchase.
type PurchaseStatus string

const (
	PurchaseCompleted PurchaseStatus = "Completed"
	PurchasePending   PurchaseStatus = "Pending"
	PurchaseRefunded  PurchaseStatus = "Refunded"
	PurchaseFailed    PurchaseStatus = "Failed"
)

// NotificationStatus is the state of a moderation queue item.
type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "pending"
	NotificationApproved NotificationStatus = "approved"
	NotificationRejected NotificationStatus = "rejected"
)

// NotificationDeveloperRequest is the type of a developer status request.
const NotificationDeveloperRequest = "developer_status_request"

// User is an account.
type User struct {
	ID         int64           `json:"id"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Balance    decimal.Decimal `json:"balance"`
	IsAppAdmin bool            `json:"is_app_admin"`
	IsBanned   bool            `json:"is_banned"`
	CreatedAt  time.Time       `json:"created_at"`
}

// UserInfo is a user's profile together with their developer standing.
type UserInfo struct {
	User
	IsDeveloper bool    `json:"is_developer"`
	StudioID    *int64  `json:"studio_id,omitempty"`
	StudioName  *string `json:"studio_name,omitempty"`
}

// Game is a catalog entry. A nil Price means the game is not for sale yet.
type Game struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description,omitempty"`
	Price       decimal.NullDecimal `json:"price"`
	ImageURL    *string             `json:"image_url,omitempty"`
	Status      GameStatus          `json:"status"`
	ReleaseDate *time.Time          `json:"release_date,omitempty"`
	StudioID    *int64              `json:"studio_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// GameDetails is a game with its studio name resolved.
type GameDetails struct {
	Game
	StudioName *string `json:"studio_name,omitempty"`
}

// Purchase is an order header.
type Purchase struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       PurchaseStatus  `json:"status"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Items        []PurchaseItem  `json:"items,omitempty"`
}

// PurchaseItem is one game in a purchase. PriceAtPurchase is the price
// snapshot taken when the purchase was made.
type PurchaseItem struct {
	ID              int64           `json:"id"`
	PurchaseID      int64           `json:"purchase_id"`
	GameID          int64           `json:"game_id"`
	GameTitle       string          `json:"game_title"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// Developer marks a user as a developer, optionally belonging to a studio.
type Developer struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	StudioID     *int64    `json:"studio_id,omitempty"`
	ContactEmail string    `json:"contact_email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Studio is a developer organisation.
type Studio struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Website         *string    `json:"website,omitempty"`
	LogoURL         *string    `json:"logo_url,omitempty"`
	Country         *string    `json:"country,omitempty"`
	Description     *string    `json:"description,omitempty"`
	EstablishedDate *time.Time `json:"established_date,omitempty"`
}

// Review is a user's review of a game.
type Review struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	GameID     int64     `json:"game_id"`
	Text       string    `json:"review_text"`
	Rating     *int      `json:"rating,omitempty"`
	ReviewDate time.Time `json:"review_date"`
}

// ReviewComment is a reply to a review.
type ReviewComment struct {
	ID          int64     `json:"id"`
	ReviewID    int64     `json:"review_id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	Text        string    `json:"comment_text"`
	CommentDate time.Time `json:"comment_date"`
}

// AdminNotification is an item in the moderation queue.
type AdminNotification struct {
	ID           int64              `json:"id"`
	UserID       int64              `json:"user_id"`
	Username     string             `json:"username"`
	TargetUserID *int64             `json:"target_user_id,omitempty"`
	Type         string             `json:"notification_type"`
	Message      *string            `json:"message,omitempty"`
	Status       NotificationStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	ReviewedBy   *int64             `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time         `json:"reviewed_at,omitempty"`
}

// DeveloperStatus is a user's standing as a developer.
type DeveloperStatus struct {
	IsDeveloper bool    `json:"is_developer"`
	StudioID    *int64  `json:"studio_id,omitempty"`
	StudioName  *string `json:"studio_name,omitempty"`
	Role        string  `json:"role,omitempty"`
}
