package store

import (
	"errors"
	"fmt"

	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountBanned is returned when a banned user logs in with a correct password.
	ErrAccountBanned = errors.New("account is banned")

	// ErrDuplicateUsername is returned when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail is returned when the email is taken.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicateStudio is returned when the studio name is taken.
	ErrDuplicateStudio = errors.New("studio name already exists")

	// ErrIntegrity is returned when a statement breaks a data invariant.
	ErrIntegrity = errors.New("data integrity violation")

	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrGameNotFound is returned when a game does not exist.
	ErrGameNotFound = errors.New("game not found")

	// ErrReviewNotFound is returned when a review does not exist.
	ErrReviewNotFound = errors.New("review not found")

	// ErrNotificationNotFound is returned when a notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrInsufficientFunds is matched by *InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyOwned is returned when the user already owns the game.
	ErrAlreadyOwned = errors.New("game already owned")

	// ErrInvalidPrice is returned for a negative or non-numeric price.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidAmount is returned for a top-up outside the allowed range.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrLeaveStudioFirst is returned when a developer with a studio is demoted.
	ErrLeaveStudioFirst = errors.New("developer must leave their studio first")

	// ErrAlreadyInStudio is returned when a developer with a studio creates another.
	ErrAlreadyInStudio = errors.New("developer already belongs to a studio")

	// ErrNotDeveloper is returned when the user has no developer row.
	ErrNotDeveloper = errors.New("user is not a developer")

	// ErrContactEmailMissing is returned when a developer row would lack a contact email.
	ErrContactEmailMissing = errors.New("contact email missing")

	// ErrAlreadyDeveloper is returned when a developer requests developer status.
	ErrAlreadyDeveloper = errors.New("user is already a developer")

	// ErrRequestAlreadyPending is returned for a second pending request.
	ErrRequestAlreadyPending = errors.New("a request is already pending")

	// ErrNotificationNotPending is returned when a processed notification is processed again.
	ErrNotificationNotPending = errors.New("notification is not pending")

	// ErrUnsupportedNotification is returned for a notification type this store cannot process.
	ErrUnsupportedNotification = errors.New("unsupported notification type")

	// ErrNotAdmin is returned when the actor is not an unbanned admin.
	ErrNotAdmin = errors.New("admin privileges required")

	// ErrForbidden is returned when the actor may not change the record.
	ErrForbidden = errors.New("not permitted")

	// ErrCannotBanSelf is returned when an admin bans themself.
	ErrCannotBanSelf = errors.New("cannot ban yourself")

	// ErrCannotModerateAdmin is returned when an admin moderates another admin.
	ErrCannotModerateAdmin = errors.New("cannot moderate another admin")

	// ErrPrivilegedAccount is returned when an admin or developer account is deleted.
	ErrPrivilegedAccount = errors.New("admin and developer accounts cannot be deleted")
)

// InsufficientFundsError reports the balance and price of a refused purchase.
type InsufficientFundsError struct {
	Balance decimal.Decimal
	Price   decimal.Decimal
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, price %s", e.Balance.StringFixed(2), e.Price.StringFixed(2))
}

// Is matches ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Shortfall returns how much more the user needs.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Price.Sub(e.Balance)
}

// expected lists the outcomes callers act on. They are not logged as failures.
var expected = []error{
	ErrInvalidCredentials, ErrAccountBanned, ErrDuplicateUsername, ErrDuplicateEmail,
	ErrDuplicateStudio, ErrUserNotFound, ErrGameNotFound, ErrReviewNotFound,
	ErrNotificationNotFound, ErrInsufficientFunds, ErrAlreadyOwned, ErrInvalidPrice,
	ErrInvalidAmount, ErrLeaveStudioFirst, ErrAlreadyInStudio, ErrNotDeveloper,
	ErrContactEmailMissing, ErrAlreadyDeveloper, ErrRequestAlreadyPending,
	ErrNotificationNotPending, ErrUnsupportedNotification, ErrNotAdmin, ErrForbidden,
	ErrCannotBanSelf, ErrCannotModerateAdmin, ErrPrivilegedAccount,
}

func isExpected(err error) bool {
	var verr *runtime.ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, target := range expected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
