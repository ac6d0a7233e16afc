package account

import (
	"context"
	"errors"
	"strconv"

	"github.com/balance-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines account user persistence operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	WithTx(tx pgx.Tx) UserRepository
}

// Repository defines account persistence operations
type Repository interface {
	// Create stores the account and assigns its ID and account number
	Create(ctx context.Context, account *Account) error
	GetByNumber(ctx context.Context, accountNumber string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	CountByUserID(ctx context.Context, userID int64) (int, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEmptyUserName is returned when a user is created without a name
var ErrEmptyUserName = errors.New("user name must not be empty")

// ErrUserNotFound indicates a missing account user
type ErrUserNotFound struct {
	UserID int64
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + strconv.FormatInt(e.UserID, 10)
}

// Unwrap exposes the USER_NOT_FOUND kind
func (e ErrUserNotFound) Unwrap() error {
	return shared.ErrUserNotFound
}

// ErrAccountNotFound indicates a missing account
type ErrAccountNotFound struct {
	AccountNumber string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountNumber
}

// Unwrap exposes the ACCOUNT_NOT_FOUND kind
func (e ErrAccountNotFound) Unwrap() error {
	return shared.ErrAccountNotFound
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountNumber == "" {
		return true
	}
	return e.AccountNumber == t.AccountNumber
}
