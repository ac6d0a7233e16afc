package account

import (
	"strings"
	"time"

	"github.com/balance-ledger/internal/domain/shared"
)

// MaxAccountsPerUser caps how many accounts a single user may open
const MaxAccountsPerUser = 10

// FirstAccountNumber is issued when no account exists yet
const FirstAccountNumber = "1000000000"

// User represents the owner of accounts
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new account user
func NewUser(name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyUserName
	}
	now := time.Now()
	return &User{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Account represents a balance account owned by a user
type Account struct {
	ID             int64                `json:"id"`
	UserID         int64                `json:"user_id"`
	AccountNumber  string               `json:"account_number"`
	Status         shared.AccountStatus `json:"status"`
	Balance        int64                `json:"balance"` // Stored in minor units
	RegisteredAt   time.Time            `json:"registered_at"`
	UnregisteredAt *time.Time           `json:"unregistered_at,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewAccount creates an in-use account. The account number is assigned by the store.
func NewAccount(userID int64, initialBalance int64) (*Account, error) {
	if initialBalance < 0 {
		return nil, shared.ErrInvalidAmount
	}

	now := time.Now()
	return &Account{
		UserID:       userID,
		Status:       shared.AccountStatusInUse,
		Balance:      initialBalance,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// Debit subtracts amount from the balance. The balance never goes negative.
func (a *Account) Debit(amount int64) error {
	if amount < 0 {
		return shared.ErrInvalidAmount
	}
	if amount > a.Balance {
		return shared.ErrAmountExceedsBalance
	}

	a.Balance -= amount
	a.UpdatedAt = time.Now()
	return nil
}

// CreditReversal adds back a previously debited amount.
// It does not check the amount against the original debit; callers must.
func (a *Account) CreditReversal(amount int64) error {
	if amount < 0 {
		return shared.ErrInvalidAmount
	}

	a.Balance += amount
	a.UpdatedAt = time.Now()
	return nil
}

// Unregister closes the account. It is the only status transition an account makes.
func (a *Account) Unregister(at time.Time) error {
	if a.Status == shared.AccountStatusUnregistered {
		return shared.ErrAccountAlreadyUnregistered
	}

	a.Status = shared.AccountStatusUnregistered
	a.UnregisteredAt = &at
	a.UpdatedAt = at
	return nil
}

// InUse reports whether the account accepts balance operations
func (a *Account) InUse() bool {
	return a.Status == shared.AccountStatusInUse
}
