// Package ledger defines the storage boundary of the balance ledger: accounts, their owners
// and the append-only transaction records that describe every balance operation attempt.
package ledger

import (
	"context"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/transaction"
)

// Store is the persistent state the ledger services operate on.
// Lookups return errors tagged with the *_NOT_FOUND kinds when the row is absent.
type Store interface {
	CreateAccountUser(ctx context.Context, user *account.User) error
	GetAccountUser(ctx context.Context, userID int64) (*account.User, error)

	// CreateAccount stores a new account and assigns its ID and account number
	CreateAccount(ctx context.Context, acc *account.Account) error
	GetAccountByNumber(ctx context.Context, accountNumber string) (*account.Account, error)
	SaveAccount(ctx context.Context, acc *account.Account) error
	CountAccountsByUser(ctx context.Context, userID int64) (int, error)
	ListAccountsByUser(ctx context.Context, userID int64) ([]*account.Account, error)

	// SaveTransaction appends a transaction record and assigns its row ID
	SaveTransaction(ctx context.Context, tx *transaction.Transaction) error
	GetTransactionByID(ctx context.Context, transactionID string) (*transaction.Transaction, error)

	// RunInTx runs fn against a Store whose writes commit together or not at all
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
