package service

import (
	"context"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/transaction"
)

// AccountService defines the interface for account lifecycle operations
type AccountService interface {
	// CreateAccountUser registers a new account owner
	CreateAccountUser(ctx context.Context, name string) (*account.User, error)

	// CreateAccount opens an account for an existing user
	// Returns MAX_ACCOUNTS_PER_USER once the user owns MaxAccountsPerUser accounts
	CreateAccount(ctx context.Context, userID int64, initialBalance int64) (*account.Account, error)

	// DeleteAccount unregisters an account whose balance is zero
	DeleteAccount(ctx context.Context, userID int64, accountNumber string) (*account.Account, error)

	// ListAccounts returns the accounts owned by a user, oldest first
	ListAccounts(ctx context.Context, userID int64) ([]*account.Account, error)
}

// TransactionService defines the balance operations of the ledger.
// UseBalance and CancelBalance must run while the account lock is held.
type TransactionService interface {
	// UseBalance debits an account and records a USE/SUCCESS transaction
	UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*transaction.Transaction, error)

	// RecordFailedUse records a USE/FAIL transaction at the current balance
	RecordFailedUse(ctx context.Context, accountNumber string, amount int64) (*transaction.Transaction, error)

	// CancelBalance reverses a previous USE in full and records a CANCEL/SUCCESS transaction
	CancelBalance(ctx context.Context, transactionID string, accountNumber string, amount int64) (*transaction.Transaction, error)

	// RecordFailedCancel records a CANCEL/FAIL transaction at the current balance
	RecordFailedCancel(ctx context.Context, accountNumber string, amount int64) (*transaction.Transaction, error)

	// QueryTransaction returns a recorded transaction
	// Returns TRANSACTION_NOT_FOUND if the id is unknown
	QueryTransaction(ctx context.Context, transactionID string) (*transaction.Transaction, error)

	// GetTransactionsByAccountNumber retrieves the projected history of an account
	// Returns entries, total count of all entries, and any error
	GetTransactionsByAccountNumber(ctx context.Context, accountNumber string, page, perPage int) ([]*history.Entry, int64, error)
}
