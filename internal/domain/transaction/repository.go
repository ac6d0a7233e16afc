package transaction

import (
	"context"

	"github.com/balance-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction record persistence. Records are append-only.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates a missing transaction record
type ErrTransactionNotFound struct {
	TransactionID string
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID
}

// Unwrap exposes the TRANSACTION_NOT_FOUND kind
func (e ErrTransactionNotFound) Unwrap() error {
	return shared.ErrTransactionNotFound
}

// ErrDuplicateTransaction indicates a transaction id collision
type ErrDuplicateTransaction struct {
	TransactionID string
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate transaction: " + e.TransactionID
}
