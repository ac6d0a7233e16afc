package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/balance-ledger/internal/domain/transaction"
	"github.com/balance-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// TransactionRepository implements transaction.Repository for PostgreSQL. Rows are never updated.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, db persistence.Querier) transaction.Repository {
	return &TransactionRepository{
		querier: db,
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a transaction record and assigns its row ID
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, type, result, account_id, amount, balance_snapshot, transacted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		tx.TransactionID,
		tx.Type,
		tx.Result,
		tx.AccountID,
		tx.Amount,
		tx.BalanceSnapshot,
		tx.TransactedAt,
	).Scan(&tx.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return transaction.ErrDuplicateTransaction{TransactionID: tx.TransactionID}
		}
		r.logger.Error("Failed to create transaction",
			"transaction_id", tx.TransactionID,
			"error", err,
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByTransactionID loads a record together with the number of the account it belongs to
func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	query := `
		SELECT t.id, t.transaction_id, t.type, t.result, t.account_id, a.account_number,
		       t.amount, t.balance_snapshot, t.transacted_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.transaction_id = $1
	`

	var tx transaction.Transaction
	err := r.querier.QueryRow(ctx, query, transactionID).Scan(
		&tx.ID,
		&tx.TransactionID,
		&tx.Type,
		&tx.Result,
		&tx.AccountID,
		&tx.AccountNumber,
		&tx.Amount,
		&tx.BalanceSnapshot,
		&tx.TransactedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}
