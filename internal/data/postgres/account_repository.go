package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewAccountRepository(logger *slog.Logger, db persistence.Querier) account.Repository {
	return &AccountRepository{
		querier: db,
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account. The account number is drawn from account_number_seq,
// which starts at 1000000000 and never hands out the same value twice.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (user_id, account_number, status, balance, registered_at, updated_at)
		VALUES ($1, nextval('account_number_seq')::text, $2, $3, $4, $5)
		RETURNING id, account_number
	`

	err := r.querier.QueryRow(ctx, query,
		acc.UserID,
		acc.Status,
		acc.Balance,
		acc.RegisteredAt,
		acc.UpdatedAt,
	).Scan(&acc.ID, &acc.AccountNumber)
	if err != nil {
		r.logger.Error("Failed to create account", "user_id", acc.UserID, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	query := `
		SELECT id, user_id, account_number, status, balance, registered_at, unregistered_at, updated_at
		FROM accounts
		WHERE account_number = $1
	`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountNumber: accountNumber}
		}
		r.logger.Error("Failed to get account", "account_number", accountNumber, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// Update persists balance and status changes. Account number and owner never change.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET status = $1, balance = $2, unregistered_at = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Status,
		acc.Balance,
		acc.UnregisteredAt,
		acc.UpdatedAt,
		acc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update account", "account_number", acc.AccountNumber, "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrAccountNotFound{AccountNumber: acc.AccountNumber}
	}

	return nil
}

func (r *AccountRepository) CountByUserID(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE user_id = $1`

	var count int
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count accounts", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, account_number, status, balance, registered_at, unregistered_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&acc.AccountNumber,
		&acc.Status,
		&acc.Balance,
		&acc.RegisteredAt,
		&acc.UnregisteredAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
