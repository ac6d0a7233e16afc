// Package postgres provides PostgreSQL implementations of the ledger repositories
// and the ledger.Store that composes them inside database transactions.
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

// UserRepository implements account.UserRepository for PostgreSQL
type UserRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewUserRepository(logger *slog.Logger, db persistence.Querier) account.UserRepository {
	return &UserRepository{
		querier: db,
		logger:  logger,
	}
}

func (r *UserRepository) WithTx(tx pgx.Tx) account.UserRepository {
	return &UserRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new user and assigns its ID
func (r *UserRepository) Create(ctx context.Context, user *account.User) error {
	query := `
		INSERT INTO account_users (name, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query, user.Name, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		r.logger.Error("Failed to create account user", "error", err)
		return fmt.Errorf("failed to create account user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*account.User, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM account_users
		WHERE id = $1
	`

	var user account.User
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get account user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get account user: %w", err)
	}

	return &user, nil
}
