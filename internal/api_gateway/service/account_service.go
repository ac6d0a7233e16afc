package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/shared"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	store  ledger.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(logger *slog.Logger, store ledger.Store) AccountService {
	return &AccountServiceImpl{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// CreateAccountUser registers a new account owner
func (s *AccountServiceImpl) CreateAccountUser(ctx context.Context, name string) (*account.User, error) {
	user, err := account.NewUser(name)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateAccountUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create account user: %w", err)
	}

	s.logger.Info("Account user created", "user_id", user.ID)
	return user, nil
}

// CreateAccount opens an account for userID. Callers hold the user lock so the
// per-user account limit cannot be exceeded by concurrent requests.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID int64, initialBalance int64) (*account.Account, error) {
	if _, err := s.store.GetAccountUser(ctx, userID); err != nil {
		return nil, err
	}

	count, err := s.store.CountAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	if count >= account.MaxAccountsPerUser {
		return nil, shared.ErrMaxAccountsPerUser
	}

	acc, err := account.NewAccount(userID, initialBalance)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("Account created",
		"user_id", userID,
		"account_number", acc.AccountNumber,
		"initial_balance", initialBalance,
	)
	return acc, nil
}

// DeleteAccount unregisters an account. The account row is kept for its transaction history.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, userID int64, accountNumber string) (*account.Account, error) {
	user, err := s.store.GetAccountUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if acc.UserID != user.ID {
		return nil, shared.ErrUserAccountMismatch
	}
	if !acc.InUse() {
		return nil, shared.ErrAccountAlreadyUnregistered
	}
	if acc.Balance > 0 {
		return nil, shared.ErrBalanceNotEmpty
	}

	if err := acc.Unregister(s.now()); err != nil {
		return nil, err
	}

	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to unregister account: %w", err)
	}

	s.logger.Info("Account unregistered", "user_id", userID, "account_number", accountNumber)
	return acc, nil
}

// ListAccounts returns every account of the user, including unregistered ones
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, userID int64) ([]*account.Account, error) {
	if _, err := s.store.GetAccountUser(ctx, userID); err != nil {
		return nil, err
	}

	accounts, err := s.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
