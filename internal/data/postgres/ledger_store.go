package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/outbox"
	"github.com/balance-ledger/internal/domain/shared"
	"github.com/balance-ledger/internal/domain/transaction"
	"github.com/balance-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// LedgerStore implements ledger.Store on PostgreSQL.
// Every saved transaction record is paired with an outbox message in the same database transaction.
type LedgerStore struct {
	pool         persistence.Pool
	tx           pgx.Tx // set inside RunInTx
	users        account.UserRepository
	accounts     account.Repository
	transactions transaction.Repository
	outbox       outbox.Repository
	logger       *slog.Logger
}

var _ ledger.Store = (*LedgerStore)(nil)

func NewLedgerStore(logger *slog.Logger, pool persistence.Pool) *LedgerStore {
	return &LedgerStore{
		pool:         pool,
		users:        NewUserRepository(logger, pool),
		accounts:     NewAccountRepository(logger, pool),
		transactions: NewTransactionRepository(logger, pool),
		outbox:       NewOutboxRepository(logger, pool),
		logger:       logger,
	}
}

func (s *LedgerStore) withTx(tx pgx.Tx) *LedgerStore {
	return &LedgerStore{
		pool:         s.pool,
		tx:           tx,
		users:        s.users.WithTx(tx),
		accounts:     s.accounts.WithTx(tx),
		transactions: s.transactions.WithTx(tx),
		outbox:       s.outbox.WithTx(tx),
		logger:       s.logger,
	}
}

// RunInTx runs fn in a database transaction. Nested calls join the outer transaction.
func (s *LedgerStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	return persistence.ExecuteTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, s.withTx(tx))
	})
}

func (s *LedgerStore) CreateAccountUser(ctx context.Context, user *account.User) error {
	return s.users.Create(ctx, user)
}

func (s *LedgerStore) GetAccountUser(ctx context.Context, userID int64) (*account.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *LedgerStore) CreateAccount(ctx context.Context, acc *account.Account) error {
	return s.accounts.Create(ctx, acc)
}

func (s *LedgerStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	return s.accounts.GetByNumber(ctx, accountNumber)
}

func (s *LedgerStore) SaveAccount(ctx context.Context, acc *account.Account) error {
	return s.accounts.Update(ctx, acc)
}

func (s *LedgerStore) CountAccountsByUser(ctx context.Context, userID int64) (int, error) {
	return s.accounts.CountByUserID(ctx, userID)
}

func (s *LedgerStore) ListAccountsByUser(ctx context.Context, userID int64) ([]*account.Account, error) {
	return s.accounts.ListByUserID(ctx, userID)
}

func (s *LedgerStore) GetTransactionByID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	return s.transactions.GetByTransactionID(ctx, transactionID)
}

// SaveTransaction appends the record and queues its event for publishing
func (s *LedgerStore) SaveTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if s.tx == nil {
		return s.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
			return store.SaveTransaction(ctx, tx)
		})
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return err
	}

	message, err := outbox.NewMessage(tx.Event(shared.CorrelationIDFromContext(ctx)))
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return s.outbox.Create(ctx, message)
}
