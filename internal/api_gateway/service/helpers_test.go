package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/balance-ledger/internal/data/memory"
	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/transaction"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialIDs returns deterministic transaction ids
func sequentialIDs() transaction.IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%032x", n)
	}
}

// countingStore counts transaction rows written through it, including inside RunInTx
type countingStore struct {
	ledger.Store
	mu    *sync.Mutex
	saved *int
}

func newCountingStore(inner ledger.Store) *countingStore {
	return &countingStore{Store: inner, mu: &sync.Mutex{}, saved: new(int)}
}

func (c *countingStore) SaveTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if err := c.Store.SaveTransaction(ctx, tx); err != nil {
		return err
	}
	c.mu.Lock()
	*c.saved++
	c.mu.Unlock()
	return nil
}

func (c *countingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	return c.Store.RunInTx(ctx, func(ctx context.Context, inner ledger.Store) error {
		return fn(ctx, &countingStore{Store: inner, mu: c.mu, saved: c.saved})
	})
}

func (c *countingStore) Saved() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.saved
}

type fixture struct {
	store   *countingStore
	service *TransactionServiceImpl
	user    *account.User
	account *account.Account
}

// newFixture seeds one user owning one account with the given balance
func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := newCountingStore(memory.NewStore(newTestLogger()))

	user, err := account.NewUser("kim")
	require.NoError(t, err)
	require.NoError(t, store.CreateAccountUser(ctx, user))

	acc, err := account.NewAccount(user.ID, balance)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, acc))

	svc := newTransactionService(newTestLogger(), store, nil, sequentialIDs())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{store: store, service: svc, user: user, account: acc}
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	acc, err := f.store.GetAccountByNumber(context.Background(), f.account.AccountNumber)
	require.NoError(t, err)
	return acc.Balance
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateAccountUser(ctx context.Context, user *account.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) GetAccountUser(ctx context.Context, userID int64) (*account.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockStore) CreateAccount(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockStore) SaveAccount(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockStore) CountAccountsByUser(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ListAccountsByUser(ctx context.Context, userID int64) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockStore) SaveTransaction(ctx context.Context, tx *transaction.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockStore) GetTransactionByID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

// RunInTx runs fn against the mock itself when the expectation returns no error
func (m *MockStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Create(ctx context.Context, entry *history.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetByAccountNumber(ctx context.Context, accountNumber string, limit, offset int) ([]*history.Entry, error) {
	args := m.Called(ctx, accountNumber, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Entry), args.Error(1)
}

func (m *MockHistoryRepository) CountByAccountNumber(ctx context.Context, accountNumber string) (int64, error) {
	args := m.Called(ctx, accountNumber)
	return args.Get(0).(int64), args.Error(1)
}

var (
	_ ledger.Store       = (*MockStore)(nil)
	_ history.Repository = (*MockHistoryRepository)(nil)
)
