// Package memory provides a single-process ledger.Store. It keeps no history projection
// and loses its state on restart; it backs local runs and service tests.
package memory

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/transaction"
)

const firstAccountNumber = 1000000000

type state struct {
	users        map[int64]account.User
	accounts     map[string]account.Account
	transactions map[string]transaction.Transaction

	lastUserID        int64
	lastAccountID     int64
	lastTransactionID int64
	lastAccountNumber int64
}

// Store implements ledger.Store in memory. Reads return copies so callers never alias stored rows.
type Store struct {
	mu     sync.RWMutex
	state  state
	logger *slog.Logger
}

var _ ledger.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		state: state{
			users:        make(map[int64]account.User),
			accounts:     make(map[string]account.Account),
			transactions: make(map[string]transaction.Transaction),
		},
		logger: logger,
	}
}

func (s *Store) CreateAccountUser(_ context.Context, user *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.lastUserID++
	user.ID = s.state.lastUserID
	s.state.users[user.ID] = *user
	return nil
}

func (s *Store) GetAccountUser(_ context.Context, userID int64) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.state.users[userID]
	if !ok {
		return nil, account.ErrUserNotFound{UserID: userID}
	}
	return &user, nil
}

// CreateAccount numbers accounts sequentially from 1000000000
func (s *Store) CreateAccount(_ context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignAccountIdentity(acc)
	s.state.accounts[acc.AccountNumber] = *acc
	return nil
}

func (s *Store) assignAccountIdentity(acc *account.Account) {
	s.state.lastAccountID++
	acc.ID = s.state.lastAccountID

	if s.state.lastAccountNumber == 0 {
		s.state.lastAccountNumber = firstAccountNumber
	} else {
		s.state.lastAccountNumber++
	}
	acc.AccountNumber = strconv.FormatInt(s.state.lastAccountNumber, 10)
}

func (s *Store) GetAccountByNumber(_ context.Context, accountNumber string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.state.accounts[accountNumber]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountNumber: accountNumber}
	}
	return copyAccount(acc), nil
}

func (s *Store) SaveAccount(_ context.Context, acc *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.accounts[acc.AccountNumber]; !ok {
		return account.ErrAccountNotFound{AccountNumber: acc.AccountNumber}
	}
	s.state.accounts[acc.AccountNumber] = *copyAccount(*acc)
	return nil
}

func (s *Store) CountAccountsByUser(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.countAccounts(userID), nil
}

func (s *Store) ListAccountsByUser(_ context.Context, userID int64) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.listAccounts(userID), nil
}

func (s *Store) SaveTransaction(_ context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.transactions[tx.TransactionID]; exists {
		return transaction.ErrDuplicateTransaction{TransactionID: tx.TransactionID}
	}
	s.state.lastTransactionID++
	tx.ID = s.state.lastTransactionID
	s.state.transactions[tx.TransactionID] = *tx
	return nil
}

func (s *Store) GetTransactionByID(_ context.Context, transactionID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.state.transactions[transactionID]
	if !ok {
		return nil, transaction.ErrTransactionNotFound{TransactionID: transactionID}
	}
	return &tx, nil
}

// RunInTx stages fn's writes and applies them in one critical section when fn succeeds.
// Reads inside fn see the staged writes. Nothing is applied if fn fails or panics.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	tx := newTxStore(s)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.commit(); err != nil {
		s.logger.Error("Failed to commit in-memory transaction", "error", err)
		return err
	}
	return nil
}

func (st *state) countAccounts(userID int64) int {
	count := 0
	for _, acc := range st.accounts {
		if acc.UserID == userID {
			count++
		}
	}
	return count
}

func (st *state) listAccounts(userID int64) []*account.Account {
	accounts := make([]*account.Account, 0)
	for _, acc := range st.accounts {
		if acc.UserID == userID {
			accounts = append(accounts, copyAccount(acc))
		}
	}
	sortAccounts(accounts)
	return accounts
}

func copyAccount(acc account.Account) *account.Account {
	if acc.UnregisteredAt != nil {
		at := *acc.UnregisteredAt
		acc.UnregisteredAt = &at
	}
	return &acc
}
