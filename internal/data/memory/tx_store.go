package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/transaction"
)

// txStore buffers writes made inside RunInTx on top of the parent Store
type txStore struct {
	parent *Store

	mu           sync.Mutex
	users        map[int64]account.User
	accounts     map[string]account.Account
	transactions map[string]transaction.Transaction
	order        []string // transaction ids in insertion order
}

var _ ledger.Store = (*txStore)(nil)

func newTxStore(parent *Store) *txStore {
	return &txStore{
		parent:       parent,
		users:        make(map[int64]account.User),
		accounts:     make(map[string]account.Account),
		transactions: make(map[string]transaction.Transaction),
	}
}

func (t *txStore) CreateAccountUser(_ context.Context, user *account.User) error {
	t.parent.mu.Lock()
	t.parent.state.lastUserID++
	user.ID = t.parent.state.lastUserID
	t.parent.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.users[user.ID] = *user
	return nil
}

func (t *txStore) GetAccountUser(ctx context.Context, userID int64) (*account.User, error) {
	t.mu.Lock()
	user, ok := t.users[userID]
	t.mu.Unlock()
	if ok {
		return &user, nil
	}
	return t.parent.GetAccountUser(ctx, userID)
}

// CreateAccount reserves the identity immediately, like a database sequence, so numbers are never reused
func (t *txStore) CreateAccount(_ context.Context, acc *account.Account) error {
	t.parent.mu.Lock()
	t.parent.assignAccountIdentity(acc)
	t.parent.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[acc.AccountNumber] = *copyAccount(*acc)
	return nil
}

func (t *txStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*account.Account, error) {
	t.mu.Lock()
	acc, ok := t.accounts[accountNumber]
	t.mu.Unlock()
	if ok {
		return copyAccount(acc), nil
	}
	return t.parent.GetAccountByNumber(ctx, accountNumber)
}

func (t *txStore) SaveAccount(ctx context.Context, acc *account.Account) error {
	if _, err := t.GetAccountByNumber(ctx, acc.AccountNumber); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[acc.AccountNumber] = *copyAccount(*acc)
	return nil
}

func (t *txStore) CountAccountsByUser(ctx context.Context, userID int64) (int, error) {
	accounts, err := t.ListAccountsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(accounts), nil
}

func (t *txStore) ListAccountsByUser(_ context.Context, userID int64) ([]*account.Account, error) {
	t.parent.mu.RLock()
	merged := make(map[string]account.Account)
	for number, acc := range t.parent.state.accounts {
		if acc.UserID == userID {
			merged[number] = acc
		}
	}
	t.parent.mu.RUnlock()

	t.mu.Lock()
	for number, acc := range t.accounts {
		if acc.UserID == userID {
			merged[number] = acc
		}
	}
	t.mu.Unlock()

	accounts := make([]*account.Account, 0, len(merged))
	for _, acc := range merged {
		accounts = append(accounts, copyAccount(acc))
	}
	sortAccounts(accounts)
	return accounts, nil
}

// SaveTransaction reserves the row id up front, the way CreateAccount reserves its identity.
// A rolled back transaction leaves a gap, as a BIGSERIAL would.
func (t *txStore) SaveTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if _, err := t.GetTransactionByID(ctx, tx.TransactionID); err == nil {
		return transaction.ErrDuplicateTransaction{TransactionID: tx.TransactionID}
	}

	t.parent.mu.Lock()
	t.parent.state.lastTransactionID++
	tx.ID = t.parent.state.lastTransactionID
	t.parent.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.transactions[tx.TransactionID] = *tx
	t.order = append(t.order, tx.TransactionID)
	return nil
}

func (t *txStore) GetTransactionByID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	t.mu.Lock()
	tx, ok := t.transactions[transactionID]
	t.mu.Unlock()
	if ok {
		return &tx, nil
	}
	return t.parent.GetTransactionByID(ctx, transactionID)
}

// RunInTx joins the enclosing transaction
func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	return fn(ctx, t)
}

func (t *txStore) commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.parent
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range t.order {
		if _, exists := p.state.transactions[id]; exists {
			return transaction.ErrDuplicateTransaction{TransactionID: id}
		}
	}

	for id, user := range t.users {
		p.state.users[id] = user
	}
	for number, acc := range t.accounts {
		p.state.accounts[number] = acc
	}
	for _, id := range t.order {
		p.state.transactions[id] = t.transactions[id]
	}
	return nil
}

func sortAccounts(accounts []*account.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})
}
