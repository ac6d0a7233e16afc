package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/shared"
	"github.com/balance-ledger/internal/domain/transaction"
	"github.com/balance-ledger/internal/platform/lock"
)

func TestTransactionServiceImpl_UseBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, 10000)

		tx, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 200)

		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeUse, tx.Type)
		assert.Equal(t, shared.TransactionResultSuccess, tx.Result)
		assert.Equal(t, int64(200), tx.Amount)
		assert.Equal(t, int64(9800), tx.BalanceSnapshot)
		assert.Equal(t, f.account.ID, tx.AccountID)
		assert.Equal(t, fixedNow, tx.TransactedAt)
		assert.Len(t, tx.TransactionID, 32)
		assert.Equal(t, int64(9800), f.balance(t))
		assert.Equal(t, 1, f.store.Saved())

		stored, err := f.service.QueryTransaction(ctx, tx.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, tx.TransactionID, stored.TransactionID)
		assert.NotZero(t, tx.ID)
		assert.Equal(t, stored.ID, tx.ID)
	})

	t.Run("AmountExceedsBalance", func(t *testing.T) {
		f := newFixture(t, 100)

		tx, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 1000)

		assert.Nil(t, tx)
		assert.ErrorIs(t, err, shared.ErrAmountExceedsBalance)
		assert.Equal(t, 0, f.store.Saved())
		assert.Equal(t, int64(100), f.balance(t))

		failed, err := f.service.RecordFailedUse(ctx, f.account.AccountNumber, 1000)
		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeUse, failed.Type)
		assert.Equal(t, shared.TransactionResultFail, failed.Result)
		assert.Equal(t, int64(100), failed.BalanceSnapshot)
		assert.Equal(t, 1, f.store.Saved())
		assert.Equal(t, int64(100), f.balance(t))
	})

	t.Run("SpendWholeBalance", func(t *testing.T) {
		f := newFixture(t, 500)

		tx, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 500)

		require.NoError(t, err)
		assert.Equal(t, int64(0), tx.BalanceSnapshot)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		f := newFixture(t, 100)

		_, err := f.service.UseBalance(ctx, 999, f.account.AccountNumber, 10)

		assert.ErrorIs(t, err, shared.ErrUserNotFound)
		assert.Equal(t, 0, f.store.Saved())
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		f := newFixture(t, 100)

		_, err := f.service.UseBalance(ctx, f.user.ID, "9999999999", 10)

		assert.ErrorIs(t, err, shared.ErrAccountNotFound)
	})

	t.Run("UserAccountMismatch", func(t *testing.T) {
		f := newFixture(t, 100)
		other, _ := account.NewUser("lee")
		require.NoError(t, f.store.CreateAccountUser(ctx, other))

		_, err := f.service.UseBalance(ctx, other.ID, f.account.AccountNumber, 10)

		assert.ErrorIs(t, err, shared.ErrUserAccountMismatch)
		assert.Equal(t, int64(100), f.balance(t))
	})

	t.Run("AccountAlreadyUnregistered", func(t *testing.T) {
		f := newFixture(t, 100)
		acc, _ := f.store.GetAccountByNumber(ctx, f.account.AccountNumber)
		require.NoError(t, acc.Unregister(fixedNow))
		require.NoError(t, f.store.SaveAccount(ctx, acc))

		_, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 10)

		assert.ErrorIs(t, err, shared.ErrAccountAlreadyUnregistered)
	})

	t.Run("OwnerCheckedBeforeStatus", func(t *testing.T) {
		f := newFixture(t, 100)
		acc, _ := f.store.GetAccountByNumber(ctx, f.account.AccountNumber)
		require.NoError(t, acc.Unregister(fixedNow))
		require.NoError(t, f.store.SaveAccount(ctx, acc))
		other, _ := account.NewUser("lee")
		require.NoError(t, f.store.CreateAccountUser(ctx, other))

		_, err := f.service.UseBalance(ctx, other.ID, f.account.AccountNumber, 1000)

		assert.ErrorIs(t, err, shared.ErrUserAccountMismatch)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		f := newFixture(t, 100)

		_, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 0)

		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
		assert.Equal(t, 0, f.store.Saved())
	})

	t.Run("PersistFailure", func(t *testing.T) {
		mockStore := new(MockStore)
		svc := newTransactionService(newTestLogger(), mockStore, nil, sequentialIDs())
		user := &account.User{ID: 1}
		acc := &account.Account{ID: 7, UserID: 1, AccountNumber: "1000000000", Status: shared.AccountStatusInUse, Balance: 100}
		dbErr := errors.New("connection reset")

		mockStore.On("GetAccountUser", ctx, int64(1)).Return(user, nil).Once()
		mockStore.On("GetAccountByNumber", ctx, "1000000000").Return(acc, nil).Once()
		mockStore.On("RunInTx", ctx).Return(dbErr).Once()

		tx, err := svc.UseBalance(ctx, 1, "1000000000", 10)

		assert.Nil(t, tx)
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, shared.KindInternalError, shared.KindOf(err))
		assert.False(t, shared.IsBusinessError(err))
		mockStore.AssertExpectations(t)
	})

	t.Run("WritesAccountAndTransactionInOneUnit", func(t *testing.T) {
		mockStore := new(MockStore)
		svc := newTransactionService(newTestLogger(), mockStore, nil, sequentialIDs())
		user := &account.User{ID: 1}
		acc := &account.Account{ID: 7, UserID: 1, AccountNumber: "1000000000", Status: shared.AccountStatusInUse, Balance: 100}

		mockStore.On("GetAccountUser", ctx, int64(1)).Return(user, nil).Once()
		mockStore.On("GetAccountByNumber", ctx, "1000000000").Return(acc, nil).Once()
		mockStore.On("RunInTx", ctx).Return(nil).Once()
		mockStore.On("SaveAccount", ctx, mock.MatchedBy(func(a *account.Account) bool {
			return a.Balance == 90
		})).Return(nil).Once()
		mockStore.On("SaveTransaction", ctx, mock.MatchedBy(func(tx *transaction.Transaction) bool {
			return tx.BalanceSnapshot == 90 && tx.AccountID == 7
		})).Return(nil).Once()

		_, err := svc.UseBalance(ctx, 1, "1000000000", 10)

		require.NoError(t, err)
		mockStore.AssertExpectations(t)
	})
}

func TestTransactionServiceImpl_CancelBalance(t *testing.T) {
	ctx := context.Background()

	useAt := func(t *testing.T, f *fixture, amount int64, at time.Time) *transaction.Transaction {
		t.Helper()
		f.service.now = func() time.Time { return at }
		tx, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, amount)
		require.NoError(t, err)
		f.service.now = func() time.Time { return fixedNow }
		return tx
	}

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow.Add(-time.Hour))

		tx, err := f.service.CancelBalance(ctx, original.TransactionID, f.account.AccountNumber, 1200)

		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeCancel, tx.Type)
		assert.Equal(t, shared.TransactionResultSuccess, tx.Result)
		assert.Equal(t, int64(10000), tx.BalanceSnapshot)
		assert.NotEqual(t, original.TransactionID, tx.TransactionID)
		assert.Equal(t, int64(10000), f.balance(t))
	})

	t.Run("CancelMustBeFull", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow.Add(-time.Hour))
		saved := f.store.Saved()

		_, err := f.service.CancelBalance(ctx, original.TransactionID, f.account.AccountNumber, 200)

		assert.ErrorIs(t, err, shared.ErrCancelMustBeFull)
		assert.Equal(t, int64(8800), f.balance(t))
		assert.Equal(t, saved, f.store.Saved())
	})

	t.Run("CancelWindowExpired", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow.AddDate(-1, 0, -1))

		_, err := f.service.CancelBalance(ctx, original.TransactionID, f.account.AccountNumber, 1200)

		assert.ErrorIs(t, err, shared.ErrCancelWindowExpired)
		assert.Equal(t, int64(8800), f.balance(t))
	})

	t.Run("ExactlyOneYearOld", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow.AddDate(-1, 0, 0))

		_, err := f.service.CancelBalance(ctx, original.TransactionID, f.account.AccountNumber, 1200)

		assert.NoError(t, err)
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		f := newFixture(t, 10000)

		_, err := f.service.CancelBalance(ctx, "missing", f.account.AccountNumber, 1200)

		assert.ErrorIs(t, err, shared.ErrTransactionNotFound)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow)

		_, err := f.service.CancelBalance(ctx, original.TransactionID, "9999999999", 1200)

		assert.ErrorIs(t, err, shared.ErrAccountNotFound)
	})

	t.Run("TransactionAccountMismatch", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow)
		other, _ := account.NewAccount(f.user.ID, 0)
		require.NoError(t, f.store.CreateAccount(ctx, other))

		_, err := f.service.CancelBalance(ctx, original.TransactionID, other.AccountNumber, 1200)

		assert.ErrorIs(t, err, shared.ErrTransactionAccountMismatch)
	})

	t.Run("MismatchCheckedBeforeAmount", func(t *testing.T) {
		f := newFixture(t, 10000)
		original := useAt(t, f, 1200, fixedNow.AddDate(-2, 0, 0))
		other, _ := account.NewAccount(f.user.ID, 0)
		require.NoError(t, f.store.CreateAccount(ctx, other))

		_, err := f.service.CancelBalance(ctx, original.TransactionID, other.AccountNumber, 1)

		assert.ErrorIs(t, err, shared.ErrTransactionAccountMismatch)
	})
}

func TestTransactionServiceImpl_CancelOnlyReversesSuccessfulUse(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectedUseCannotBeCancelled", func(t *testing.T) {
		f := newFixture(t, 100)

		_, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 1000)
		require.ErrorIs(t, err, shared.ErrAmountExceedsBalance)
		failed, err := f.service.RecordFailedUse(ctx, f.account.AccountNumber, 1000)
		require.NoError(t, err)
		saved := f.store.Saved()

		_, err = f.service.CancelBalance(ctx, failed.TransactionID, f.account.AccountNumber, 1000)

		assert.ErrorIs(t, err, shared.ErrTransactionNotCancellable)
		assert.Equal(t, shared.KindTransactionNotFound, shared.KindOf(err))
		assert.Contains(t, err.Error(), "no successful use")
		assert.Equal(t, int64(100), f.balance(t))
		assert.Equal(t, saved, f.store.Saved())
	})

	t.Run("CancelRecordCannotBeCancelled", func(t *testing.T) {
		f := newFixture(t, 100)
		used, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 50)
		require.NoError(t, err)
		cancelled, err := f.service.CancelBalance(ctx, used.TransactionID, f.account.AccountNumber, 50)
		require.NoError(t, err)

		_, err = f.service.CancelBalance(ctx, cancelled.TransactionID, f.account.AccountNumber, 50)

		assert.ErrorIs(t, err, shared.ErrTransactionNotCancellable)
		assert.Equal(t, int64(100), f.balance(t))
	})

	t.Run("FailedCancelRecordCannotBeCancelled", func(t *testing.T) {
		f := newFixture(t, 100)
		failed, err := f.service.RecordFailedCancel(ctx, f.account.AccountNumber, 30)
		require.NoError(t, err)

		_, err = f.service.CancelBalance(ctx, failed.TransactionID, f.account.AccountNumber, 30)

		assert.ErrorIs(t, err, shared.ErrTransactionNotCancellable)
		assert.Equal(t, int64(100), f.balance(t))
	})

	t.Run("MismatchCheckedBeforeType", func(t *testing.T) {
		f := newFixture(t, 100)
		failed, err := f.service.RecordFailedUse(ctx, f.account.AccountNumber, 1000)
		require.NoError(t, err)
		other, _ := account.NewAccount(f.user.ID, 0)
		require.NoError(t, f.store.CreateAccount(ctx, other))

		_, err = f.service.CancelBalance(ctx, failed.TransactionID, other.AccountNumber, 1000)

		assert.ErrorIs(t, err, shared.ErrTransactionAccountMismatch)
	})
}

func TestTransactionServiceImpl_RecordFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("UseNeverMutatesBalance", func(t *testing.T) {
		f := newFixture(t, 700)

		tx, err := f.service.RecordFailedUse(ctx, f.account.AccountNumber, 5000)

		require.NoError(t, err)
		assert.Equal(t, shared.TransactionResultFail, tx.Result)
		assert.Equal(t, int64(5000), tx.Amount)
		assert.Equal(t, int64(700), tx.BalanceSnapshot)
		assert.Equal(t, int64(700), f.balance(t))
	})

	t.Run("CancelNeverMutatesBalance", func(t *testing.T) {
		f := newFixture(t, 700)

		tx, err := f.service.RecordFailedCancel(ctx, f.account.AccountNumber, 300)

		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeCancel, tx.Type)
		assert.Equal(t, shared.TransactionResultFail, tx.Result)
		assert.Equal(t, int64(700), tx.BalanceSnapshot)
		assert.Equal(t, int64(700), f.balance(t))

		stored, err := f.service.QueryTransaction(ctx, tx.TransactionID)
		require.NoError(t, err)
		assert.False(t, stored.Succeeded())
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		f := newFixture(t, 700)

		_, err := f.service.RecordFailedUse(ctx, "9999999999", 10)

		assert.ErrorIs(t, err, shared.ErrAccountNotFound)
		assert.Equal(t, 0, f.store.Saved())
	})

	t.Run("StoreFailure", func(t *testing.T) {
		mockStore := new(MockStore)
		svc := newTransactionService(newTestLogger(), mockStore, nil, sequentialIDs())
		acc := &account.Account{ID: 7, AccountNumber: "1000000000", Balance: 100}

		mockStore.On("GetAccountByNumber", ctx, "1000000000").Return(acc, nil).Once()
		mockStore.On("SaveTransaction", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(errors.New("db down")).Once()

		_, err := svc.RecordFailedCancel(ctx, "1000000000", 10)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to record failed transaction")
		mockStore.AssertExpectations(t)
	})
}

func TestTransactionServiceImpl_QueryTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		f := newFixture(t, 10000)
		used, err := f.service.UseBalance(ctx, f.user.ID, f.account.AccountNumber, 200)
		require.NoError(t, err)

		tx, err := f.service.QueryTransaction(ctx, used.TransactionID)

		require.NoError(t, err)
		assert.Equal(t, shared.TransactionTypeUse, tx.Type)
		assert.Equal(t, shared.TransactionResultSuccess, tx.Result)
		assert.Equal(t, int64(200), tx.Amount)
		assert.Equal(t, f.account.AccountNumber, tx.AccountNumber)
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		f := newFixture(t, 10000)

		tx, err := f.service.QueryTransaction(ctx, "does-not-exist")

		assert.Nil(t, tx)
		assert.ErrorIs(t, err, shared.ErrTransactionNotFound)
	})
}

func TestTransactionServiceImpl_GetTransactionsByAccountNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, 10000)
		historyRepo := new(MockHistoryRepository)
		f.service.historyRepo = historyRepo
		entries := []*history.Entry{{TransactionID: "a"}, {TransactionID: "b"}}

		historyRepo.On("GetByAccountNumber", ctx, f.account.AccountNumber, 2, 2).Return(entries, nil).Once()
		historyRepo.On("CountByAccountNumber", ctx, f.account.AccountNumber).Return(int64(5), nil).Once()

		got, total, err := f.service.GetTransactionsByAccountNumber(ctx, f.account.AccountNumber, 2, 2)

		require.NoError(t, err)
		assert.Equal(t, entries, got)
		assert.Equal(t, int64(5), total)
		historyRepo.AssertExpectations(t)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		f := newFixture(t, 10000)
		historyRepo := new(MockHistoryRepository)
		f.service.historyRepo = historyRepo

		_, _, err := f.service.GetTransactionsByAccountNumber(ctx, "9999999999", 1, 10)

		assert.ErrorIs(t, err, shared.ErrAccountNotFound)
		historyRepo.AssertNotCalled(t, "GetByAccountNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ClampsPageBounds", func(t *testing.T) {
		f := newFixture(t, 10000)
		historyRepo := new(MockHistoryRepository)
		f.service.historyRepo = historyRepo
		maxOffset := (MaxHistoryPage - 1) * MaxHistoryPerPage

		historyRepo.On("GetByAccountNumber", ctx, f.account.AccountNumber, MaxHistoryPerPage, maxOffset).Return([]*history.Entry{}, nil).Once()
		historyRepo.On("GetByAccountNumber", ctx, f.account.AccountNumber, 1, 0).Return([]*history.Entry{}, nil).Once()
		historyRepo.On("CountByAccountNumber", ctx, f.account.AccountNumber).Return(int64(0), nil).Twice()

		_, _, err := f.service.GetTransactionsByAccountNumber(ctx, f.account.AccountNumber, math.MaxInt, math.MaxInt)
		require.NoError(t, err)
		_, _, err = f.service.GetTransactionsByAccountNumber(ctx, f.account.AccountNumber, -5, 0)
		require.NoError(t, err)

		historyRepo.AssertExpectations(t)
	})

	t.Run("HistoryError", func(t *testing.T) {
		f := newFixture(t, 10000)
		historyRepo := new(MockHistoryRepository)
		f.service.historyRepo = historyRepo
		mongoErr := errors.New("mongo unavailable")

		historyRepo.On("GetByAccountNumber", ctx, f.account.AccountNumber, 10, 0).Return(nil, mongoErr).Once()

		_, _, err := f.service.GetTransactionsByAccountNumber(ctx, f.account.AccountNumber, 1, 10)

		assert.ErrorIs(t, err, mongoErr)
		historyRepo.AssertExpectations(t)
	})
}

func TestTransactionServiceImpl_ConcurrentUseUnderLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)
	locks := lock.NewMemoryManager(newTestLogger(), lock.Options{
		Tries:      1000,
		RetryDelay: time.Millisecond,
	})

	type useRequest struct {
		accountNumber string
		amount        int64
	}
	use := lock.Guard(locks,
		func(r useRequest) string { return lock.AccountKey(r.accountNumber) },
		func(ctx context.Context, r useRequest) (*transaction.Transaction, error) {
			return f.service.UseBalance(ctx, f.user.ID, r.accountNumber, r.amount)
		},
	)

	const workers = 40
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := use(ctx, useRequest{accountNumber: f.account.AccountNumber, amount: 300})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, shared.ErrAmountExceedsBalance)
				rejected++
				return
			}
			assert.GreaterOrEqual(t, tx.BalanceSnapshot, int64(0))
			succeeded += tx.Amount
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(9900), succeeded)
	assert.Equal(t, workers-33, rejected)
	assert.Equal(t, int64(10000)-succeeded, f.balance(t))
	assert.Equal(t, 33, f.store.Saved())
}
