package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/ledger"
	"github.com/balance-ledger/internal/domain/shared"
	"github.com/balance-ledger/internal/domain/transaction"
)

// CancelWindow is how far back a USE transaction may still be cancelled
const CancelWindow = 1 // years

// History paging bounds. They keep (page-1)*perPage well inside int range.
const (
	MaxHistoryPage    = 10000
	MaxHistoryPerPage = 100
)

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	store       ledger.Store
	historyRepo history.Repository
	newID       transaction.IDGenerator
	now         func() time.Time
	logger      *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(logger *slog.Logger, store ledger.Store, historyRepo history.Repository, newID transaction.IDGenerator) TransactionService {
	return newTransactionService(logger, store, historyRepo, newID)
}

func newTransactionService(logger *slog.Logger, store ledger.Store, historyRepo history.Repository, newID transaction.IDGenerator) *TransactionServiceImpl {
	if newID == nil {
		newID = transaction.NewID
	}
	return &TransactionServiceImpl{
		store:       store,
		historyRepo: historyRepo,
		newID:       newID,
		now:         time.Now,
		logger:      logger,
	}
}

// UseBalance validates the request against the account, debits it and records the result.
// No transaction is written when validation fails; callers record the failure with RecordFailedUse.
func (s *TransactionServiceImpl) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*transaction.Transaction, error) {
	user, err := s.store.GetAccountUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if err := validateUse(user, acc, amount); err != nil {
		s.logger.Info("Use balance rejected",
			"account_number", accountNumber,
			"amount", amount,
			"kind", string(shared.KindOf(err)),
		)
		return nil, err
	}

	if err := acc.Debit(amount); err != nil {
		return nil, err
	}

	tx, err := s.persist(ctx, acc, shared.TransactionTypeUse, shared.TransactionResultSuccess, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Balance used",
		"transaction_id", tx.TransactionID,
		"account_number", accountNumber,
		"amount", amount,
		"balance_snapshot", tx.BalanceSnapshot,
	)
	return tx, nil
}

func validateUse(user *account.User, acc *account.Account, amount int64) error {
	if acc.UserID != user.ID {
		return shared.ErrUserAccountMismatch
	}
	if !acc.InUse() {
		return shared.ErrAccountAlreadyUnregistered
	}
	if amount <= 0 {
		return shared.ErrInvalidAmount
	}
	if amount > acc.Balance {
		return shared.ErrAmountExceedsBalance
	}
	return nil
}

// CancelBalance reverses the full amount of an earlier transaction on the same account
func (s *TransactionServiceImpl) CancelBalance(ctx context.Context, transactionID string, accountNumber string, amount int64) (*transaction.Transaction, error) {
	original, err := s.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	acc, err := s.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if err := s.validateCancel(original, acc, amount); err != nil {
		s.logger.Info("Cancel balance rejected",
			"transaction_id", transactionID,
			"account_number", accountNumber,
			"amount", amount,
			"kind", string(shared.KindOf(err)),
		)
		return nil, err
	}

	if err := acc.CreditReversal(amount); err != nil {
		return nil, err
	}

	tx, err := s.persist(ctx, acc, shared.TransactionTypeCancel, shared.TransactionResultSuccess, amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Balance use cancelled",
		"transaction_id", tx.TransactionID,
		"original_transaction_id", transactionID,
		"account_number", accountNumber,
		"amount", amount,
		"balance_snapshot", tx.BalanceSnapshot,
	)
	return tx, nil
}

func (s *TransactionServiceImpl) validateCancel(original *transaction.Transaction, acc *account.Account, amount int64) error {
	if original.AccountID != acc.ID {
		return shared.ErrTransactionAccountMismatch
	}
	if !original.Cancellable() {
		return shared.ErrTransactionNotCancellable
	}
	if original.Amount != amount {
		return shared.ErrCancelMustBeFull
	}
	if original.TransactedAt.Before(s.now().AddDate(-CancelWindow, 0, 0)) {
		return shared.ErrCancelWindowExpired
	}
	return nil
}

// RecordFailedUse appends a USE/FAIL transaction. The balance is left untouched.
func (s *TransactionServiceImpl) RecordFailedUse(ctx context.Context, accountNumber string, amount int64) (*transaction.Transaction, error) {
	return s.recordFailure(ctx, shared.TransactionTypeUse, accountNumber, amount)
}

// RecordFailedCancel appends a CANCEL/FAIL transaction. The balance is left untouched.
func (s *TransactionServiceImpl) RecordFailedCancel(ctx context.Context, accountNumber string, amount int64) (*transaction.Transaction, error) {
	return s.recordFailure(ctx, shared.TransactionTypeCancel, accountNumber, amount)
}

func (s *TransactionServiceImpl) recordFailure(ctx context.Context, txType shared.TransactionType, accountNumber string, amount int64) (*transaction.Transaction, error) {
	acc, err := s.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	tx := s.newTransaction(acc, txType, shared.TransactionResultFail, amount)
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		s.logger.Error("Failed to record failed transaction",
			"account_number", accountNumber,
			"type", string(txType),
			"error", err,
		)
		return nil, fmt.Errorf("failed to record failed transaction: %w", err)
	}

	s.logger.Info("Failed transaction recorded",
		"transaction_id", tx.TransactionID,
		"account_number", accountNumber,
		"type", string(txType),
		"amount", amount,
		"balance_snapshot", tx.BalanceSnapshot,
	)
	return tx, nil
}

// persist writes the mutated account and its SUCCESS record in one store transaction
func (s *TransactionServiceImpl) persist(ctx context.Context, acc *account.Account, txType shared.TransactionType, result shared.TransactionResult, amount int64) (*transaction.Transaction, error) {
	tx := s.newTransaction(acc, txType, result, amount)

	err := s.store.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		if err := store.SaveAccount(ctx, acc); err != nil {
			return err
		}
		return store.SaveTransaction(ctx, tx)
	})
	if err != nil {
		s.logger.Error("Failed to persist balance change",
			"account_number", acc.AccountNumber,
			"type", string(txType),
			"error", err,
		)
		return nil, fmt.Errorf("failed to persist %s transaction: %w", txType, err)
	}

	return tx, nil
}

func (s *TransactionServiceImpl) newTransaction(acc *account.Account, txType shared.TransactionType, result shared.TransactionResult, amount int64) *transaction.Transaction {
	return &transaction.Transaction{
		TransactionID:   s.newID(),
		Type:            txType,
		Result:          result,
		AccountID:       acc.ID,
		AccountNumber:   acc.AccountNumber,
		Amount:          amount,
		BalanceSnapshot: acc.Balance,
		TransactedAt:    s.now(),
	}
}

// QueryTransaction reads a transaction without taking the account lock
func (s *TransactionServiceImpl) QueryTransaction(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	tx, err := s.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		if shared.KindOf(err) == shared.KindTransactionNotFound {
			s.logger.Info("Transaction not found", "transaction_id", transactionID)
		} else {
			s.logger.Error("Failed to get transaction by ID", "transaction_id", transactionID, "error", err)
		}
		return nil, err
	}
	return tx, nil
}

// GetTransactionsByAccountNumber retrieves a page of the account's projected history
// Returns entries, total count, and any error
func (s *TransactionServiceImpl) GetTransactionsByAccountNumber(ctx context.Context, accountNumber string, page, perPage int) ([]*history.Entry, int64, error) {
	if _, err := s.store.GetAccountByNumber(ctx, accountNumber); err != nil {
		return nil, 0, err
	}

	page = min(max(page, 1), MaxHistoryPage)
	perPage = min(max(perPage, 1), MaxHistoryPerPage)
	offset := (page - 1) * perPage

	entries, err := s.historyRepo.GetByAccountNumber(ctx, accountNumber, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.historyRepo.CountByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
