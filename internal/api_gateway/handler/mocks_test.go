package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/balance-ledger/internal/api_gateway/service"
	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/transaction"
	"github.com/balance-ledger/internal/platform/lock"
)

// PaginatedResponse is a generic version of Response for testing paginated data
type PaginatedResponse[T any] struct {
	Data          []T        `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// DataResponse is a generic version of Response for testing single objects
type DataResponse[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLocks() *lock.MemoryManager {
	return lock.NewMemoryManager(newTestLogger(), lock.Options{Tries: 3, RetryDelay: time.Millisecond})
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, _ := json.Marshal(b)
		reader = bytes.NewBuffer(payload)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*transaction.Transaction, error) {
	args := m.Called(ctx, userID, accountNumber, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) RecordFailedUse(ctx context.Context, accountNumber string, amount int64) (*transaction.Transaction, error) {
	args := m.Called(ctx, accountNumber, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) CancelBalance(ctx context.Context, transactionID string, accountNumber string, amount int64) (*transaction.Transaction, error) {
	args := m.Called(ctx, transactionID, accountNumber, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) RecordFailedCancel(ctx context.Context, accountNumber string, amount int64) (*transaction.Transaction, error) {
	args := m.Called(ctx, accountNumber, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) QueryTransaction(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransactionsByAccountNumber(ctx context.Context, accountNumber string, page, perPage int) ([]*history.Entry, int64, error) {
	args := m.Called(ctx, accountNumber, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*history.Entry), args.Get(1).(int64), args.Error(2)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccountUser(ctx context.Context, name string) (*account.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.User), args.Error(1)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, userID int64, initialBalance int64) (*account.Account, error) {
	args := m.Called(ctx, userID, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, userID int64, accountNumber string) (*account.Account, error) {
	args := m.Called(ctx, userID, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, userID int64) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

var (
	_ service.TransactionService = (*MockTransactionService)(nil)
	_ service.AccountService     = (*MockAccountService)(nil)
)
