package handler

import (
	"time"

	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/transaction"
)

// CreateUserRequest represents a request to register an account owner
type CreateUserRequest struct {
	Name string `json:"name" binding:"required"`
}

// UserResponse represents an account owner in API responses
type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// CreateAccountRequest represents a request to open a new account
type CreateAccountRequest struct {
	UserID         int64 `json:"user_id" binding:"required,gt=0"`
	InitialBalance int64 `json:"initial_balance" binding:"min=0"`
}

// CreateAccountResponse represents a newly opened account
type CreateAccountResponse struct {
	UserID        int64  `json:"user_id"`
	AccountNumber string `json:"account_number"`
	RegisteredAt  string `json:"registered_at"`
}

// DeleteAccountRequest represents a request to unregister an account
type DeleteAccountRequest struct {
	UserID        int64  `json:"user_id" binding:"required,gt=0"`
	AccountNumber string `json:"account_number" binding:"required,len=10,numeric"`
}

// DeleteAccountResponse represents an unregistered account
type DeleteAccountResponse struct {
	UserID         int64  `json:"user_id"`
	AccountNumber  string `json:"account_number"`
	UnregisteredAt string `json:"unregistered_at"`
}

// ListAccountsQuery holds the query parameters of the account listing
type ListAccountsQuery struct {
	UserID int64 `form:"user_id" binding:"required,gt=0"`
}

// AccountInfo represents one account in the account listing
type AccountInfo struct {
	AccountNumber string `json:"account_number"`
	Balance       int64  `json:"balance"`
	Status        string `json:"status"`
}

// UseBalanceRequest represents a request to debit an account
type UseBalanceRequest struct {
	UserID        int64  `json:"user_id" binding:"required,gt=0"`
	AccountNumber string `json:"account_number" binding:"required,len=10,numeric"`
	Amount        int64  `json:"amount" binding:"required,gt=0,max=1000000000"`
}

// CancelBalanceRequest represents a request to reverse a previous debit in full
type CancelBalanceRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required,len=10,numeric"`
	Amount        int64  `json:"amount" binding:"required,gt=0,max=1000000000"`
}

// BalanceTransactionResponse is returned by use and cancel
type BalanceTransactionResponse struct {
	AccountNumber     string `json:"account_number"`
	TransactionResult string `json:"transaction_result"`
	TransactionID     string `json:"transaction_id"`
	Amount            int64  `json:"amount"`
	BalanceSnapshot   int64  `json:"balance_snapshot"`
	TransactedAt      string `json:"transacted_at"`
}

// QueryTransactionResponse represents a recorded transaction
type QueryTransactionResponse struct {
	AccountNumber     string `json:"account_number"`
	TransactionType   string `json:"transaction_type"`
	TransactionResult string `json:"transaction_result"`
	TransactionID     string `json:"transaction_id"`
	Amount            int64  `json:"amount"`
	TransactedAt      string `json:"transacted_at"`
}

// HistoryEntryResponse represents one projected history entry
type HistoryEntryResponse struct {
	TransactionID     string `json:"transaction_id"`
	TransactionType   string `json:"transaction_type"`
	TransactionResult string `json:"transaction_result"`
	Amount            int64  `json:"amount"`
	BalanceSnapshot   int64  `json:"balance_snapshot"`
	TransactedAt      string `json:"transacted_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1,max=10000"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapUserToResponse(user *account.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func mapBalanceTransaction(tx *transaction.Transaction) BalanceTransactionResponse {
	return BalanceTransactionResponse{
		AccountNumber:     tx.AccountNumber,
		TransactionResult: string(tx.Result),
		TransactionID:     tx.TransactionID,
		Amount:            tx.Amount,
		BalanceSnapshot:   tx.BalanceSnapshot,
		TransactedAt:      tx.TransactedAt.Format(time.RFC3339),
	}
}

func mapQueryTransaction(tx *transaction.Transaction) QueryTransactionResponse {
	return QueryTransactionResponse{
		AccountNumber:     tx.AccountNumber,
		TransactionType:   string(tx.Type),
		TransactionResult: string(tx.Result),
		TransactionID:     tx.TransactionID,
		Amount:            tx.Amount,
		TransactedAt:      tx.TransactedAt.Format(time.RFC3339),
	}
}

func mapHistoryEntry(entry *history.Entry) HistoryEntryResponse {
	return HistoryEntryResponse{
		TransactionID:     entry.TransactionID,
		TransactionType:   string(entry.Type),
		TransactionResult: string(entry.Result),
		Amount:            entry.Amount,
		BalanceSnapshot:   entry.BalanceSnapshot,
		TransactedAt:      entry.TransactedAt.Format(time.RFC3339),
	}
}
