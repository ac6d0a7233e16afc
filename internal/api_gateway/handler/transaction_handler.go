package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balance-ledger/internal/api_gateway/service"
	"github.com/balance-ledger/internal/domain/shared"
	"github.com/balance-ledger/internal/domain/transaction"
	"github.com/balance-ledger/internal/platform/lock"
)

// TransactionHandler handles HTTP requests for balance operations
type TransactionHandler struct {
	transactionService service.TransactionService
	use                func(context.Context, UseBalanceRequest) (*transaction.Transaction, error)
	cancel             func(context.Context, CancelBalanceRequest) (*transaction.Transaction, error)
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler.
// Use and cancel run under the lock of the request's account number.
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService, locks lock.Manager) *TransactionHandler {
	h := &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
	h.use = lock.Guard(locks, func(r UseBalanceRequest) string { return lock.AccountKey(r.AccountNumber) }, h.useBalance)
	h.cancel = lock.Guard(locks, func(r CancelBalanceRequest) string { return lock.AccountKey(r.AccountNumber) }, h.cancelBalance)
	return h
}

// useBalance runs with the account lock held. A rejected use is recorded before the lock is released
// so the failure snapshot cannot race a concurrent success.
func (h *TransactionHandler) useBalance(ctx context.Context, req UseBalanceRequest) (*transaction.Transaction, error) {
	ctx = context.WithoutCancel(ctx)

	tx, err := h.transactionService.UseBalance(ctx, req.UserID, req.AccountNumber, req.Amount)
	if err != nil && recordsFailure(err) {
		if _, recordErr := h.transactionService.RecordFailedUse(ctx, req.AccountNumber, req.Amount); recordErr != nil {
			h.logger.Error("Failed to record failed use",
				"account_number", req.AccountNumber,
				"error", recordErr,
			)
		}
	}
	return tx, err
}

func (h *TransactionHandler) cancelBalance(ctx context.Context, req CancelBalanceRequest) (*transaction.Transaction, error) {
	ctx = context.WithoutCancel(ctx)

	tx, err := h.transactionService.CancelBalance(ctx, req.TransactionID, req.AccountNumber, req.Amount)
	if err != nil && recordsFailure(err) {
		if _, recordErr := h.transactionService.RecordFailedCancel(ctx, req.AccountNumber, req.Amount); recordErr != nil {
			h.logger.Error("Failed to record failed cancel",
				"account_number", req.AccountNumber,
				"error", recordErr,
			)
		}
	}
	return tx, err
}

// recordsFailure reports whether a failed attempt leaves a FAIL record.
// Only business rejections are recorded, and only when the account exists.
func recordsFailure(err error) bool {
	return shared.IsBusinessError(err) && shared.KindOf(err) != shared.KindAccountNotFound
}

// Use debits an account
func (h *TransactionHandler) Use(c *gin.Context) {
	var req UseBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.use(c.Request.Context(), req)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBalanceTransaction(tx))
}

// Cancel reverses a previous debit in full
func (h *TransactionHandler) Cancel(c *gin.Context) {
	var req CancelBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tx, err := h.cancel(c.Request.Context(), req)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBalanceTransaction(tx))
}

// GetByID retrieves a transaction by its id, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	tx, err := h.transactionService.QueryTransaction(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapQueryTransaction(tx))
}

// GetByAccountNumber retrieves the paginated transaction history of an account
func (h *TransactionHandler) GetByAccountNumber(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.transactionService.GetTransactionsByAccountNumber(
		c.Request.Context(),
		accountNumber,
		pagination.Page,
		pagination.PerPage,
	)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	transactions := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		transactions = append(transactions, mapHistoryEntry(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, transactions, pagination.Page, pagination.PerPage, int(total))
}
