package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/balance-ledger/internal/api_gateway/service"
	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/platform/lock"
)

// AccountHandler handles HTTP requests for account owners and account lifecycle
type AccountHandler struct {
	accountService service.AccountService
	create         func(context.Context, CreateAccountRequest) (*account.Account, error)
	unregister     func(context.Context, DeleteAccountRequest) (*account.Account, error)
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler.
// Account creation is serialized per user and deletion per account number.
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService, locks lock.Manager) *AccountHandler {
	h := &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
	h.create = lock.Guard(locks,
		func(r CreateAccountRequest) string { return lock.UserKey(r.UserID) },
		func(ctx context.Context, r CreateAccountRequest) (*account.Account, error) {
			return accountService.CreateAccount(context.WithoutCancel(ctx), r.UserID, r.InitialBalance)
		},
	)
	h.unregister = lock.Guard(locks,
		func(r DeleteAccountRequest) string { return lock.AccountKey(r.AccountNumber) },
		func(ctx context.Context, r DeleteAccountRequest) (*account.Account, error) {
			return accountService.DeleteAccount(context.WithoutCancel(ctx), r.UserID, r.AccountNumber)
		},
	)
	return h
}

// CreateUser registers a new account owner
func (h *AccountHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.accountService.CreateAccountUser(c.Request.Context(), req.Name)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapUserToResponse(user))
}

// Create opens a new account for an existing user
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.create(c.Request.Context(), req)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	RespondCreated(c, CreateAccountResponse{
		UserID:        acc.UserID,
		AccountNumber: acc.AccountNumber,
		RegisteredAt:  acc.RegisteredAt.Format(time.RFC3339),
	})
}

// Delete unregisters an account whose balance is zero
func (h *AccountHandler) Delete(c *gin.Context) {
	var req DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.unregister(c.Request.Context(), req)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	response := DeleteAccountResponse{
		UserID:        acc.UserID,
		AccountNumber: acc.AccountNumber,
	}
	if acc.UnregisteredAt != nil {
		response.UnregisteredAt = acc.UnregisteredAt.Format(time.RFC3339)
	}
	RespondOK(c, response)
}

// List returns the account numbers and balances of a user
func (h *AccountHandler) List(c *gin.Context) {
	var query ListAccountsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), query.UserID)
	if err != nil {
		RespondWithLedgerError(c, h.logger, err)
		return
	}

	infos := make([]AccountInfo, 0, len(accounts))
	for _, acc := range accounts {
		infos = append(infos, AccountInfo{
			AccountNumber: acc.AccountNumber,
			Balance:       acc.Balance,
			Status:        string(acc.Status),
		})
	}
	RespondOK(c, infos)
}
