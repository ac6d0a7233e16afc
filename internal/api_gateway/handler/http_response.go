package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/balance-ledger/internal/api_gateway/middleware"
	"github.com/balance-ledger/internal/domain/account"
	"github.com/balance-ledger/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage, totalItems int) *Response {
	totalPages := totalItems / perPage
	if totalItems%perPage > 0 {
		totalPages++
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondInternalError sends a 500 response that hides the cause
func RespondInternalError(c *gin.Context) {
	internal := shared.NewInternalError(nil)
	RespondWithError(c, http.StatusInternalServerError, string(internal.Kind), internal.Message)
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindUserNotFound, shared.KindAccountNotFound, shared.KindTransactionNotFound:
		return http.StatusNotFound
	case shared.KindInvalidAmount:
		return http.StatusBadRequest
	case shared.KindLockTimeout:
		return http.StatusServiceUnavailable
	case shared.KindInternalError:
		return http.StatusInternalServerError
	}
	if kind.IsBusiness() {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// RespondWithLedgerError writes the kind and message of err.
// Infrastructure causes are logged in full; the client only sees the kind and a generic message.
func RespondWithLedgerError(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, account.ErrEmptyUserName) {
		RespondBadRequest(c, err.Error())
		return
	}

	kind := shared.KindOf(err)
	switch kind {
	case shared.KindInternalError:
		logger.Error("Request failed",
			"path", c.Request.URL.Path,
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		RespondInternalError(c)
		return
	case shared.KindLockTimeout:
		logger.Warn("Account lock not acquired",
			"path", c.Request.URL.Path,
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		c.Header("Retry-After", "1")
		RespondWithError(c, http.StatusServiceUnavailable, string(kind), shared.ErrLockTimeout.Message)
		return
	}

	var ledgerErr shared.Error
	message := err.Error()
	if errors.As(err, &ledgerErr) {
		message = ledgerErr.Message
	}
	RespondWithError(c, StatusForKind(kind), string(kind), message)
}
