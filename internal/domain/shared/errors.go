package shared

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable discriminant carried by every error the ledger returns
type ErrorKind string

// Business error kinds. These are expected outcomes and are recorded as failed transactions.
const (
	KindUserNotFound               ErrorKind = "USER_NOT_FOUND"
	KindAccountNotFound            ErrorKind = "ACCOUNT_NOT_FOUND"
	KindUserAccountMismatch        ErrorKind = "USER_ACCOUNT_MISMATCH"
	KindAccountAlreadyUnregistered ErrorKind = "ACCOUNT_ALREADY_UNREGISTERED"
	KindAmountExceedsBalance       ErrorKind = "AMOUNT_EXCEEDS_BALANCE"
	KindInvalidAmount              ErrorKind = "INVALID_AMOUNT"
	KindTransactionNotFound        ErrorKind = "TRANSACTION_NOT_FOUND"
	KindTransactionAccountMismatch ErrorKind = "TRANSACTION_ACCOUNT_MISMATCH"
	KindCancelMustBeFull           ErrorKind = "CANCEL_MUST_BE_FULL"
	KindCancelWindowExpired        ErrorKind = "CANCEL_WINDOW_EXPIRED"
	KindMaxAccountsPerUser         ErrorKind = "MAX_ACCOUNTS_PER_USER"
	KindBalanceNotEmpty            ErrorKind = "BALANCE_NOT_EMPTY"
)

// Infrastructure error kinds
const (
	KindLockTimeout   ErrorKind = "LOCK_TIMEOUT"
	KindInternalError ErrorKind = "INTERNAL_ERROR"
)

// IsBusiness reports whether the kind is an expected business failure
func (k ErrorKind) IsBusiness() bool {
	switch k {
	case KindLockTimeout, KindInternalError, "":
		return false
	}
	return true
}

// Error is a ledger error tagged with its kind. Err holds the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for Error.
// Two errors match when their kinds are equal; a target with an empty kind matches any Error.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return true
	}
	return e.Kind == t.Kind
}

// Common errors, one per kind
var (
	ErrUserNotFound               = Error{Kind: KindUserNotFound, Message: "user not found"}
	ErrAccountNotFound            = Error{Kind: KindAccountNotFound, Message: "account not found"}
	ErrUserAccountMismatch        = Error{Kind: KindUserAccountMismatch, Message: "account does not belong to user"}
	ErrAccountAlreadyUnregistered = Error{Kind: KindAccountAlreadyUnregistered, Message: "account is already unregistered"}
	ErrAmountExceedsBalance       = Error{Kind: KindAmountExceedsBalance, Message: "amount exceeds balance"}
	ErrInvalidAmount              = Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrTransactionNotFound        = Error{Kind: KindTransactionNotFound, Message: "transaction not found"}
	ErrTransactionNotCancellable  = Error{Kind: KindTransactionNotFound, Message: "no successful use transaction with this id"}
	ErrTransactionAccountMismatch = Error{Kind: KindTransactionAccountMismatch, Message: "transaction does not belong to account"}
	ErrCancelMustBeFull           = Error{Kind: KindCancelMustBeFull, Message: "partial cancellation is not allowed"}
	ErrCancelWindowExpired        = Error{Kind: KindCancelWindowExpired, Message: "transactions older than one year cannot be cancelled"}
	ErrMaxAccountsPerUser         = Error{Kind: KindMaxAccountsPerUser, Message: "user already owns the maximum number of accounts"}
	ErrBalanceNotEmpty            = Error{Kind: KindBalanceNotEmpty, Message: "account balance is not empty"}
	ErrLockTimeout                = Error{Kind: KindLockTimeout, Message: "account is busy, try again later"}
)

// NewInternalError tags an infrastructure failure
func NewInternalError(err error) Error {
	return Error{Kind: KindInternalError, Message: "an internal server error occurred", Err: err}
}

// KindOf returns the kind carried by err, or KindInternalError for untagged errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}

// IsBusinessError reports whether err is tagged with a business kind
func IsBusinessError(err error) bool {
	return KindOf(err).IsBusiness()
}
