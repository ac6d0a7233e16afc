package history

import (
	"context"
)

// Repository manages the transaction history projection with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByAccountNumber(ctx context.Context, accountNumber string, limit, offset int) ([]*Entry, error)
	CountByAccountNumber(ctx context.Context, accountNumber string) (int64, error)
}

// ErrDuplicateEntry indicates the transaction was already projected
type ErrDuplicateEntry struct {
	TransactionID string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate history entry: " + e.TransactionID
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.TransactionID == "" {
		return true
	}
	return e.TransactionID == t.TransactionID
}
