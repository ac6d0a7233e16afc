package transaction

import (
	"strings"
	"time"

	"github.com/balance-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Transaction is an immutable record of a single balance operation attempt
type Transaction struct {
	ID              int64                    `json:"id"`
	TransactionID   string                   `json:"transaction_id"`
	Type            shared.TransactionType   `json:"type"`
	Result          shared.TransactionResult `json:"result"`
	AccountID       int64                    `json:"account_id"`
	AccountNumber   string                   `json:"account_number"`
	Amount          int64                    `json:"amount"` // Stored in minor units
	BalanceSnapshot int64                    `json:"balance_snapshot"`
	TransactedAt    time.Time                `json:"transacted_at"`
}

// IDGenerator produces opaque transaction identifiers
type IDGenerator func() string

// NewID returns a random UUID rendered as 32 lowercase hex characters
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Succeeded reports whether the attempt changed the balance
func (t *Transaction) Succeeded() bool {
	return t.Result == shared.TransactionResultSuccess
}

// Cancellable reports whether the record is a debit that a cancel may reverse
func (t *Transaction) Cancellable() bool {
	return t.Type == shared.TransactionTypeUse && t.Succeeded()
}

// Event renders the transaction as the message published to downstream consumers
func (t *Transaction) Event(correlationID string) shared.TransactionEvent {
	return shared.TransactionEvent{
		TransactionID:   t.TransactionID,
		AccountNumber:   t.AccountNumber,
		Type:            t.Type,
		Result:          t.Result,
		Amount:          t.Amount,
		BalanceSnapshot: t.BalanceSnapshot,
		CorrelationID:   correlationID,
		TransactedAt:    t.TransactedAt,
	}
}
