package history

import (
	"time"

	"github.com/balance-ledger/internal/domain/shared"
)

// Entry is the read-model projection of a recorded transaction
type Entry struct {
	TransactionID   string                   `json:"transaction_id" bson:"transaction_id"`
	AccountNumber   string                   `json:"account_number" bson:"account_number"`
	Type            shared.TransactionType   `json:"type" bson:"type"`
	Result          shared.TransactionResult `json:"result" bson:"result"`
	Amount          int64                    `json:"amount" bson:"amount"` // Stored in minor units
	BalanceSnapshot int64                    `json:"balance_snapshot" bson:"balance_snapshot"`
	CorrelationID   string                   `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	TransactedAt    time.Time                `json:"transacted_at" bson:"transacted_at"`
	ProjectedAt     time.Time                `json:"projected_at" bson:"projected_at"`
}

// NewEntry builds a projection entry from a published transaction event
func NewEntry(event *shared.TransactionEvent) *Entry {
	return &Entry{
		TransactionID:   event.TransactionID,
		AccountNumber:   event.AccountNumber,
		Type:            event.Type,
		Result:          event.Result,
		Amount:          event.Amount,
		BalanceSnapshot: event.BalanceSnapshot,
		CorrelationID:   event.CorrelationID,
		TransactedAt:    event.TransactedAt,
		ProjectedAt:     time.Now(),
	}
}
