package shared

import "time"

// TransactionEvent is the Kafka message emitted for every recorded transaction,
// successful or failed.
type TransactionEvent struct {
	TransactionID   string            `json:"transaction_id"`
	AccountNumber   string            `json:"account_number"`
	Type            TransactionType   `json:"type"`
	Result          TransactionResult `json:"result"`
	Amount          int64             `json:"amount"` // Stored in minor units
	BalanceSnapshot int64             `json:"balance_snapshot"`
	CorrelationID   string            `json:"correlation_id,omitempty"`
	TransactedAt    time.Time         `json:"transacted_at"`
}
