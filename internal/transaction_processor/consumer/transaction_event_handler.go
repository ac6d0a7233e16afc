package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/balance-ledger/internal/domain/shared"
	"github.com/balance-ledger/internal/platform/messaging/producers"
	"github.com/balance-ledger/internal/transaction_processor/service"
)

// TransactionEventHandler projects transaction events consumed from Kafka
type TransactionEventHandler struct {
	projectionService service.ProjectionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewTransactionEventHandler creates a new handler. producer may be nil when the DLQ is disabled.
func NewTransactionEventHandler(
	logger *slog.Logger,
	projectionService service.ProjectionService,
	producer producers.DeadLetterPublisher,
) *TransactionEventHandler {
	return &TransactionEventHandler{
		projectionService: projectionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage decodes and projects one event. Events that can never be projected
// go to the DLQ and are acknowledged; projection errors are returned so the consumer retries.
func (h *TransactionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.TransactionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.reject(ctx, key, value, fmt.Errorf("malformed transaction event: %w", err))
	}
	if err := validateEvent(&event); err != nil {
		return h.reject(ctx, key, value, err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}
	logger.Debug("Received transaction event",
		"transaction_id", event.TransactionID,
		"account_number", event.AccountNumber,
	)

	if err := h.projectionService.Project(ctx, &event); err != nil {
		return fmt.Errorf("projecting transaction %s failed: %w", event.TransactionID, err)
	}
	return nil
}

func (h *TransactionEventHandler) reject(ctx context.Context, key, value []byte, reason error) error {
	h.logger.Error("Rejecting transaction event", "message_key", string(key), "error", reason)

	if h.producer == nil {
		return reason
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason.Error()); err != nil {
		h.logger.Error("Failed to publish rejected event to DLQ",
			"message_key", string(key),
			"dlq_error", err,
		)
		return errors.Join(reason, err)
	}
	return nil
}

func validateEvent(event *shared.TransactionEvent) error {
	switch {
	case event.TransactionID == "":
		return errors.New("transaction event without transaction_id")
	case event.AccountNumber == "":
		return errors.New("transaction event without account_number")
	}

	switch event.Type {
	case shared.TransactionTypeUse, shared.TransactionTypeCancel:
	default:
		return fmt.Errorf("unknown transaction type %q", event.Type)
	}

	switch event.Result {
	case shared.TransactionResultSuccess, shared.TransactionResultFail:
	default:
		return fmt.Errorf("unknown transaction result %q", event.Result)
	}

	if event.Amount <= 0 {
		return fmt.Errorf("invalid amount %d", event.Amount)
	}
	return nil
}
