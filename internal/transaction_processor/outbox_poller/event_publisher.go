package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/balance-ledger/internal/domain/outbox"
	"github.com/balance-ledger/internal/domain/shared"
	"github.com/balance-ledger/internal/platform/messaging/producers"
)

// ErrUnpublishable marks an outbox message whose payload can never be published.
// The poller does not retry such messages.
var ErrUnpublishable = errors.New("outbox message cannot be published")

// EventPublisher publishes one outbox message
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher forwards outbox messages to the transaction event topic
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent writes the event keyed by account number, then marks the message processed.
// If marking fails the event may be published again; the projection ignores duplicates.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Outbox payload is not a transaction event",
			"outbox_id", message.ID,
			"transaction_id", message.TransactionID,
			"error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark outbox message as FAILED_TO_PUBLISH", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUnpublishable, message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.producer.Publish(ctx, event.AccountNumber, event); err != nil {
		return fmt.Errorf("publish outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Event published but outbox message not marked PROCESSED",
			"outbox_id", message.ID,
			"transaction_id", message.TransactionID,
			"error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Debug("Outbox message published",
		"outbox_id", message.ID,
		"transaction_id", message.TransactionID,
	)
	return nil
}
