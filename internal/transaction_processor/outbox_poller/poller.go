package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/balance-ledger/internal/config"
	"github.com/balance-ledger/internal/domain/outbox"
	"github.com/balance-ledger/internal/domain/shared"
)

// Poller publishes pending outbox messages in creation order
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Outbox batch failed", "error", err)
			}
		}
	}
}

// processPendingMessages publishes one batch and returns how many messages were published.
// Publishing stops at the first failure of an account so its events stay in order.
func (p *Poller) processPendingMessages(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	published := 0
	blocked := make(map[string]bool)
	for _, msg := range messages {
		if blocked[msg.AccountNumber] {
			continue
		}

		err := p.publisher.PublishEvent(ctx, msg)
		if err == nil {
			published++
			continue
		}

		if errors.Is(err, ErrUnpublishable) {
			continue
		}

		blocked[msg.AccountNumber] = true
		p.recordFailedAttempt(ctx, msg, err)
	}

	if published > 0 {
		p.logger.Info("Published outbox messages", "count", published)
	}
	return published, nil
}

func (p *Poller) recordFailedAttempt(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "transaction_id", msg.TransactionID)
	logger.Error("Failed to publish outbox message", "attempts", msg.Attempts, "error", cause)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to increment outbox attempts", "error", err)
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		logger.Warn("Max retry attempts reached, marking outbox message FAILED_TO_PUBLISH", "attempts", msg.Attempts+1)
		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
			logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "error", err)
		}
	}
}
