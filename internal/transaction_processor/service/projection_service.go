package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/shared"
)

// ProjectionServiceImpl stores one history entry per transaction event
type ProjectionServiceImpl struct {
	historyRepo history.Repository
	logger      *slog.Logger
}

func NewProjectionService(historyRepo history.Repository, logger *slog.Logger) ProjectionService {
	return &ProjectionServiceImpl{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// Project is idempotent: an event that was already projected is acknowledged without a second write.
// Redelivery happens when the outbox republishes after a lost acknowledgement.
func (s *ProjectionServiceImpl) Project(ctx context.Context, event *shared.TransactionEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	entry := history.NewEntry(event)
	if err := s.historyRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, history.ErrDuplicateEntry{}) {
			logger.Info("Transaction already projected, skipping", "transaction_id", event.TransactionID)
			return nil
		}
		logger.Error("Failed to project transaction",
			"transaction_id", event.TransactionID,
			"account_number", event.AccountNumber,
			"error", err,
		)
		return fmt.Errorf("failed to project transaction %s: %w", event.TransactionID, err)
	}

	logger.Info("Transaction projected",
		"transaction_id", event.TransactionID,
		"account_number", event.AccountNumber,
		"type", string(event.Type),
		"result", string(event.Result),
	)
	return nil
}
