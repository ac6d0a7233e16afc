package components

import (
	"log/slog"

	"github.com/balance-ledger/internal/config"
	"github.com/balance-ledger/internal/domain/history"
	"github.com/balance-ledger/internal/domain/outbox"
	"github.com/balance-ledger/internal/platform/messaging/producers"
	"github.com/balance-ledger/internal/transaction_processor/outbox_poller"
	"github.com/balance-ledger/internal/transaction_processor/service"
)

// CreateProjectionService builds the history projection behind a bounded worker pool.
// Without a pool the base service is returned and projections run on the consumer goroutine.
func CreateProjectionService(
	historyRepo history.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProjectionService {
	baseService := service.NewProjectionService(historyRepo, logger.With("component", "projection"))

	if cfg.WorkerPool.Size <= 0 {
		logger.Warn("Worker pool disabled, projecting on the consumer goroutine", "pool_size", cfg.WorkerPool.Size)
		return baseService
	}

	workerPoolService, err := service.NewWorkerPoolProjectionService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool projection service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}

// CreateOutboxPoller wires the outbox poller to the Kafka event producer
func CreateOutboxPoller(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
	cfg *config.Config,
) *outbox_poller.Poller {
	publisher := outbox_poller.NewKafkaEventPublisher(outboxRepo, producer, logger.With("component", "event_publisher"))
	return outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, publisher, logger.With("component", "outbox_poller"))
}
