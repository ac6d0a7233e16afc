package service

import (
	"context"

	"github.com/balance-ledger/internal/domain/shared"
)

// ProjectionService writes published transaction events into the history read model
type ProjectionService interface {
	Project(ctx context.Context, event *shared.TransactionEvent) error
}
