package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/balance-ledger/internal/domain/history"
)

const (
	// HistoryCollectionName is the name of the transaction history collection in MongoDB
	HistoryCollectionName = "transaction_history"
)

// HistoryRepository implements the history.Repository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique transaction id index that makes projection idempotent
// and the index backing the per-account history query.
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_number", Value: 1}, {Key: "transacted_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create history indexes", "error", err)
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

// Create stores a projected entry.
// Returns ErrDuplicateEntry if the transaction was already projected.
func (r *HistoryRepository) Create(ctx context.Context, entry *history.Entry) error {
	_, err := r.collection().InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return history.ErrDuplicateEntry{TransactionID: entry.TransactionID}
		}
		r.logger.Error("Failed to create history entry",
			"transaction_id", entry.TransactionID,
			"error", err)
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	return nil
}

// GetByAccountNumber retrieves paginated history entries for an account, newest first
func (r *HistoryRepository) GetByAccountNumber(ctx context.Context, accountNumber string, limit, offset int) ([]*history.Entry, error) {
	filter := bson.M{"account_number": accountNumber}
	opts := options.Find().
		SetSort(bson.D{{Key: "transacted_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get history entries",
			"account_number", accountNumber,
			"error", err)
		return nil, fmt.Errorf("failed to get history entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*history.Entry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode history entries",
			"account_number", accountNumber,
			"error", err)
		return nil, fmt.Errorf("failed to decode history entries: %w", err)
	}

	return entries, nil
}

// CountByAccountNumber counts the projected entries of an account
func (r *HistoryRepository) CountByAccountNumber(ctx context.Context, accountNumber string) (int64, error) {
	count, err := r.collection().CountDocuments(ctx, bson.M{"account_number": accountNumber})
	if err != nil {
		r.logger.Error("Failed to count history entries",
			"account_number", accountNumber,
			"error", err)
		return 0, fmt.Errorf("failed to count history entries: %w", err)
	}

	return count, nil
}

func (r *HistoryRepository) collection() *mongo.Collection {
	return r.db.Collection(HistoryCollectionName)
}
