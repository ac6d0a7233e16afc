package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/balance-ledger/internal/config"
)

// TransactionEventProducer publishes recorded transactions for the history projection.
// Writes are synchronous so the outbox only marks a message processed once Kafka acknowledged it.
type TransactionEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewTransactionEventProducer creates the event producer and makes sure the topic exists
func NewTransactionEventProducer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TransactionEventProducer, error) {
	if cfg.EventTopic == "" {
		return nil, fmt.Errorf("kafka event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for event producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, topicSpec{
		name:              cfg.EventTopic,
		partitions:        cfg.NumPartitions,
		replicationFactor: cfg.ReplicationFactor,
	}, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure event topic %s exists: %w", cfg.EventTopic, err)
	}

	// Hash keeps every event of one account on the same partition, in order
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return newTransactionEventProducer(logger, writer, cfg.EventTopic), nil
}

func newTransactionEventProducer(logger *slog.Logger, writer KafkaWriter, topic string) *TransactionEventProducer {
	return &TransactionEventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish marshals value to JSON and writes it under key
func (p *TransactionEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event for topic %s: %w", p.topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish transaction event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published transaction event", "topic", p.topic, "key", key)
	return nil
}

// Close flushes and closes the underlying writer
func (p *TransactionEventProducer) Close() error {
	p.logger.Info("Closing transaction event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
