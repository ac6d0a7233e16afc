package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/balance-ledger/internal/config"
)

const (
	handlerAttempts = 3
	retryBackoff    = time.Second
)

// MessageHandler processes one message. A nil return commits the offset.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Consume(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader is the subset of *kafka.Reader the consumer uses
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterSink receives messages the handler kept failing on
type DeadLetterSink interface {
	PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error
}

// KafkaConsumer implements Consumer using a Kafka consumer group
type KafkaConsumer struct {
	reader      KafkaReader
	deadLetters DeadLetterSink
	logger      *slog.Logger
	backoff     time.Duration
}

// NewKafkaConsumer creates a group reader on the transaction event topic.
// deadLetters may be nil, in which case a message that keeps failing stops the consumer.
func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, deadLetters DeadLetterSink) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.EventTopic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})
	return newKafkaConsumer(logger, reader, deadLetters, retryBackoff)
}

func newKafkaConsumer(logger *slog.Logger, reader KafkaReader, deadLetters DeadLetterSink, backoff time.Duration) *KafkaConsumer {
	return &KafkaConsumer{
		reader:      reader,
		deadLetters: deadLetters,
		logger:      logger,
		backoff:     backoff,
	}
}

// Consume fetches messages until ctx is cancelled.
// A failing handler is retried a few times, then the message is dead-lettered and committed.
// Committing a later offset would skip the message for the whole group, so when it cannot be
// dead-lettered Consume returns the error instead of moving on.
func (c *KafkaConsumer) Consume(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Kafka consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Kafka consumer stopped")
				return nil
			}
			c.logger.Error("Failed to fetch message from Kafka", "error", err)
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}

		logger := c.logger.With(
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)
		logger.Debug("Received message from Kafka")

		if err := c.handle(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				logger.Info("Kafka consumer stopped before message was handled")
				return nil
			}
			if dlqErr := c.deadLetter(ctx, msg, err); dlqErr != nil {
				logger.Error("Stopping consumer, message can be neither handled nor dead-lettered", "error", dlqErr)
				return dlqErr
			}
			logger.Warn("Message moved to dead-letter topic", "error", err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Error("Failed to commit message", "error", err)
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, handler MessageHandler, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= handlerAttempts; attempt++ {
		if err = handler(ctx, msg.Key, msg.Value); err == nil {
			return nil
		}
		c.logger.Warn("Message handler failed",
			"key", string(msg.Key),
			"attempt", attempt,
			"error", err,
		)
		if attempt < handlerAttempts && !c.sleep(ctx) {
			return ctx.Err()
		}
	}
	return err
}

func (c *KafkaConsumer) deadLetter(ctx context.Context, msg kafka.Message, handleErr error) error {
	failed := fmt.Errorf("message at partition %d offset %d failed after %d attempts: %w",
		msg.Partition, msg.Offset, handlerAttempts, handleErr)
	if c.deadLetters == nil {
		return failed
	}
	if err := c.deadLetters.PublishToDLQ(ctx, string(msg.Key), msg.Value, handleErr.Error()); err != nil {
		return errors.Join(failed, fmt.Errorf("failed to publish to DLQ: %w", err))
	}
	return nil
}

// sleep waits for the backoff and reports false if ctx ended first
func (c *KafkaConsumer) sleep(ctx context.Context) bool {
	timer := time.NewTimer(c.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
