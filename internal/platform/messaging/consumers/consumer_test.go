package consumers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/balance-ledger/internal/config"
)

type MockKafkaReader struct {
	mock.Mock
}

func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaReader) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ KafkaReader = (*MockKafkaReader)(nil)

type MockDeadLetterSink struct {
	mock.Mock
}

func (m *MockDeadLetterSink) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

var _ DeadLetterSink = (*MockDeadLetterSink)(nil)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewKafkaConsumer(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers:       "localhost:9092",
		EventTopic:    "test-topic",
		ConsumerGroup: "test-group",
		MinBytes:      1024,
		MaxBytes:      10240,
		MaxWait:       time.Second,
	}

	consumer := NewKafkaConsumer(context.Background(), newTestLogger(), cfg, nil)
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader)
	assert.Equal(t, retryBackoff, consumer.backoff)
}

func TestKafkaConsumer_Consume(t *testing.T) {
	msg := kafka.Message{Topic: "events", Key: []byte("1000000000"), Value: []byte(`{}`), Offset: 7}

	t.Run("CommitsHandledMessage", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := new(MockKafkaReader)
		consumer := newKafkaConsumer(newTestLogger(), reader, nil, time.Millisecond)

		reader.On("FetchMessage", ctx).Return(msg, nil).Once()
		reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })
		reader.On("CommitMessages", ctx, []kafka.Message{msg}).Return(nil).Once()

		var handled int
		err := consumer.Consume(ctx, func(_ context.Context, key, value []byte) error {
			handled++
			assert.Equal(t, msg.Key, key)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, handled)
		reader.AssertExpectations(t)
	})

	t.Run("RetriesThenSucceeds", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := new(MockKafkaReader)
		consumer := newKafkaConsumer(newTestLogger(), reader, nil, time.Millisecond)

		reader.On("FetchMessage", ctx).Return(msg, nil).Once()
		reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })
		reader.On("CommitMessages", ctx, []kafka.Message{msg}).Return(nil).Once()

		calls := 0
		err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error {
			calls++
			if calls < 2 {
				return errors.New("mongo unavailable")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		reader.AssertExpectations(t)
	})

	t.Run("DeadLettersAfterRepeatedFailure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := new(MockKafkaReader)
		sink := new(MockDeadLetterSink)
		consumer := newKafkaConsumer(newTestLogger(), reader, sink, time.Millisecond)

		reader.On("FetchMessage", ctx).Return(msg, nil).Once()
		reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })
		reader.On("CommitMessages", ctx, []kafka.Message{msg}).Return(nil).Once()
		sink.On("PublishToDLQ", ctx, "1000000000", msg.Value, "mongo unavailable").Return(nil).Once()

		calls := 0
		err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error {
			calls++
			return errors.New("mongo unavailable")
		})

		require.NoError(t, err)
		assert.Equal(t, handlerAttempts, calls)
		sink.AssertExpectations(t)
		reader.AssertExpectations(t)
	})

	t.Run("StopsWithoutDeadLetterSink", func(t *testing.T) {
		ctx := context.Background()
		reader := new(MockKafkaReader)
		consumer := newKafkaConsumer(newTestLogger(), reader, nil, time.Millisecond)

		reader.On("FetchMessage", ctx).Return(msg, nil).Once()

		err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error {
			return errors.New("mongo unavailable")
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "offset 7")
		assert.Contains(t, err.Error(), "mongo unavailable")
		reader.AssertNotCalled(t, "CommitMessages", mock.Anything, mock.Anything)
		reader.AssertNumberOfCalls(t, "FetchMessage", 1)
	})

	t.Run("StopsWhenDeadLetterFails", func(t *testing.T) {
		ctx := context.Background()
		reader := new(MockKafkaReader)
		sink := new(MockDeadLetterSink)
		consumer := newKafkaConsumer(newTestLogger(), reader, sink, time.Millisecond)

		reader.On("FetchMessage", ctx).Return(msg, nil).Once()
		sink.On("PublishToDLQ", ctx, "1000000000", msg.Value, "mongo unavailable").Return(errors.New("broker down")).Once()

		err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error {
			return errors.New("mongo unavailable")
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
		reader.AssertNotCalled(t, "CommitMessages", mock.Anything, mock.Anything)
	})

	t.Run("RetriesFetchErrors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := new(MockKafkaReader)
		consumer := newKafkaConsumer(newTestLogger(), reader, nil, time.Millisecond)

		reader.On("FetchMessage", ctx).Return(kafka.Message{}, errors.New("rebalance in progress")).Once()
		reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })

		err := consumer.Consume(ctx, func(context.Context, []byte, []byte) error { return nil })

		require.NoError(t, err)
		reader.AssertNumberOfCalls(t, "FetchMessage", 2)
	})
}

func TestKafkaConsumer_Close(t *testing.T) {
	t.Run("ClosesReader", func(t *testing.T) {
		reader := new(MockKafkaReader)
		reader.On("Close").Return(nil).Once()

		require.NoError(t, newKafkaConsumer(newTestLogger(), reader, nil, time.Millisecond).Close())
		reader.AssertExpectations(t)
	})

	t.Run("CloseWithNilReader", func(t *testing.T) {
		consumer := &KafkaConsumer{logger: newTestLogger()}
		require.NoError(t, consumer.Close())
	})
}
