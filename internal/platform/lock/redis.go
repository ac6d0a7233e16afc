package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/balance-ledger/internal/domain/shared"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// RedisManager implements Manager with the RedLock algorithm, so a lock is held
// across every replica that shares the Redis deployment
type RedisManager struct {
	redsync *redsync.Redsync
	opts    Options
	logger  *slog.Logger
}

type redisHandle struct {
	key   string
	mutex *redsync.Mutex
}

func (h *redisHandle) Key() string {
	return h.key
}

// NewRedisManager creates a lock manager backed by the given Redis client
func NewRedisManager(logger *slog.Logger, client goredislib.UniversalClient, opts Options) *RedisManager {
	return &RedisManager{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
		logger:  logger,
	}
}

// Acquire blocks until the lock is held, the attempts are exhausted or ctx is done
func (m *RedisManager) Acquire(ctx context.Context, key string) (Handle, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptyKey
	}

	mutex := m.redsync.NewMutex(
		key,
		redsync.WithExpiry(m.opts.Expiry),
		redsync.WithTries(m.opts.Tries),
		redsync.WithRetryDelay(m.opts.RetryDelay),
		redsync.WithDriftFactor(m.opts.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctxErr)
		}
		if isContention(err) {
			m.logger.Warn("Lock busy, giving up", "lock_key", key, "tries", m.opts.Tries)
			return nil, shared.Error{Kind: shared.KindLockTimeout, Message: shared.ErrLockTimeout.Message, Err: err}
		}
		m.logger.Error("Failed to acquire lock", "lock_key", key, "error", err)
		return nil, shared.NewInternalError(fmt.Errorf("acquire lock %s: %w", key, err))
	}

	m.logger.Debug("Lock acquired", "lock_key", key)
	return &redisHandle{key: key, mutex: mutex}, nil
}

// Release unlocks the handle. Failures are logged and returned; the lock then expires on its own.
func (m *RedisManager) Release(ctx context.Context, handle Handle) error {
	h, ok := handle.(*redisHandle)
	if !ok || h == nil {
		return ErrNotHeld
	}

	released, err := h.mutex.UnlockContext(ctx)
	if err != nil {
		m.logger.Error("Failed to release lock", "lock_key", h.key, "error", err)
		return fmt.Errorf("release lock %s: %w", h.key, err)
	}
	if !released {
		m.logger.Warn("Lock was not held or already expired", "lock_key", h.key)
		return ErrNotHeld
	}

	m.logger.Debug("Lock released", "lock_key", h.key)
	return nil
}

// isContention reports whether redsync gave up because another holder owns the lock.
// redsync surfaces contention either as ErrFailed or as ErrTaken from the final attempt.
func isContention(err error) bool {
	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "lock already taken") || strings.Contains(msg, "failed to acquire lock")
}
