package lock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/balance-ledger/internal/domain/shared"
)

// MemoryManager implements Manager for a single process.
// Each key maps to a one-slot semaphore; waiting honors Tries, RetryDelay and ctx.
type MemoryManager struct {
	mu     sync.Mutex
	slots  map[string]chan struct{}
	opts   Options
	logger *slog.Logger
}

type memoryHandle struct {
	key  string
	slot chan struct{}
	once sync.Once
}

func (h *memoryHandle) Key() string {
	return h.key
}

// NewMemoryManager creates an in-process lock manager
func NewMemoryManager(logger *slog.Logger, opts Options) *MemoryManager {
	return &MemoryManager{
		slots:  make(map[string]chan struct{}),
		opts:   opts,
		logger: logger,
	}
}

func (m *MemoryManager) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		m.slots[key] = s
	}
	return s
}

// Acquire makes up to Tries attempts RetryDelay apart
func (m *MemoryManager) Acquire(ctx context.Context, key string) (Handle, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptyKey
	}

	s := m.slot(key)
	tries := m.opts.Tries
	if tries < 1 {
		tries = 1
	}

	var timer *time.Timer
	for i := 0; i < tries; i++ {
		if i != 0 {
			if timer == nil {
				timer = time.NewTimer(m.opts.RetryDelay)
				defer timer.Stop()
			} else {
				timer.Reset(m.opts.RetryDelay)
			}

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
			case <-timer.C:
			}
		}

		select {
		case s <- struct{}{}:
			m.logger.Debug("Lock acquired", "lock_key", key)
			return &memoryHandle{key: key, slot: s}, nil
		default:
		}
	}

	m.logger.Warn("Lock busy, giving up", "lock_key", key, "tries", tries)
	return nil, shared.ErrLockTimeout
}

// Release frees the slot. Releasing the same handle twice returns ErrNotHeld.
func (m *MemoryManager) Release(_ context.Context, handle Handle) error {
	h, ok := handle.(*memoryHandle)
	if !ok || h == nil {
		return ErrNotHeld
	}

	released := false
	h.once.Do(func() {
		<-h.slot
		released = true
	})
	if !released {
		m.logger.Warn("Lock was not held or already expired", "lock_key", h.key)
		return ErrNotHeld
	}

	m.logger.Debug("Lock released", "lock_key", h.key)
	return nil
}
