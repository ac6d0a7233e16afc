// Package lock serializes operations on a shared resource across goroutines and replicas.
//
// Every balance-mutating operation on an account runs under the account's lock:
//
//	use := lock.Guard(manager, func(r UseRequest) string { return lock.AccountKey(r.AccountNumber) }, svc.UseBalance)
//	res, err := use(ctx, req)
//
// Locks are not re-entrant and carry no fairness guarantee.
package lock

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrEmptyKey is returned when a lock is requested for an empty key
var ErrEmptyKey = errors.New("lock key cannot be empty")

// ErrNotHeld is returned when releasing a lock that expired or was never held
var ErrNotHeld = errors.New("lock was not held or already expired")

// Handle identifies an acquired lock
type Handle interface {
	Key() string
}

// Manager acquires and releases named locks.
// Acquire fails with an error tagged LOCK_TIMEOUT when the lock stays busy for every attempt.
type Manager interface {
	Acquire(ctx context.Context, key string) (Handle, error)
	Release(ctx context.Context, handle Handle) error
}

// Options tunes lock acquisition
type Options struct {
	Expiry      time.Duration
	Tries       int
	RetryDelay  time.Duration
	DriftFactor float64
}

// DefaultOptions gives up after roughly three seconds of contention
func DefaultOptions() Options {
	return Options{
		Expiry:      10 * time.Second,
		Tries:       30,
		RetryDelay:  100 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// AccountKey is the lock key guarding an account's balance and status
func AccountKey(accountNumber string) string {
	return "lock:account:" + accountNumber
}

// UserKey is the lock key guarding the set of accounts owned by a user
func UserKey(userID int64) string {
	return "lock:user:" + strconv.FormatInt(userID, 10)
}
