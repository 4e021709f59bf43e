package lock

import (
	"context"
	"sync/atomic"
)

// Lock is a non-blocking single-flight guard around a pipeline run.
type Lock interface {
	// TryAcquire returns false without waiting when the lock is held.
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Local is an in-process Lock.
type Local struct {
	held atomic.Bool
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryAcquire(_ context.Context) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

func (l *Local) Release(_ context.Context) error {
	l.held.Store(false)
	return nil
}
