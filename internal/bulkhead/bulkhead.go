// Package bulkhead caps concurrent executions of CPU- and memory-heavy work.
//
// Argon2id hashing costs tens of megabytes per call, so an unbounded burst
// of logins could exhaust the process. A Bulkhead admits at most capacity
// calls at once and rejects the overflow instead of queueing it without
// bound.
package bulkhead

import (
	"context"
	"fmt"
	"time"

	"github.com/avagner/authcore/internal/errs"
)

// DefaultCapacity bounds concurrent executions when no capacity is given.
const DefaultCapacity = 8

// Bulkhead is a counting semaphore around Do. Safe for concurrent use.
type Bulkhead struct {
	sem     chan struct{}
	maxWait time.Duration
}

// New builds a Bulkhead admitting capacity concurrent calls. maxWait is how
// long Do waits for a slot before giving up; zero means fail immediately.
func New(capacity int, maxWait time.Duration) *Bulkhead {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bulkhead{sem: make(chan struct{}, capacity), maxWait: maxWait}
}

// Do runs fn once a slot is free, waiting at most the configured maxWait.
// A saturated bulkhead reports errs.ErrServiceBusy; a canceled ctx reports
// the ctx error.
func (b *Bulkhead) Do(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-b.sem }()
	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.maxWait <= 0 {
		return fmt.Errorf("bulkhead full: %w", errs.ErrServiceBusy)
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("bulkhead wait timed out: %w", errs.ErrServiceBusy)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse reports the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.sem) }

// Capacity reports the maximum number of concurrent calls.
func (b *Bulkhead) Capacity() int { return cap(b.sem) }
