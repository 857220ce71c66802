// Package throttle bounds the number of in-flight calls to the shared
// transaction service. The service rate-limits per API credential regardless
// of network, so the budget is process-wide rather than per-network.
package throttle

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the query budget used when none is configured.
const DefaultLimit = 4

// Throttle admits at most a fixed number of operations at a time. Waiters are
// admitted in FIFO order as running operations complete. Exhaustion is
// backpressure, not an error: callers block until admitted or their context
// is done.
type Throttle struct {
	sem   *semaphore.Weighted
	limit int64
}

func New(limit int) (*Throttle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("throttle limit must be positive, got %d", limit)
	}
	return &Throttle{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
	}, nil
}

// Do runs op once admission is granted. Errors from op propagate unchanged;
// the throttle never retries or swallows them.
func (t *Throttle) Do(ctx context.Context, op func() error) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for query budget: %w", err)
	}
	defer t.sem.Release(1)
	return op()
}

// Limit returns the configured ceiling.
func (t *Throttle) Limit() int {
	return int(t.limit)
}
