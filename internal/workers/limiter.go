package workers

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"album-viewer/internal/metrics"
)

// Limiter bounds how many callers may hold a slot of a named pool at once.
// Decode/encode work and source I/O use separate limiters so bursts of
// thumbnail requests cannot oversubscribe CPUs while reads are in flight.
type Limiter struct {
	pool string
	size int64
	sem  *semaphore.Weighted
}

// NewLimiter creates a limiter with n slots. Values below one are raised to one.
func NewLimiter(pool string, n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		pool: pool,
		size: int64(n),
		sem:  semaphore.NewWeighted(int64(n)),
	}
}

// Size returns the number of slots.
func (l *Limiter) Size() int {
	return int(l.size)
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// function must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	metrics.WorkerSlotWait.WithLabelValues(l.pool).Observe(time.Since(start).Seconds())
	metrics.WorkerSlotsInUse.WithLabelValues(l.pool).Inc()

	return func() {
		metrics.WorkerSlotsInUse.WithLabelValues(l.pool).Dec()
		l.sem.Release(1)
	}, nil
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
