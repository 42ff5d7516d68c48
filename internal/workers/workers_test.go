package workers

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"cpu no limit", 1.0, 0, procs},
		{"io no limit", 2.0, 0, procs * 2},
		{"limit caps", 2.0, 1, 1},
		{"tiny multiplier floors at one", 0.0001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	if ForCPU(0) != Count(1.0, 0) {
		t.Error("ForCPU should match Count(1.0, 0)")
	}
	if ForIO(0) != Count(2.0, 0) {
		t.Error("ForIO should match Count(2.0, 0)")
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(5, 1.0, 2); got != 5 {
		t.Errorf("Resolve(5, ...) = %d, want 5", got)
	}
	if got := Resolve(0, 1.0, 1); got != 1 {
		t.Errorf("Resolve(0, 1.0, 1) = %d, want 1", got)
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter("decode", 2)
	if l.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", l.Size())
	}

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestLimiterAcquireCanceled(t *testing.T) {
	l := NewLimiter("io", 1)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want deadline exceeded", err)
	}
}

func TestLimiterMinimumSize(t *testing.T) {
	if got := NewLimiter("io", 0).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}
