package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

// Config holds the monitor thresholds.
type Config struct {
	// LimitBytes is the reference limit. Zero uses the Go memory limit, and
	// the monitor stays idle when that is unset too.
	LimitBytes int64
	// HighWaterMark is the usage ratio below which a paused gate reopens.
	HighWaterMark float64
	// CriticalWaterMark is the usage ratio at which new decodes wait.
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and holds back new image decodes while usage
// is above the critical mark, until it drops below the high mark.
type Monitor struct {
	config Config
	limit  int64
	read   func() uint64

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// NewMonitor creates a Monitor. Call Start to begin sampling.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no limit configured, decode backpressure disabled")
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}
	return &Monitor{
		config: config,
		limit:  limit,
		read:   heapAlloc,
		resume: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

// Start begins sampling. It does nothing when no limit is known.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases every waiter.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) check() {
	alloc := m.read()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc
	if m.limit == 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), holding new decodes", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming decodes", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns ctx.Err() if the
// context ends first, and nil once decoding may proceed or the monitor is
// stopped.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	resume := m.resume
	m.mu.RUnlock()

	metrics.MemoryWaitsTotal.Inc()
	select {
	case <-resume:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsPaused reports whether new decodes are being held.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled heap usage as a ratio of the limit, or 0
// without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
