package metrics

import (
	"sync"
	"time"

	"album-viewer/internal/logging"
)

// StatsProvider reports library-wide totals for the periodic gauges.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	FolderAlbums int
	ZipAlbums    int
	ThumbCount   int64
	ThumbBytes   int64
	OpenConns    int
}

// Collector refreshes the album and cache gauges on a fixed interval.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a collector. It does nothing until Start.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start collects once immediately and then on every tick.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends the loop and waits for an in-progress collection. It is safe
// to call more than once, but only after Start.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	AlbumsTotal.WithLabelValues("folder").Set(float64(stats.FolderAlbums))
	AlbumsTotal.WithLabelValues("zip").Set(float64(stats.ZipAlbums))
	ThumbnailCacheCount.Set(float64(stats.ThumbCount))
	ThumbnailCacheBytes.Set(float64(stats.ThumbBytes))
	DBConnectionsOpen.Set(float64(stats.OpenConns))

	logging.Debug("Metrics collected: folders=%d, zips=%d, thumbs=%d, thumb_bytes=%d",
		stats.FolderAlbums, stats.ZipAlbums, stats.ThumbCount, stats.ThumbBytes)
}
