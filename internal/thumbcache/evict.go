package thumbcache

import (
	"context"
	"fmt"

	"album-viewer/internal/database"
	"album-viewer/internal/filesystem"
	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
)

const evictBatch = 256

// EvictionResult summarizes one EnforceBudget pass.
type EvictionResult struct {
	TotalBefore int64 `json:"total_before"`
	Removed     int   `json:"removed"`
	FreedBytes  int64 `json:"freed_bytes"`
}

// EnforceBudget deletes least recently used thumbnails until the bytes freed
// cover the amount by which the cache exceeds maxBytes. Artifact deletion is
// best effort; the row is removed regardless. Concurrent calls run one at a
// time.
func (c *Cache) EnforceBudget(ctx context.Context, maxBytes int64) (EvictionResult, error) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	stats, err := c.repo.ThumbStats(ctx)
	if err != nil {
		return EvictionResult{}, fmt.Errorf("sum thumbnail bytes: %w", err)
	}
	res := EvictionResult{TotalBefore: stats.Bytes}
	defer c.refreshGauges(ctx)

	if stats.Bytes <= maxBytes {
		return res, nil
	}
	metrics.EvictionRunsTotal.Inc()
	overage := stats.Bytes - max(maxBytes, 0)

	for res.FreedBytes < overage {
		batch, err := c.repo.LeastRecentlyUsedThumbs(ctx, evictBatch)
		if err != nil {
			return res, fmt.Errorf("load eviction candidates: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, t := range batch {
			if err := c.evict(ctx, t); err != nil {
				return res, err
			}
			res.Removed++
			res.FreedBytes += t.Bytes
			if res.FreedBytes >= overage {
				break
			}
		}
	}

	logging.Info("Cache eviction removed %d thumbnails (%d bytes) of %d bytes cached", res.Removed, res.FreedBytes, res.TotalBefore)
	return res, nil
}

func (c *Cache) evict(ctx context.Context, t database.ThumbEntry) error {
	filesystem.RemoveBestEffort("eviction", t.FilePath)
	if err := c.repo.DeleteThumb(ctx, t.AlbumID, t.Key); err != nil {
		return fmt.Errorf("delete thumbnail row %s: %w", t.Key, err)
	}
	metrics.EvictedThumbsTotal.Inc()
	metrics.EvictedBytesTotal.Add(float64(t.Bytes))
	return nil
}

// Stats reports the number and total size of cached thumbnails.
func (c *Cache) Stats(ctx context.Context) (database.ThumbStats, error) {
	return c.repo.ThumbStats(ctx)
}

func (c *Cache) refreshGauges(ctx context.Context) {
	stats, err := c.repo.ThumbStats(ctx)
	if err != nil {
		return
	}
	metrics.ThumbnailCacheBytes.Set(float64(stats.Bytes))
	metrics.ThumbnailCacheCount.Set(float64(stats.Count))
}
