package metrics

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	stats Stats
	calls atomic.Int32
}

func (m *mockStatsProvider) GetStats() Stats {
	m.calls.Add(1)
	return m.stats
}

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	tests := []struct {
		name  string
		count int
		min   int
	}{
		{"scan roots", testutil.CollectAndCount(ScanRootsTotal), 6},
		{"thumbnail requests", testutil.CollectAndCount(ThumbnailRequestsTotal), 3},
		{"generation phases", testutil.CollectAndCount(ThumbnailGenerationDuration), 5},
		{"worker pools", testutil.CollectAndCount(WorkerSlotsInUse), 2},
		{"events", testutil.CollectAndCount(EventsPublishedTotal), 5},
		{"file remove reasons", testutil.CollectAndCount(FileRemoveErrors), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.count < tt.min {
				t.Errorf("got %d series, want at least %d", tt.count, tt.min)
			}
		})
	}
}

func TestCollectorCollect(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		FolderAlbums: 4,
		ZipAlbums:    2,
		ThumbCount:   10,
		ThumbBytes:   2048,
		OpenConns:    1,
	}}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(AlbumsTotal.WithLabelValues("folder")); got != 4 {
		t.Errorf("folder albums = %v, want 4", got)
	}
	if got := testutil.ToFloat64(AlbumsTotal.WithLabelValues("zip")); got != 2 {
		t.Errorf("zip albums = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ThumbnailCacheBytes); got != 2048 {
		t.Errorf("cache bytes = %v, want 2048", got)
	}
	if got := testutil.ToFloat64(ThumbnailCacheCount); got != 10 {
		t.Errorf("cache count = %v, want 10", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{FolderAlbums: 1}}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	c.Stop()

	calls := provider.calls.Load()
	if calls < 1 {
		t.Errorf("GetStats called %d times, want at least the initial collection", calls)
	}
	time.Sleep(30 * time.Millisecond)
	if got := provider.calls.Load(); got != calls {
		t.Errorf("collection continued after Stop: %d calls, then %d", calls, got)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("test", "go1.25")
	if got := testutil.ToFloat64(AppInfo.WithLabelValues("test", "go1.25")); got != 1 {
		t.Errorf("app info = %v, want 1", got)
	}
}
