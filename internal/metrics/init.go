package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"done", "not_exists", "unsupported", "duplicate", "corrupt", "error"} {
		ScanRootsTotal.WithLabelValues(status)
	}

	for _, kind := range []string{"folder", "zip"} {
		ScanAlbumsUpserted.WithLabelValues(kind)
		EntryListingFailures.WithLabelValues(kind)
		AlbumsTotal.WithLabelValues(kind)
	}

	for _, result := range []string{"hit", "miss"} {
		ZipListingCacheTotal.WithLabelValues(result)
	}

	for _, result := range []string{"hit", "miss", "error"} {
		ThumbnailRequestsTotal.WithLabelValues(result)
	}

	for _, phase := range []string{"read", "decode", "resize", "encode", "write"} {
		ThumbnailGenerationDuration.WithLabelValues(phase)
	}

	for _, reason := range []string{"eviction", "album_delete", "cover_reset", "generate_rollback"} {
		FileRemoveErrors.WithLabelValues(reason)
	}

	for _, pool := range []string{"decode", "io"} {
		WorkerSlotsInUse.WithLabelValues(pool)
		WorkerSlotWait.WithLabelValues(pool)
	}

	for _, event := range []string{"scan:progress", "scan:done", "thumb:start", "thumb:hit", "thumb:done"} {
		EventsPublishedTotal.WithLabelValues(event)
		EventsDroppedTotal.WithLabelValues(event)
	}

	volumes := []string{"albums", "cache", "database", "unknown"}
	for _, op := range []string{"stat", "open", "readdir"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, job := range []string{"eviction", "refresh"} {
		MaintenanceJobsTotal.WithLabelValues(job, "success")
		MaintenanceJobsTotal.WithLabelValues(job, "error")
	}

	for _, op := range []string{"upsert_albums", "list_albums", "page_albums", "get_album", "get_album_by_path",
		"delete_albums", "set_cover", "set_crop", "get_thumb", "touch_thumb", "upsert_thumb",
		"sum_thumb_bytes", "lru_thumbs", "delete_thumb", "get_settings", "put_settings"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
