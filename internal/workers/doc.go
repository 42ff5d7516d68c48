/*
Package workers sizes and enforces the concurrency limits used by thumbnail
generation.

# Sizing

In containers, runtime.NumCPU reports the host's CPUs while GOMAXPROCS
reflects the cgroup limit. Count and its helpers derive pool sizes from
GOMAXPROCS:

	decode := workers.Resolve(cfg.DecodeConcurrency, 1.0, 0) // CPU-bound
	io := workers.Resolve(cfg.IOConcurrency, 2.0, 0)         // I/O-bound

Resolve prefers an explicitly configured positive value.

# Limiting

Limiter wraps a weighted semaphore. Slots are acquired with a context so a
caller that gives up waiting does not hold a slot:

	release, err := decodeLimiter.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

Slot occupancy and wait time are exported per pool as
album_viewer_worker_slots_in_use and album_viewer_worker_slot_wait_seconds.
*/
package workers
