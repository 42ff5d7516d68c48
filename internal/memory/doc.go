// Package memory keeps the process inside its container memory budget.
//
// [ConfigureLimit] sets the Go soft memory limit from GOMEMLIMIT, or from
// MEMORY_LIMIT (container bytes, typically injected through the Kubernetes
// Downward API) scaled by MEMORY_RATIO (default 0.85). Call it early in
// main.
//
// [Monitor] samples heap usage against that limit. Once usage reaches the
// critical mark, [Monitor.Wait] blocks new thumbnail decodes until usage
// falls below the high mark again:
//
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
//	cache := thumbcache.New(db, lister, thumbcache.Options{Memory: mon})
package memory
