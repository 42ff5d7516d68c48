package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"album-viewer/internal/logging"
	"album-viewer/internal/metrics"
	"album-viewer/internal/scanner"
	"album-viewer/internal/thumbcache"
)

// Job names, also used as metric labels.
const (
	JobEviction = "eviction"
	JobRefresh  = "refresh"
)

// Tasks are the operations the scheduler runs.
type Tasks interface {
	Cleanup(ctx context.Context) (thumbcache.EvictionResult, error)
	Refresh(ctx context.Context) (scanner.RefreshResult, error)
}

// Options holds the cron specs. An empty spec disables the job.
type Options struct {
	EvictionSchedule string
	RefreshSchedule  string
	// Timeout bounds a single job run. Zero means no limit.
	Timeout time.Duration
}

// Scheduler runs cache eviction and album refresh on cron schedules.
// Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	tasks   Tasks
	timeout time.Duration

	mu   sync.Mutex
	jobs []string
}

// cronLogger forwards cron's own messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error("cron: %s: %v %v", msg, err, keysAndValues)
}

// New validates the schedules and registers the enabled jobs. Call Start to
// begin running them.
func New(tasks Tasks, opts Options) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		tasks:   tasks,
		timeout: opts.Timeout,
	}

	if err := s.add(JobEviction, opts.EvictionSchedule, s.runEviction); err != nil {
		return nil, err
	}
	if err := s.add(JobRefresh, opts.RefreshSchedule, s.runRefresh); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, fn func(context.Context) error) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.Run(name, fn) })
	if err != nil {
		return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, name)
	s.mu.Unlock()
	return nil
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.jobs...)
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logging.Warn("Maintenance jobs still running at shutdown")
	}
}

// Run executes one job immediately and records its outcome.
func (s *Scheduler) Run(name string, fn func(context.Context) error) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		metrics.MaintenanceJobsTotal.WithLabelValues(name, "error").Inc()
		logging.Error("Maintenance job %s failed after %v: %v", name, time.Since(start), err)
		return
	}
	metrics.MaintenanceJobsTotal.WithLabelValues(name, "success").Inc()
	logging.Debug("Maintenance job %s finished in %v", name, time.Since(start))
}

func (s *Scheduler) runEviction(ctx context.Context) error {
	_, err := s.tasks.Cleanup(ctx)
	return err
}

func (s *Scheduler) runRefresh(ctx context.Context) error {
	_, err := s.tasks.Refresh(ctx)
	return err
}
