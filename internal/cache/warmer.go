package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"taskboard/internal/logging"
)

// WarmupJob recomputes one key. Run owns the store so it can decide whether
// its result is still current before writing it.
type WarmupJob struct {
	Key      string
	Priority int
	Run      func(ctx context.Context) error
}

func (j WarmupJob) execute(ctx context.Context) error {
	if j.Run == nil {
		return fmt.Errorf("warmup job %q has no Run func", j.Key)
	}
	return j.Run(ctx)
}

type WarmupStrategy struct {
	BatchSize      int
	ConcurrentJobs int
	// WarmupInterval of zero disables the periodic loop started by Start.
	WarmupInterval time.Duration
}

func DefaultWarmupStrategy() *WarmupStrategy {
	return &WarmupStrategy{
		BatchSize:      10,
		ConcurrentJobs: 2,
	}
}

// CacheWarmer holds the registered warmup jobs, runs them on demand or on an
// interval, and owns the worker pool used for one-off refreshes.
type CacheWarmer struct {
	strategy *WarmupStrategy
	pool     *WorkerPool

	mu      sync.Mutex
	jobs    []WarmupJob
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	runs    int64
	failed  int64
	lastRun time.Time
}

func NewCacheWarmer(strategy *WarmupStrategy) *CacheWarmer {
	if strategy == nil {
		strategy = DefaultWarmupStrategy()
	}
	if strategy.BatchSize <= 0 {
		strategy.BatchSize = 1
	}
	if strategy.ConcurrentJobs <= 0 {
		strategy.ConcurrentJobs = 1
	}

	pool := NewWorkerPool(strategy.ConcurrentJobs)
	pool.Start()

	return &CacheWarmer{
		strategy: strategy,
		pool:     pool,
	}
}

// AddWarmupJob registers job for every warm run, replacing any job with the
// same key.
func (w *CacheWarmer) AddWarmupJob(job WarmupJob) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.jobs {
		if w.jobs[i].Key == job.Key {
			w.jobs[i] = job
			return
		}
	}
	w.jobs = append(w.jobs, job)
}

// Submit queues a one-off refresh on the worker pool.
func (w *CacheWarmer) Submit(job WarmupJob) bool {
	return w.pool.SubmitJob(job)
}

// WarmCacheManually runs every registered job, highest priority first, in
// batches of BatchSize with at most ConcurrentJobs in flight. Individual job
// failures are logged and do not stop the run.
func (w *CacheWarmer) WarmCacheManually(ctx context.Context) error {
	w.mu.Lock()
	jobs := make([]WarmupJob, len(w.jobs))
	copy(jobs, w.jobs)
	w.mu.Unlock()

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Priority > jobs[j].Priority })

	var failed int64
	var failedMu sync.Mutex
	for start := 0; start < len(jobs); start += w.strategy.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + w.strategy.BatchSize
		if end > len(jobs) {
			end = len(jobs)
		}

		var g errgroup.Group
		g.SetLimit(w.strategy.ConcurrentJobs)
		for _, job := range jobs[start:end] {
			job := job
			g.Go(func() error {
				if err := job.execute(ctx); err != nil {
					logging.Logger.WithError(err).WithField("key", job.Key).Warn("cache warmup failed")
					failedMu.Lock()
					failed++
					failedMu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	w.mu.Lock()
	w.runs++
	w.failed += failed
	w.lastRun = time.Now()
	w.mu.Unlock()
	return nil
}

// Start warms once and then on every WarmupInterval until ctx is done or
// Stop is called.
func (w *CacheWarmer) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
		}()

		_ = w.WarmCacheManually(ctx)
		if w.strategy.WarmupInterval <= 0 {
			return
		}

		ticker := time.NewTicker(w.strategy.WarmupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = w.WarmCacheManually(ctx)
			}
		}
	}()
}

// Stop ends the periodic loop and the worker pool. Safe to call twice.
func (w *CacheWarmer) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	w.pool.Stop()
}

func (w *CacheWarmer) GetStats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	return map[string]interface{}{
		"running":         w.running,
		"total_jobs":      len(w.jobs),
		"batch_size":      w.strategy.BatchSize,
		"concurrent_jobs": w.strategy.ConcurrentJobs,
		"interval":        w.strategy.WarmupInterval.String(),
		"runs":            w.runs,
		"failed_jobs":     w.failed,
		"last_run":        w.lastRun,
		"pool":            w.pool.GetStats(),
	}
}
