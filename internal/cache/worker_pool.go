package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/logging"
)

// WorkerPool runs one-off refreshes off the request path. A key that is
// already queued is not queued again, so a burst of writes costs one
// recomputation. Submission never blocks; a full queue drops the job.
type WorkerPool struct {
	workers int
	queue   chan WarmupJob
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	pending   map[string]struct{}
	running   bool
	processed int64
	failed    int64
	coalesced int64
	dropped   int64
	busy      time.Duration
}

func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers: workers,
		queue:   make(chan WarmupJob, workers*4),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
}

func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	logging.Logger.WithField("workers", p.workers).Debug("cache refresh pool started")
}

// Stop runs whatever is already queued, then waits for the workers. A stopped
// pool cannot be restarted.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	logging.Logger.Debug("cache refresh pool stopped")
}

// SubmitJob reports whether job is queued, either now or by an earlier
// submission for the same key that has not started yet.
func (p *WorkerPool) SubmitJob(job WarmupJob) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return false
	}
	if _, queued := p.pending[job.Key]; queued {
		p.coalesced++
		return true
	}

	select {
	case p.queue <- job:
		p.pending[job.Key] = struct{}{}
		return true
	default:
		p.dropped++
		logging.Logger.WithField("key", job.Key).Warn("cache refresh queue full, dropping job")
		return false
	}
}

func (p *WorkerPool) work(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.mu.Lock()
		delete(p.pending, job.Key)
		p.mu.Unlock()

		p.run(id, job)
	}
}

func (p *WorkerPool) run(worker int, job WarmupJob) {
	start := time.Now()
	err := job.execute(p.ctx)
	took := time.Since(start)

	p.mu.Lock()
	p.processed++
	p.busy += took
	if err != nil {
		p.failed++
	}
	p.mu.Unlock()

	entry := logging.Logger.WithFields(logrus.Fields{
		"worker":   worker,
		"key":      job.Key,
		"duration": took.String(),
	})
	if err != nil {
		entry.WithError(err).Warn("cache refresh failed")
		return
	}
	entry.Debug("cache key refreshed")
}

func (p *WorkerPool) GetStats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	avg := time.Duration(0)
	if p.processed > 0 {
		avg = p.busy / time.Duration(p.processed)
	}
	return map[string]interface{}{
		"workers":        p.workers,
		"running":        p.running,
		"jobs_processed": p.processed,
		"total_errors":   p.failed,
		"coalesced":      p.coalesced,
		"dropped":        p.dropped,
		"avg_duration":   avg.String(),
		"queue_length":   len(p.queue),
		"queue_capacity": cap(p.queue),
	}
}
