package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/cache"
	"taskboard/internal/events"
	"taskboard/internal/models"
	"taskboard/internal/store"
)

const StatsCacheKey = "stats:summary"

type StatsService interface {
	GetStats(ctx context.Context) (*models.Stats, error)
}

// StatsCacheOptions enables caching of the summary. Cache nil disables it.
type StatsCacheOptions struct {
	Cache  cache.Cache
	Warmer *cache.CacheWarmer
	TTL    time.Duration
}

// StatsServiceImpl counts documents on demand. With a cache configured, any
// Created, Updated or Deleted event on the bus drops the cached summary
// before the write's response is sent, and a refresh is queued on the
// warmer. A generation counter keeps a computation that raced with a write
// from being stored.
type StatsServiceImpl struct {
	tasks      store.Collection[models.Task]
	categories store.Collection[models.Category]
	notes      store.Collection[models.Note]
	log        *logrus.Logger

	cache  cache.Cache
	warmer *cache.CacheWarmer
	ttl    time.Duration

	mu          sync.Mutex
	generation  uint64
	unsubscribe func()
}

func NewStatsService(cols *store.Collections, opts Options, cacheOpts *StatsCacheOptions) *StatsServiceImpl {
	opts = opts.withDefaults()
	s := &StatsServiceImpl{
		tasks:      cols.Tasks,
		categories: cols.Categories,
		notes:      cols.Notes,
		log:        opts.Logger,
	}

	if cacheOpts != nil && cacheOpts.Cache != nil {
		s.cache = cacheOpts.Cache
		s.warmer = cacheOpts.Warmer
		s.ttl = cacheOpts.TTL
		if s.ttl <= 0 {
			s.ttl = time.Minute
		}
		if opts.Bus != nil {
			s.unsubscribe = opts.Bus.Subscribe(events.ObserverFunc(s.onChange))
		}
		if s.warmer != nil {
			s.warmer.AddWarmupJob(s.warmupJob())
		}
	}
	return s
}

func (s *StatsServiceImpl) GetStats(ctx context.Context) (*models.Stats, error) {
	if s.cache != nil {
		var cached models.Stats
		err := s.cache.Get(StatsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("stats cache read failed")
		}
	}

	gen := s.currentGeneration()
	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.storeIfCurrent(gen, stats)
	return stats, nil
}

// Invalidate drops the cached summary and queues a refresh.
func (s *StatsServiceImpl) Invalidate() {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	s.generation++
	if err := s.cache.Delete(StatsCacheKey); err != nil {
		s.log.WithError(err).Warn("stats cache invalidation failed")
	}
	s.mu.Unlock()

	if s.warmer != nil {
		s.warmer.Submit(s.warmupJob())
	}
}

func (s *StatsServiceImpl) warmupJob() cache.WarmupJob {
	return cache.WarmupJob{
		Key:      StatsCacheKey,
		Priority: 10,
		Run:      s.refresh,
	}
}

// Close detaches the service from the event bus.
func (s *StatsServiceImpl) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *StatsServiceImpl) onChange(e events.Event) {
	switch e.(type) {
	case events.Created, events.Updated, events.Deleted:
		s.Invalidate()
	}
}

func (s *StatsServiceImpl) refresh(ctx context.Context) error {
	gen := s.currentGeneration()
	stats, err := s.compute(ctx)
	if err != nil {
		return err
	}
	s.storeIfCurrent(gen, stats)
	return nil
}

func (s *StatsServiceImpl) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *StatsServiceImpl) storeIfCurrent(gen uint64, stats *models.Stats) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if err := s.cache.Set(StatsCacheKey, *stats, s.ttl); err != nil {
		s.log.WithError(err).Warn("stats cache write failed")
	}
}

// compute runs the nine counts concurrently; the first failure cancels the
// rest and fails the whole summary.
func (s *StatsServiceImpl) compute(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	tasksWhere := func(filter store.Filter) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return s.tasks.Count(ctx, filter) }
	}

	count(&stats.Tasks.Total, tasksWhere(nil))
	count(&stats.Tasks.Pending, tasksWhere(store.Filter{store.Eq("status", models.StatusPending)}))
	count(&stats.Tasks.InProgress, tasksWhere(store.Filter{store.Eq("status", models.StatusInProgress)}))
	count(&stats.Tasks.Completed, tasksWhere(store.Filter{store.Eq("status", models.StatusCompleted)}))
	count(&stats.Priority.High, tasksWhere(store.Filter{store.Eq("priority", models.PriorityHigh)}))
	count(&stats.Priority.Medium, tasksWhere(store.Filter{store.Eq("priority", models.PriorityMedium)}))
	count(&stats.Priority.Low, tasksWhere(store.Filter{store.Eq("priority", models.PriorityLow)}))
	count(&stats.Categories, func(ctx context.Context) (int64, error) { return s.categories.Count(ctx, nil) })
	count(&stats.Notes, func(ctx context.Context) (int64, error) { return s.notes.Count(ctx, nil) })

	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("stats aggregation failed")
		return nil, err
	}
	return &stats, nil
}
