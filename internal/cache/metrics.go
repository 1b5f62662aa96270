package cache

import "sync/atomic"

type CacheMetrics struct {
	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errors  atomic.Int64
}

type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Errors  int64 `json:"errors"`
}

func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{}
}

func (m *CacheMetrics) RecordHit()    { m.hits.Add(1) }
func (m *CacheMetrics) RecordMiss()   { m.misses.Add(1) }
func (m *CacheMetrics) RecordSet()    { m.sets.Add(1) }
func (m *CacheMetrics) RecordDelete() { m.deletes.Add(1) }
func (m *CacheMetrics) RecordError()  { m.errors.Add(1) }

func (m *CacheMetrics) GetStats() CacheStats {
	return CacheStats{
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		Sets:    m.sets.Load(),
		Deletes: m.deletes.Load(),
		Errors:  m.errors.Load(),
	}
}

// HitRate is a percentage of lookups, 0 when there were none.
func (m *CacheMetrics) HitRate() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
