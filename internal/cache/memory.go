package cache

import (
	"strings"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryCache is the in-process L1 tier. It holds encoded snapshots and
// drops them lazily on read or in a background sweep once expired.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	snapshot  []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(at time.Time) bool {
	return !at.Before(e.expiresAt)
}

func NewMemoryCache() *MemoryCache {
	m := &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweep(sweepInterval)
	return m
}

func (m *MemoryCache) Set(key string, snapshot []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{snapshot: snapshot, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

func (m *MemoryCache) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if entry.expired(m.now()) {
		m.Delete(key)
		return nil, false
	}
	return entry.snapshot, true
}

func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *MemoryCache) DeletePattern(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if matchPattern(key, pattern) {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryCache) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bytes := 0
	for _, e := range m.entries {
		bytes += len(e.snapshot)
	}
	return map[string]interface{}{
		"type":  "memory",
		"items": len(m.entries),
		"bytes": bytes,
	}
}

func (m *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryCache) evictExpired() {
	at := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if e.expired(at) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (m *MemoryCache) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// matchPattern supports an exact key, "*", or a trailing-* prefix, the
// subset of redis glob syntax the cache routes accept.
func matchPattern(key, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return key == pattern
}
