package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is the in-process fallback rate limiter. Counters live only as
// long as the process, which is acceptable for a single-node deployment.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{entries: make(map[string]*rateLimitEntry)}
}

func (m *MemoryGuard) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		m.entries[key] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
