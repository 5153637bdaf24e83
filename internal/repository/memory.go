package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimitRepository is the in-process fallback counter used when
// Redis is absent or unreachable. Counts are per-instance, which is
// acceptable for a single-restaurant deployment.
type MemoryRateLimitRepository struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryRateLimitRepository() *MemoryRateLimitRepository {
	return &MemoryRateLimitRepository{
		entries: make(map[string]*rateLimitEntry),
	}
}

func (r *MemoryRateLimitRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
		r.entries[key] = entry
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
