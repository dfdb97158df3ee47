package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/videofactory/internal/domain"
)

type memoryEntry struct {
	job     *domain.Job
	expires time.Time
}

// MemoryCache is a process-local cache for single-instance setups.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, id string) (*domain.Job, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return nil, false, nil
	}
	return e.job.Clone(), true, nil
}

func (c *MemoryCache) Set(_ context.Context, job *domain.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[job.ID] = memoryEntry{job: job.Clone(), expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
	return nil
}
