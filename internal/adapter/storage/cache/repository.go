// Package cache puts a read-through job cache in front of a JobRepository.
// The store stays authoritative: cache failures are logged and never fail
// a call.
package cache

import (
	"context"
	"time"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
)

const DefaultTTL = 30 * time.Second

type Cache interface {
	Get(ctx context.Context, id string) (*domain.Job, bool, error)
	Set(ctx context.Context, job *domain.Job) error
	Delete(ctx context.Context, id string) error
}

type Repository struct {
	store port.JobRepository
	cache Cache
}

func NewRepository(store port.JobRepository, cache Cache) *Repository {
	return &Repository{store: store, cache: cache}
}

func (r *Repository) Save(job *domain.Job) error {
	if err := r.store.Save(job); err != nil {
		return err
	}
	r.put(job)
	return nil
}

func (r *Repository) Get(id string) (*domain.Job, error) {
	ctx := context.Background()
	job, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		logger.Warn.Printf("job cache read %s: %v", id, err)
	}
	if ok {
		return job, nil
	}

	job, err = r.store.Get(id)
	if err != nil {
		return nil, err
	}
	r.put(job)
	return job, nil
}

// ListByOwner always reads the store.
func (r *Repository) ListByOwner(owner string) ([]*domain.Job, error) {
	return r.store.ListByOwner(owner)
}

// put refreshes the cached snapshot. When that fails the old snapshot is
// evicted so reads fall through to the store.
func (r *Repository) put(job *domain.Job) {
	ctx := context.Background()
	err := r.cache.Set(ctx, job)
	if err == nil {
		return
	}
	logger.Warn.Printf("job cache write %s: %v", job.ID, err)
	if derr := r.cache.Delete(ctx, job.ID); derr != nil {
		logger.Warn.Printf("job cache evict %s: %v", job.ID, derr)
	}
}

var _ port.JobRepository = (*Repository)(nil)
