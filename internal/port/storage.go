package port

import "github.com/bnema/videofactory/internal/domain"

// JobRepository persists job records. Get returns domain.ErrNotFound for an
// unknown id.
type JobRepository interface {
	Save(job *domain.Job) error
	Get(id string) (*domain.Job, error)
	// ListByOwner returns the owner's jobs, newest first.
	ListByOwner(owner string) ([]*domain.Job, error)
}
