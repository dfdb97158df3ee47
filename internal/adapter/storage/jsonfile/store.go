// Package jsonfile keeps job records in a single JSON document. It suits
// single-process setups that do not want a database file.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/port"
)

type Store struct {
	mu   sync.RWMutex
	path string
	jobs map[string]*domain.Job
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	store := &Store{
		path: filepath.Join(dataDir, "jobs.json"),
		jobs: make(map[string]*domain.Job),
	}

	if err := store.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return store, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var list []*domain.Job
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	for _, j := range list {
		s.jobs[j.ID] = j
	}
	return nil
}

// save rewrites the whole document through a temp file so a crash never
// leaves a truncated file behind.
func (s *Store) save() error {
	tmpPath := s.path + ".tmp"

	list := make([]*domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		list = append(list, j)
	}
	sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.Before(list[b].CreatedAt) })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func (s *Store) Save(job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.jobs[job.ID]
	s.jobs[job.ID] = job.Clone()
	if err := s.save(); err != nil {
		if existed {
			s.jobs[job.ID] = prev
		} else {
			delete(s.jobs, job.ID)
		}
		return err
	}
	return nil
}

func (s *Store) Get(id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

// ListByOwner returns the owner's jobs, newest first.
func (s *Store) ListByOwner(owner string) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*domain.Job
	for _, j := range s.jobs {
		if j.Owner == owner {
			list = append(list, j.Clone())
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.After(list[b].CreatedAt) })
	return list, nil
}

var _ port.JobRepository = (*Store)(nil)
