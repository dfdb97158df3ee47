// Package lock hands out per-job file leases so two processes never run the
// same job at once.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/bnema/videofactory/internal/domain"
)

type Lease struct {
	fl *flock.Flock
}

// Path returns the lock file guarding jobID.
func Path(dir, jobID string) string {
	return filepath.Join(dir, "job_"+jobID+".lock")
}

// Acquire takes the lease without blocking. A lease held elsewhere yields
// domain.ErrJobLocked.
func Acquire(dir, jobID string) (*Lease, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(Path(dir, jobID))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, domain.Wrap(domain.ErrJobLocked, "lock", jobID, nil)
	}
	return &Lease{fl: fl}, nil
}

// Release is safe to call more than once.
func (l *Lease) Release() error {
	if l == nil || !l.fl.Locked() {
		return nil
	}
	return l.fl.Unlock()
}
