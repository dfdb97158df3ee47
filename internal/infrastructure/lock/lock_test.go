package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/videofactory/internal/domain"
)

func TestAcquire(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "abc")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "job_abc.lock"))

	_, err = Acquire(dir, "abc")
	assert.ErrorIs(t, err, domain.ErrJobLocked)

	other, err := Acquire(dir, "def")
	require.NoError(t, err, "leases are per job")
	require.NoError(t, other.Release())

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	again, err := Acquire(dir, "abc")
	require.NoError(t, err)
	assert.NoError(t, again.Release())
}

func TestAcquire_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "temp")

	lease, err := Acquire(dir, "x")
	require.NoError(t, err)
	assert.NoError(t, lease.Release())
	assert.NoError(t, (*Lease)(nil).Release())
}
