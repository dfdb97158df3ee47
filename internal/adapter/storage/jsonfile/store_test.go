package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/videofactory/internal/domain"
)

func TestNewStore(t *testing.T) {
	t.Run("creates store successfully", func(t *testing.T) {
		store, err := NewStore(t.TempDir())

		assert.NoError(t, err)
		assert.NotNil(t, store)
		assert.NotNil(t, store.jobs)
	})

	t.Run("creates missing data dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")

		_, err := NewStore(dir)

		assert.NoError(t, err)
		assert.DirExists(t, dir)
	})

	t.Run("loads existing data from file", func(t *testing.T) {
		tempDir := t.TempDir()
		jobs := []*domain.Job{
			{ID: "job1", OriginalName: "video1.mp4", Input: domain.RemoteLocation("uploads/u/job1_video1.mp4")},
			{ID: "job2", OriginalName: "video2.mp4"},
		}
		data, _ := json.MarshalIndent(jobs, "", "  ")
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "jobs.json"), data, 0o600))

		store, err := NewStore(tempDir)

		require.NoError(t, err)
		assert.Len(t, store.jobs, 2)
		key, ok := store.jobs["job1"].Input.RemoteKey()
		assert.True(t, ok)
		assert.Equal(t, "uploads/u/job1_video1.mp4", key)
	})

	t.Run("returns error for invalid JSON", func(t *testing.T) {
		tempDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "jobs.json"), []byte("invalid json"), 0o600))

		store, err := NewStore(tempDir)

		assert.Error(t, err)
		assert.Nil(t, store)
	})

	t.Run("handles empty JSON file", func(t *testing.T) {
		tempDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, "jobs.json"), []byte(""), 0o600))

		store, err := NewStore(tempDir)

		assert.NoError(t, err)
		assert.Empty(t, store.jobs)
	})
}

func TestStoreSave(t *testing.T) {
	t.Run("updates existing job", func(t *testing.T) {
		store, _ := NewStore(t.TempDir())
		job := domain.NewJob("u", "test.mp4")
		require.NoError(t, store.Save(job))

		require.NoError(t, job.Advance(domain.StatusEditing, domain.WithProgress(20)))
		require.NoError(t, store.Save(job))

		got, err := store.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusEditing, got.Status)
		assert.Equal(t, 20, got.Progress)
	})

	t.Run("survives reopen", func(t *testing.T) {
		tempDir := t.TempDir()
		store, _ := NewStore(tempDir)
		job := domain.NewJob("u", "test.mp4")
		job.SetOutput(domain.LocalLocation("/out/x.mp4"))
		require.NoError(t, store.Save(job))

		reopened, err := NewStore(tempDir)
		require.NoError(t, err)
		got, err := reopened.Get(job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.Output, got.Output)
		assert.True(t, job.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("creates temp file then renames for atomic write", func(t *testing.T) {
		tempDir := t.TempDir()
		store, _ := NewStore(tempDir)

		require.NoError(t, store.Save(domain.NewJob("u", "test.mp4")))

		path := filepath.Join(tempDir, "jobs.json")
		assert.FileExists(t, path)
		_, err := os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("stored copy is isolated from the caller", func(t *testing.T) {
		store, _ := NewStore(t.TempDir())
		job := domain.NewJob("u", "test.mp4")
		require.NoError(t, store.Save(job))

		job.Progress = 77
		got, _ := store.Get(job.ID)
		assert.Equal(t, 0, got.Progress)

		got.Progress = 55
		again, _ := store.Get(job.ID)
		assert.Equal(t, 0, again.Progress)
	})
}

func TestStoreGet(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	got, err := store.Get("nonexistent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, got)
}

func TestStoreListByOwner(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, owner := range []string{"alice", "bob", "alice", "alice"} {
		job := domain.NewJob(owner, "v.mp4")
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(job))
	}

	list, err := store.ListByOwner("alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].CreatedAt.After(list[i].CreatedAt), "newest first")
	}

	none, err := store.ListByOwner("carol")
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestConcurrentAccess(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	job := domain.NewJob("u", "test.mp4")
	require.NoError(t, store.Save(job))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Save(domain.NewJob("u", "test.mp4"))
		}()
		go func() {
			defer wg.Done()
			_, err := store.Get(job.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := store.ListByOwner("u")
	require.NoError(t, err)
	assert.Len(t, list, 21)
}
