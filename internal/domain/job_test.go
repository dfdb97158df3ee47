package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pinClock(t *testing.T, at time.Time) *time.Time {
	t.Helper()
	current := at
	prev := now
	now = func() time.Time { return current }
	t.Cleanup(func() { now = prev })
	return &current
}

func TestNewJob(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pinClock(t, at)

	job := NewJob("user-1", "clip.mp4")

	assert.Len(t, job.ID, 36, "ID should be a UUID")
	assert.Equal(t, "user-1", job.Owner)
	assert.Equal(t, "clip.mp4", job.OriginalName)
	assert.Equal(t, StatusUploaded, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, at, job.CreatedAt)
	assert.Nil(t, job.CompletedAt)
	assert.True(t, job.Input.IsZero())
	assert.True(t, job.Output.IsZero())
	assert.NotEqual(t, job.ID, NewJob("user-1", "clip.mp4").ID)
}

func TestJob_Advance_Progress(t *testing.T) {
	tests := []struct {
		name  string
		steps []int
		want  []int
	}{
		{name: "clamps above 100", steps: []int{150}, want: []int{100}},
		{name: "clamps below 0", steps: []int{-20}, want: []int{0}},
		{name: "never decreases", steps: []int{10, 50, 20, 60}, want: []int{10, 50, 50, 60}},
		{name: "negative after progress is ignored", steps: []int{40, -5}, want: []int{40, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("u", "a.mp4")
			for i, p := range tt.steps {
				require.NoError(t, job.Advance(StatusEditing, WithProgress(p)))
				assert.Equal(t, tt.want[i], job.Progress, "step %d", i)
				assert.GreaterOrEqual(t, job.Progress, 0)
				assert.LessOrEqual(t, job.Progress, 100)
			}
		})
	}
}

func TestJob_Advance_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{name: "forward one step", from: StatusUploaded, to: StatusValidating},
		{name: "forward skipping stages", from: StatusStoring, to: StatusRendering},
		{name: "same status", from: StatusTranscribing, to: StatusTranscribing},
		{name: "fail from non-terminal", from: StatusAnalyzing, to: StatusFailed},
		{name: "fail from uploaded", from: StatusUploaded, to: StatusFailed},
		{name: "backward", from: StatusRendering, to: StatusEditing, wantErr: true},
		{name: "out of completed", from: StatusCompleted, to: StatusFailed, wantErr: true},
		{name: "out of failed", from: StatusFailed, to: StatusEditing, wantErr: true},
		{name: "unknown status", from: StatusUploaded, to: Status("bogus"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Status: tt.from, Progress: 30}
			err := job.Advance(tt.to, WithProgress(40))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.Equal(t, tt.from, job.Status, "status must be untouched")
				assert.Equal(t, 30, job.Progress, "progress must be untouched")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, job.Status)
		})
	}
}

func TestJob_Advance_Completed(t *testing.T) {
	clock := pinClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	first := *clock

	job := NewJob("u", "a.mp4")
	require.NoError(t, job.Advance(StatusRendering, WithProgress(80)))
	assert.Nil(t, job.CompletedAt)

	require.NoError(t, job.Advance(StatusCompleted))
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, first, *job.CompletedAt)

	*clock = clock.Add(time.Hour)
	require.NoError(t, job.Advance(StatusCompleted, WithProgress(10)))
	assert.Equal(t, first, *job.CompletedAt, "re-applying must not move completed_at")
	assert.Equal(t, 100, job.Progress)
}

func TestJob_Advance_Failed(t *testing.T) {
	clock := pinClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	first := *clock

	job := NewJob("u", "a.mp4")
	require.NoError(t, job.Advance(StatusTranscribing, WithProgress(50)))
	require.NoError(t, job.Advance(StatusFailed, WithError("whisper exited 1")))

	assert.Equal(t, 50, job.Progress, "progress is not forced on failure")
	assert.Equal(t, "whisper exited 1", job.Error)
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, first, *job.CompletedAt)

	*clock = clock.Add(time.Minute)
	require.NoError(t, job.Advance(StatusFailed))
	assert.Equal(t, first, *job.CompletedAt)
}

func TestJob_CompletedAtOnlyWhenTerminal(t *testing.T) {
	job := NewJob("u", "a.mp4")
	chain := []Status{
		StatusValidating, StatusStoring, StatusEditing, StatusTranscribing,
		StatusAnalyzing, StatusRendering, StatusCompleted,
	}
	for _, s := range chain {
		require.NoError(t, job.Advance(s))
		assert.Equal(t, s.IsTerminal(), job.CompletedAt != nil, "status %s", s)
	}
}

func TestJob_Reopen(t *testing.T) {
	tests := []struct {
		name       string
		input      Location
		wantStatus Status
	}{
		{name: "stored input resumes at storing", input: RemoteLocation("uploads/u/a.mp4"), wantStatus: StatusStoring},
		{name: "no input restarts at uploaded", wantStatus: StatusUploaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("u", "a.mp4")
			job.SetInput(tt.input)
			require.NoError(t, job.Advance(StatusRendering, WithProgress(80)))
			require.NoError(t, job.Advance(StatusFailed, WithError("boom")))

			require.NoError(t, job.Reopen())
			assert.Equal(t, tt.wantStatus, job.Status)
			assert.Nil(t, job.CompletedAt)
			assert.Empty(t, job.Error)
			assert.Equal(t, 80, job.Progress)
		})
	}

	t.Run("not failed", func(t *testing.T) {
		job := NewJob("u", "a.mp4")
		err := job.Reopen()
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}

func TestJob_JSONRoundTripKeepsLocations(t *testing.T) {
	job := NewJob("u", "a.mp4")
	job.SetInput(RemoteLocation("uploads/u/a.mp4"))
	job.SetOutput(LocalLocation("/out/a.mp4"))

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var got Job
	require.NoError(t, json.Unmarshal(data, &got))
	key, ok := got.Input.RemoteKey()
	assert.True(t, ok)
	assert.Equal(t, "uploads/u/a.mp4", key)
	_, ok = got.Input.LocalPath()
	assert.False(t, ok)
	path, ok := got.Output.LocalPath()
	assert.True(t, ok)
	assert.Equal(t, "/out/a.mp4", path)
}

func TestJob_Clone(t *testing.T) {
	job := NewJob("u", "a.mp4")
	job.InputMetadata = &MediaInfo{Duration: 12}
	require.NoError(t, job.Advance(StatusCompleted))

	c := job.Clone()
	c.InputMetadata.Duration = 99
	*c.CompletedAt = c.CompletedAt.Add(time.Hour)
	c.Progress = 3

	assert.Equal(t, 12.0, job.InputMetadata.Duration)
	assert.NotEqual(t, *job.CompletedAt, *c.CompletedAt)
	assert.Equal(t, 100, job.Progress)
	assert.Nil(t, (*Job)(nil).Clone())
}
