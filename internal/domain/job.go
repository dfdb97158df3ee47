package domain

import (
	"time"

	"github.com/google/uuid"
)

// now is swapped in tests to pin timestamps.
var now = time.Now

type Job struct {
	ID             string     `json:"id"`
	Owner          string     `json:"owner"`
	OriginalName   string     `json:"original_name"`
	Status         Status     `json:"status"`
	Progress       int        `json:"progress"`
	Error          string     `json:"error,omitempty"`
	Input          Location   `json:"input"`
	Output         Location   `json:"output"`
	InputMetadata  *MediaInfo `json:"input_metadata,omitempty"`
	OutputMetadata *MediaInfo `json:"output_metadata,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func NewJob(owner, originalName string) *Job {
	return &Job{
		ID:           uuid.NewString(),
		Owner:        owner,
		OriginalName: originalName,
		Status:       StatusUploaded,
		CreatedAt:    now().UTC(),
	}
}

type advanceOptions struct {
	progress *int
	errMsg   string
}

type AdvanceOption func(*advanceOptions)

// WithProgress reports a progress value. It is clamped to [0,100] and never
// lowers the stored progress.
func WithProgress(p int) AdvanceOption {
	return func(o *advanceOptions) { o.progress = &p }
}

func WithError(msg string) AdvanceOption {
	return func(o *advanceOptions) { o.errMsg = msg }
}

// Advance moves the job to status. It rejects backward moves and any move out
// of a terminal state other than re-applying it.
func (j *Job) Advance(status Status, opts ...AdvanceOption) error {
	if !j.Status.CanAdvanceTo(status) {
		return Wrap(ErrInvalidTransition, "", string(j.Status)+" -> "+string(status), nil)
	}

	var o advanceOptions
	for _, opt := range opts {
		opt(&o)
	}

	j.Status = status
	if o.progress != nil {
		j.Progress = max(j.Progress, ClampProgress(*o.progress))
	}
	if o.errMsg != "" {
		j.Error = o.errMsg
	}

	switch status {
	case StatusCompleted:
		j.Progress = 100
		j.markCompleted()
	case StatusFailed:
		j.markCompleted()
	}
	return nil
}

func (j *Job) markCompleted() {
	if j.CompletedAt != nil {
		return
	}
	t := now().UTC()
	j.CompletedAt = &t
}

// Reopen takes a failed job back into the forward chain for a retry run.
// Progress is kept so the retry never reports less than the failed run did.
func (j *Job) Reopen() error {
	if j.Status != StatusFailed {
		return Wrap(ErrInvalidTransition, "", "reopen from "+string(j.Status), nil)
	}
	j.CompletedAt = nil
	j.Error = ""
	if j.Input.IsZero() {
		j.Status = StatusUploaded
	} else {
		j.Status = StatusStoring
	}
	return nil
}

func (j *Job) IsCompleted() bool {
	return j.Status == StatusCompleted
}

func (j *Job) SetInput(loc Location) {
	j.Input = loc
}

func (j *Job) SetOutput(loc Location) {
	j.Output = loc
}

func ClampProgress(p int) int {
	return min(max(p, 0), 100)
}

// Clone returns a deep copy so stores never share state with callers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.InputMetadata != nil {
		m := *j.InputMetadata
		c.InputMetadata = &m
	}
	if j.OutputMetadata != nil {
		m := *j.OutputMetadata
		c.OutputMetadata = &m
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
