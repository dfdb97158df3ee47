package domain

import "fmt"

type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusValidating   Status = "validating"
	StatusStoring      Status = "storing"
	StatusEditing      Status = "editing"
	StatusTranscribing Status = "transcribing"
	StatusAnalyzing    Status = "analyzing"
	StatusRendering    Status = "rendering"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// rank orders the forward chain. FAILED sits outside of it.
func (s Status) rank() int {
	switch s {
	case StatusUploaded:
		return 0
	case StatusValidating:
		return 1
	case StatusStoring:
		return 2
	case StatusEditing:
		return 3
	case StatusTranscribing:
		return 4
	case StatusAnalyzing:
		return 5
	case StatusRendering:
		return 6
	case StatusCompleted:
		return 7
	default:
		return -1
	}
}

func (s Status) Valid() bool {
	return s == StatusFailed || s.rank() >= 0
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvanceTo reports whether next is reachable from s. Staying in place is
// allowed so checkpoints within one stage can be re-applied.
func (s Status) CanAdvanceTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next.rank() > s.rank()
}

// Label returns the human readable description shown to users.
func (s Status) Label() string {
	switch s {
	case StatusUploaded:
		return "File uploaded, waiting for processing"
	case StatusValidating:
		return "Validating video file..."
	case StatusStoring:
		return "Storing video..."
	case StatusEditing:
		return "Auto-editing video..."
	case StatusTranscribing:
		return "Generating transcription..."
	case StatusAnalyzing:
		return "Analyzing content..."
	case StatusRendering:
		return "Rendering final video..."
	case StatusCompleted:
		return "Processing completed!"
	case StatusFailed:
		return "Processing failed"
	default:
		return "Unknown status"
	}
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown job status %q", raw)
	}
	return s, nil
}
