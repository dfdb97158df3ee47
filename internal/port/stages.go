package port

import (
	"context"
	"encoding/json"

	"github.com/bnema/videofactory/internal/domain"
)

// Editor removes dead air from a video.
type Editor interface {
	Edit(ctx context.Context, inputPath, outputPath string) error
}

type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

type Prober interface {
	Probe(ctx context.Context, path string) (*domain.MediaInfo, error)
}

// Transcriber writes the subtitle artifact to srtPath and returns the
// segments it contains.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, srtPath string) ([]domain.Segment, error)
}

// ContentAnalyzer returns raw highlight JSON. The caller validates it and
// falls back to rule-based detection when it does not conform.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, segments []domain.Segment) (json.RawMessage, error)
}

type PlanRequest struct {
	MediaPath  string
	Media      *domain.MediaInfo
	Segments   []domain.Segment
	Highlights []domain.Highlight
}

type CompositionPlanner interface {
	Plan(ctx context.Context, req PlanRequest) (*domain.Plan, error)
}

type Renderer interface {
	Render(ctx context.Context, planPath, mediaPath, outputPath string) error
}
