package composition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/port"
)

func namesOf(items []domain.TrackItem) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}

func TestPlan_ShortClipWithIntroAndOutro(t *testing.T) {
	plan, err := NewPlanner().Plan(context.Background(), port.PlanRequest{
		MediaPath: "/work/job_1/edited_clip.mp4",
		Media:     &domain.MediaInfo{Duration: 12.5},
		Highlights: []domain.Highlight{
			{Type: domain.HighlightIntro, Start: 0, End: 5},
			{Type: domain.HighlightOutro, Start: 8, End: 12.5},
		},
	})
	require.NoError(t, err)

	require.Len(t, plan.Tracks.Media, 1)
	media := plan.Tracks.Media[0]
	assert.Equal(t, 0.0, media.Start)
	assert.Equal(t, 12.5, media.Duration)
	assert.Equal(t, "/work/job_1/edited_clip.mp4", media.Props["src"])

	assert.Equal(t, []string{"GradientBackground", "MatrixRain", "LiquidWave"}, namesOf(plan.Tracks.Background))
	assert.Equal(t, []string{"ProgressBar", "SlideText", "SlideText"}, namesOf(plan.Tracks.Overlays))
	assert.Equal(t, domain.Project{Duration: 12.5, FPS: 30, Width: 1920, Height: 1080}, plan.Project)
}

func TestPlan_EmptyHighlightsStillHasDefaults(t *testing.T) {
	plan, err := NewPlanner().Plan(context.Background(), port.PlanRequest{
		MediaPath: "clip.mp4",
		Media:     &domain.MediaInfo{Duration: 12.5},
	})
	require.NoError(t, err)

	assert.Len(t, plan.Tracks.Media, 1)
	assert.Equal(t, []string{"GradientBackground"}, namesOf(plan.Tracks.Background))
	assert.Equal(t, []string{"ProgressBar"}, namesOf(plan.Tracks.Overlays))
}

func TestPlan_NoHighlightsNoSegments(t *testing.T) {
	plan, err := NewPlanner().Plan(context.Background(), port.PlanRequest{
		MediaPath: "clip.mp4",
		Media:     &domain.MediaInfo{Duration: 3},
	})
	require.NoError(t, err)
	require.NoError(t, Validate(plan))
	assert.NotEmpty(t, plan.Tracks.Media)
	assert.NotEmpty(t, plan.Tracks.Background)
}

func TestPlan_UnknownDurationIsValidationFailure(t *testing.T) {
	_, err := NewPlanner().Plan(context.Background(), port.PlanRequest{MediaPath: "clip.mp4"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestPlan_DurationFromTranscript(t *testing.T) {
	plan, err := NewPlanner().Plan(context.Background(), port.PlanRequest{
		MediaPath: "clip.mp4",
		Segments: []domain.Segment{
			{Start: 0, End: 2, Text: "hi"},
			{Start: 2, End: 7.5, Text: "there"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 7.5, plan.Project.Duration)
	assert.Equal(t, []string{"ProgressBar", "Caption", "Caption"}, namesOf(plan.Tracks.Overlays))
}

func TestPlan_DropsAndClampsItems(t *testing.T) {
	plan, err := NewPlanner(WithCaptions(false)).Plan(context.Background(), port.PlanRequest{
		MediaPath: "clip.mp4",
		Media:     &domain.MediaInfo{Duration: 10, FPS: 29.97, Width: 1280, Height: 720},
		Segments:  []domain.Segment{{Start: 1, End: 2, Text: "ignored"}},
		Highlights: []domain.Highlight{
			{Type: domain.HighlightKeyPoint, Start: 4, End: 4, Text: "zero length"},
			{Type: domain.HighlightZoom, Start: 8, End: 14, Metadata: map[string]any{"zoom_level": 1.3}},
			{Type: domain.HighlightImpactText, Start: 11, End: 12, Text: "past the end"},
			{Type: domain.HighlightTransition, Start: 5, End: 9},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Project{Duration: 10, FPS: 30, Width: 1280, Height: 720}, plan.Project)
	require.Equal(t, []string{"ProgressBar", "Zoom", "Wipe"}, namesOf(plan.Tracks.Overlays))

	zoom := plan.Tracks.Overlays[1]
	assert.Equal(t, 8.0, zoom.Start)
	assert.Equal(t, 2.0, zoom.Duration)
	assert.Equal(t, 1.3, zoom.Props["scale"])
	assert.Equal(t, 1.0, plan.Tracks.Overlays[2].Duration)

	for _, items := range [][]domain.TrackItem{plan.Tracks.Media, plan.Tracks.Background, plan.Tracks.Overlays} {
		for _, it := range items {
			assert.Greater(t, it.Duration, 0.0, it.Name)
			assert.LessOrEqual(t, it.End(), plan.Project.Duration, it.Name)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	valid := func() *domain.Plan {
		return &domain.Plan{
			Project: domain.Project{Duration: 5, FPS: 30, Width: 1920, Height: 1080},
			Tracks: domain.Tracks{
				Media:      []domain.TrackItem{{Start: 0, Duration: 5, Type: TypeVideo, Name: "SourceVideo", Props: map[string]any{}}},
				Background: []domain.TrackItem{{Start: 0, Duration: 5, Type: TypeBackground, Name: "GradientBackground", Props: map[string]any{}}},
				Overlays:   []domain.TrackItem{},
			},
		}
	}
	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*domain.Plan)
	}{
		{name: "nil media track", mutate: func(p *domain.Plan) { p.Tracks.Media = nil }},
		{name: "empty background", mutate: func(p *domain.Plan) { p.Tracks.Background = []domain.TrackItem{} }},
		{name: "zero fps", mutate: func(p *domain.Plan) { p.Project.FPS = 0 }},
		{name: "zero duration", mutate: func(p *domain.Plan) { p.Project.Duration = 0 }},
		{name: "zero length item", mutate: func(p *domain.Plan) { p.Tracks.Media[0].Duration = 0 }},
		{name: "unknown item type", mutate: func(p *domain.Plan) { p.Tracks.Media[0].Type = "hologram" }},
		{name: "nil props", mutate: func(p *domain.Plan) { p.Tracks.Media[0].Props = nil }},
		{name: "item past end", mutate: func(p *domain.Plan) { p.Tracks.Background[0].Duration = 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := Validate(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
	assert.Error(t, Validate(nil))
}

func TestWriteReadFile(t *testing.T) {
	plan, err := NewPlanner().Plan(context.Background(), port.PlanRequest{
		MediaPath: "clip.mp4",
		Media:     &domain.MediaInfo{Duration: 12.5},
		Segments:  []domain.Segment{{Start: 0, End: 3, Text: "hello"}},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, WriteFile(path, plan))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, plan.Project, got.Project)
	assert.Equal(t, namesOf(plan.Tracks.Overlays), namesOf(got.Tracks.Overlays))

	require.NoError(t, os.WriteFile(path, []byte(`{"project":{}}`), 0o644))
	_, err = ReadFile(path)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
