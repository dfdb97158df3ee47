// Package composition builds the three-track plan the renderer consumes.
package composition

import (
	"context"
	"math"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/port"
)

const (
	DefaultFPS    = 30
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

// Item types.
const (
	TypeVideo      = "video"
	TypeBackground = "background"
	TypeIndicator  = "indicator"
	TypeText       = "text"
	TypeOverlay    = "overlay"
	TypeEffect     = "effect"
	TypeTransition = "transition"
	TypeCaption    = "caption"
)

const transitionSeconds = 1.0

type Planner struct {
	captions bool
}

type Option func(*Planner)

// WithCaptions toggles one caption overlay per transcript segment. On by
// default.
func WithCaptions(enabled bool) Option {
	return func(p *Planner) { p.captions = enabled }
}

func NewPlanner(opts ...Option) *Planner {
	p := &Planner{captions: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ port.CompositionPlanner = (*Planner)(nil)

// Plan lays out the media, background and overlay tracks. The result is
// validated before it is returned; a plan that cannot be given a positive
// duration is a validation failure.
func (p *Planner) Plan(ctx context.Context, req port.PlanRequest) (*domain.Plan, error) {
	duration := planDuration(req)
	if duration <= 0 {
		return nil, domain.Wrap(domain.ErrValidation, "plan", "cannot determine video duration", nil)
	}

	plan := &domain.Plan{
		Project: project(req.Media, duration),
		Tracks: domain.Tracks{
			Media:      []domain.TrackItem{},
			Background: []domain.TrackItem{},
			Overlays:   []domain.TrackItem{},
		},
	}
	t := &builder{duration: duration}

	t.add(&plan.Tracks.Media, 0, duration, TypeVideo, "SourceVideo", map[string]any{
		"src": req.MediaPath,
	})
	t.add(&plan.Tracks.Background, 0, duration, TypeBackground, "GradientBackground", map[string]any{
		"colors": []string{"#0f172a", "#1e293b"},
	})
	t.add(&plan.Tracks.Overlays, 0, duration, TypeIndicator, "ProgressBar", map[string]any{
		"color":    "#38bdf8",
		"position": "bottom",
	})

	for _, h := range req.Highlights {
		t.highlight(plan, h)
	}

	if p.captions {
		for _, seg := range req.Segments {
			t.add(&plan.Tracks.Overlays, seg.Start, seg.End-seg.Start, TypeCaption, "Caption", map[string]any{
				"text": seg.Text,
			})
		}
	}

	if err := Validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func planDuration(req port.PlanRequest) float64 {
	if req.Media != nil && req.Media.Duration > 0 {
		return req.Media.Duration
	}
	duration := domain.TranscriptDuration(req.Segments)
	for _, h := range req.Highlights {
		duration = max(duration, h.End)
	}
	return duration
}

func project(media *domain.MediaInfo, duration float64) domain.Project {
	pr := domain.Project{
		Duration: duration,
		FPS:      DefaultFPS,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
	}
	if media == nil {
		return pr
	}
	if fps := int(math.Round(media.FPS)); fps > 0 && fps <= 120 {
		pr.FPS = fps
	}
	if media.Width >= 16 && media.Height >= 16 {
		pr.Width = media.Width
		pr.Height = media.Height
	}
	return pr
}

type builder struct {
	duration float64
}

// add clamps the item to the video and drops it when nothing is left.
func (b *builder) add(track *[]domain.TrackItem, start, length float64, typ, name string, props map[string]any) {
	start = max(start, 0)
	end := min(start+length, b.duration)
	if end-start <= 0 {
		return
	}
	if props == nil {
		props = map[string]any{}
	}
	*track = append(*track, domain.TrackItem{
		Start:    start,
		Duration: end - start,
		Type:     typ,
		Name:     name,
		Props:    props,
	})
}

func (b *builder) highlight(plan *domain.Plan, h domain.Highlight) {
	length := h.End - h.Start
	overlays := &plan.Tracks.Overlays

	switch h.Type {
	case domain.HighlightIntro:
		b.add(&plan.Tracks.Background, h.Start, length, TypeBackground, "MatrixRain", nil)
		b.add(overlays, h.Start, length, TypeText, "SlideText", map[string]any{
			"text":      textOr(h.Text, "Welcome to Our Video"),
			"direction": "up",
			"fontSize":  "4rem",
		})
	case domain.HighlightOutro:
		b.add(&plan.Tracks.Background, h.Start, length, TypeBackground, "LiquidWave", nil)
		b.add(overlays, h.Start, length, TypeText, "SlideText", map[string]any{
			"text":      textOr(h.Text, "Thanks for Watching!"),
			"direction": "down",
			"fontSize":  "3.5rem",
		})
	case domain.HighlightKeyPoint:
		b.add(overlays, h.Start, length, TypeOverlay, "KeyPointCallout", map[string]any{
			"text":       h.Text,
			"importance": h.Importance,
		})
	case domain.HighlightCallout:
		b.add(overlays, h.Start, length, TypeOverlay, "HighlightMarker", map[string]any{
			"text": h.Text,
		})
	case domain.HighlightZoom:
		b.add(overlays, h.Start, length, TypeEffect, "Zoom", map[string]any{
			"scale": zoomLevel(h.Metadata),
		})
	case domain.HighlightImpactText:
		b.add(overlays, h.Start, length, TypeText, "GlitchText", map[string]any{
			"text": h.Text,
		})
	case domain.HighlightTransition:
		b.add(overlays, h.Start, min(length, transitionSeconds), TypeTransition, "Wipe", nil)
	case domain.HighlightContent:
		b.add(overlays, h.Start, length, TypeOverlay, "ContentScene", map[string]any{
			"text": h.Text,
		})
	}
}

func textOr(text, fallback string) string {
	if text == "" {
		return fallback
	}
	return text
}

func zoomLevel(meta map[string]any) float64 {
	if v, ok := meta["zoom_level"].(float64); ok && v >= 1 && v <= 2 {
		return v
	}
	return 1.2
}
