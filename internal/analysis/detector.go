// Package analysis turns a transcript into highlights. Model output is
// validated against a strict schema and replaced by rule-based detection
// whenever it does not conform.
package analysis

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
)

const (
	introMaxSeconds  = 5.0
	outroSeconds     = 5.0
	ruleEvery        = 3
	ruleMaxSeconds   = 8.0
	ruleImportance   = 0.6
	mergeGapSeconds  = 2.0
	defaultImportant = 0.5
)

//go:embed schema/highlights.json
var highlightsSchema string

var compiledSchema = jsonschema.MustCompileString("highlights.json", highlightsSchema)

// Source tells where the detected highlights came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceRules    Source = "rules"
	SourceDefaults Source = "defaults"
)

type Result struct {
	Highlights []domain.Highlight
	Source     Source
	// Rejected holds the reason model output was discarded, if it was.
	Rejected error
}

type Detector struct {
	analyzer port.ContentAnalyzer
}

// NewDetector builds a detector. A nil analyzer means rules only.
func NewDetector(analyzer port.ContentAnalyzer) *Detector {
	return &Detector{analyzer: analyzer}
}

// Detect never fails because of the analyzer: any analyzer error or schema
// violation falls back to the rules. total is the media duration; when zero
// the end of the transcript is used.
func (d *Detector) Detect(ctx context.Context, segments []domain.Segment, total float64) Result {
	if len(segments) == 0 {
		return Result{Highlights: DefaultHighlights(), Source: SourceDefaults}
	}
	if total <= 0 {
		total = domain.TranscriptDuration(segments)
	}

	highlights := []domain.Highlight{introFor(segments), outroFor(total)}

	result := Result{Source: SourceRules}
	if d.analyzer != nil {
		found, err := d.fromModel(ctx, segments, total)
		if err == nil {
			highlights = append(highlights, found...)
			result.Source = SourceModel
		} else {
			logger.Warn.Printf("highlight analyzer output rejected, using rules: %s", logger.Tail(err.Error(), 300))
			result.Rejected = err
		}
	}
	if result.Source == SourceRules {
		highlights = append(highlights, RuleHighlights(segments)...)
	}

	sort.SliceStable(highlights, func(i, j int) bool {
		return highlights[i].Start < highlights[j].Start
	})
	result.Highlights = Merge(highlights)
	return result
}

type modelHighlight struct {
	Type       domain.HighlightType `json:"type"`
	StartTime  float64              `json:"start_time"`
	EndTime    float64              `json:"end_time"`
	Importance *float64             `json:"importance"`
	Text       string               `json:"text"`
	Metadata   map[string]any       `json:"metadata"`
}

func (d *Detector) fromModel(ctx context.Context, segments []domain.Segment, total float64) ([]domain.Highlight, error) {
	raw, err := d.analyzer.Analyze(ctx, segments)
	if err != nil {
		return nil, err
	}
	return ParseModelOutput(raw, total)
}

// ParseModelOutput validates raw analyzer JSON and converts it. Highlights
// are clipped to [0,total]; an entry that ends before it starts rejects the
// whole response.
func ParseModelOutput(raw []byte, total float64) ([]domain.Highlight, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode analyzer output: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("analyzer output violates schema: %w", err)
	}

	var items []modelHighlight
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode analyzer highlights: %w", err)
	}

	out := make([]domain.Highlight, 0, len(items))
	for i, item := range items {
		if item.EndTime <= item.StartTime {
			return nil, fmt.Errorf("highlight %d: end %.2f not after start %.2f", i, item.EndTime, item.StartTime)
		}
		h := domain.Highlight{
			Type:       item.Type,
			Start:      item.StartTime,
			End:        item.EndTime,
			Importance: defaultImportant,
			Text:       item.Text,
			Metadata:   item.Metadata,
		}
		if item.Importance != nil {
			h.Importance = *item.Importance
		}
		if total > 0 {
			h.End = min(h.End, total)
		}
		if h.End <= h.Start {
			continue
		}
		out = append(out, h)
	}
	if len(items) > 0 && len(out) == 0 {
		return nil, errors.New("analyzer highlights all fall outside the media")
	}
	return out, nil
}

// RuleHighlights marks every third segment, starting with the second, as a
// key point of at most eight seconds.
func RuleHighlights(segments []domain.Segment) []domain.Highlight {
	var out []domain.Highlight
	for i, seg := range segments {
		if i%ruleEvery != 1 {
			continue
		}
		out = append(out, domain.Highlight{
			Type:       domain.HighlightKeyPoint,
			Start:      seg.Start,
			End:        min(seg.End, seg.Start+ruleMaxSeconds),
			Importance: ruleImportance,
			Text:       seg.Text,
		})
	}
	return out
}

// DefaultHighlights is used when there is no transcript at all.
func DefaultHighlights() []domain.Highlight {
	return []domain.Highlight{
		{Type: domain.HighlightIntro, Start: 0, End: 5, Importance: 0.9},
		{Type: domain.HighlightContent, Start: 5, End: 10, Importance: 0.7},
		{Type: domain.HighlightOutro, Start: 10, End: 15, Importance: 0.8},
	}
}

func introFor(segments []domain.Segment) domain.Highlight {
	return domain.Highlight{
		Type:       domain.HighlightIntro,
		Start:      0,
		End:        min(introMaxSeconds, segments[0].End),
		Importance: 0.9,
	}
}

func outroFor(total float64) domain.Highlight {
	return domain.Highlight{
		Type:       domain.HighlightOutro,
		Start:      max(0, total-outroSeconds),
		End:        total,
		Importance: 0.8,
	}
}

// Merge joins sorted highlights that overlap or sit within two seconds of
// each other. The merged entry keeps the higher importance, and a specific
// type wins over key_point.
func Merge(sorted []domain.Highlight) []domain.Highlight {
	if len(sorted) <= 1 {
		return sorted
	}
	merged := make([]domain.Highlight, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start > current.End+mergeGapSeconds {
			merged = append(merged, current)
			current = next
			continue
		}
		current.End = max(current.End, next.End)
		current.Importance = max(current.Importance, next.Importance)
		if current.Type == domain.HighlightKeyPoint && next.Type != domain.HighlightKeyPoint {
			current.Type = next.Type
		}
		if current.Text == "" {
			current.Text = next.Text
		}
	}
	return append(merged, current)
}
