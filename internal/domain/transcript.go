package domain

// Segment is one timed line of the transcript, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type HighlightType string

const (
	HighlightIntro      HighlightType = "intro"
	HighlightOutro      HighlightType = "outro"
	HighlightContent    HighlightType = "content"
	HighlightKeyPoint   HighlightType = "key_point"
	HighlightCallout    HighlightType = "callout"
	HighlightZoom       HighlightType = "zoom"
	HighlightImpactText HighlightType = "impact_text"
	HighlightTransition HighlightType = "transition"
)

// Highlight is a time range worth emphasising in the composition.
type Highlight struct {
	Type       HighlightType  `json:"type"`
	Start      float64        `json:"start"`
	End        float64        `json:"end"`
	Importance float64        `json:"importance"`
	Text       string         `json:"text,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (h Highlight) Duration() float64 {
	return h.End - h.Start
}

// TranscriptDuration returns the end of the last segment.
func TranscriptDuration(segments []Segment) float64 {
	var end float64
	for _, s := range segments {
		end = max(end, s.End)
	}
	return end
}
