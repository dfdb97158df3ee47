package domain

// Plan is the declarative composition handed to the renderer.
type Plan struct {
	Project Project `json:"project"`
	Tracks  Tracks  `json:"tracks"`
}

type Project struct {
	Duration float64 `json:"duration"`
	FPS      int     `json:"fps"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

type Tracks struct {
	Media      []TrackItem `json:"media"`
	Background []TrackItem `json:"background"`
	Overlays   []TrackItem `json:"overlays"`
}

type TrackItem struct {
	Start    float64        `json:"start"`
	Duration float64        `json:"duration"`
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Props    map[string]any `json:"props"`
}

func (t TrackItem) End() float64 {
	return t.Start + t.Duration
}
