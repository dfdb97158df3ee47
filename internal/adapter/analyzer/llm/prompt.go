package llm

import (
	"fmt"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/subtitle"
)

const highlightPrompt = `You analyse video transcripts and pick the moments worth emphasising.
Respond with a JSON object of the form {"highlights": [...]}, where each item has:
  "type": one of intro, outro, content, key_point, callout, zoom, impact_text, transition
  "start_time": seconds from the start of the video
  "end_time": seconds, greater than start_time
  "importance": number between 0 and 1
  "text": short on-screen text for the moment
  "metadata": optional object, e.g. {"zoom_level": 1.3} for zoom
Only use times that fall inside the transcript. Respond with JSON only.`

// transcriptPrompt renders the segments as timestamped lines.
func transcriptPrompt(segments []domain.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "[%s - %s] %s\n",
			subtitle.FormatTimestamp(s.Start), subtitle.FormatTimestamp(s.End), strings.TrimSpace(s.Text))
	}
	return b.String()
}
