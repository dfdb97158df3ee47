// Package subtitle reads and writes SRT subtitle files.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
)

const timingSeparator = " --> "

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp accepts HH:MM:SS,mmm and the HH:MM:SS.mmm variant some
// tools emit.
func ParseTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(strings.Replace(ts, ".", ",", 1))
	clock, millis, ok := strings.Cut(ts, ",")
	if !ok {
		return 0, fmt.Errorf("timestamp %q: missing milliseconds", ts)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: want HH:MM:SS", ts)
	}
	var total float64
	for i, unit := range []float64{3600, 60, 1} {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("timestamp %q: bad field %q", ts, parts[i])
		}
		total += float64(n) * unit
	}
	ms, err := strconv.Atoi(millis)
	if err != nil || ms < 0 || ms > 999 {
		return 0, fmt.Errorf("timestamp %q: bad milliseconds %q", ts, millis)
	}
	return total + float64(ms)/1000, nil
}

func Write(w io.Writer, segments []domain.Segment) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segments {
		_, err := fmt.Fprintf(bw, "%d\n%s%s%s\n%s\n\n",
			i+1, FormatTimestamp(seg.Start), timingSeparator, FormatTimestamp(seg.End), strings.TrimSpace(seg.Text))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

func Format(segments []domain.Segment) string {
	var b strings.Builder
	_ = Write(&b, segments)
	return b.String()
}

// Parse reads SRT cues. Multi-line cue text is joined with a space; cues
// without text are skipped.
func Parse(r io.Reader) ([]domain.Segment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		segments []domain.Segment
		current  *domain.Segment
		text     []string
		line     int
	)
	flush := func() {
		if current != nil && len(text) > 0 {
			current.Text = strings.Join(text, " ")
			segments = append(segments, *current)
		}
		current = nil
		text = nil
	}

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		switch {
		case raw == "":
			flush()
		case current == nil && strings.Contains(raw, timingSeparator):
			start, end, err := parseTiming(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			current = &domain.Segment{Start: start, End: end}
		case current == nil:
			// cue index
		default:
			text = append(text, raw)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return segments, nil
}

func parseTiming(line string) (float64, float64, error) {
	from, to, _ := strings.Cut(line, timingSeparator)
	// Position hints may follow the end timestamp.
	if fields := strings.Fields(to); len(fields) > 0 {
		to = fields[0]
	}
	start, err := ParseTimestamp(from)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(to)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %s", line)
	}
	return start, end, nil
}
