package domain

import (
	"fmt"
	"strconv"
)

// ProbeFormat and ProbeStream mirror the ffprobe -print_format json output.
type ProbeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ProbeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
}

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

func (p *ProbeResult) VideoStream() *ProbeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return nil
}

// MediaInfo flattens the probe output. Duration falls back to the video
// stream when the container does not report one.
func (p *ProbeResult) MediaInfo() *MediaInfo {
	info := &MediaInfo{
		Duration: ParseDuration(p.Format.Duration),
		Size:     ParseSize(p.Format.Size),
		Format:   p.Format.FormatName,
		Bitrate:  ParseSize(p.Format.BitRate),
	}
	vs := p.VideoStream()
	if vs == nil {
		return info
	}
	info.Width = vs.Width
	info.Height = vs.Height
	info.Codec = vs.CodecName
	info.FPS = ParseFrameRate(vs.AvgFrameRate)
	if info.FPS == 0 {
		info.FPS = ParseFrameRate(vs.RFrameRate)
	}
	if info.Duration == 0 {
		info.Duration = ParseDuration(vs.Duration)
	}
	return info
}

func ParseFrameRate(fraction string) float64 {
	if fraction == "" || fraction == "0/0" {
		return 0
	}
	var num, den int
	if _, err := fmt.Sscanf(fraction, "%d/%d", &num, &den); err == nil && den > 0 {
		return float64(num) / float64(den)
	}
	return 0
}

func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "00:00"
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func ParseSize(sizeStr string) int64 {
	if sizeStr == "" {
		return 0
	}
	var size int64
	if _, err := fmt.Sscanf(sizeStr, "%d", &size); err == nil {
		return size
	}
	return 0
}

func ParseDuration(durationStr string) float64 {
	if durationStr == "" || durationStr == "N/A" {
		return 0
	}
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0
	}
	return duration
}
