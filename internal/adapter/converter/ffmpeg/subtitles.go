package ffmpeg

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bnema/videofactory/internal/port"
)

// BurnSubtitles renders the cues of srtPath into the video frames.
func (c *Converter) BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath string) error {
	if err := validatePaths("burn subtitles", videoPath, srtPath, outputPath); err != nil {
		return err
	}
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", videoPath,
		"-vf", "subtitles=" + escapeFilterPath(srtPath),
		"-c:a", "copy",
		"-y", outputPath,
	}
	return c.run(ctx, "burn subtitles", outputPath, args)
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter graph.
func escapeFilterPath(path string) string {
	path = filepath.ToSlash(path)
	r := strings.NewReplacer(`\`, `\\`, `'`, `'\''`, `:`, `\:`)
	return "'" + r.Replace(path) + "'"
}

// SubtitleRenderer is the renderer used when no composition renderer is
// configured: it ignores the plan and burns the job's subtitle file, which
// lives next to the plan, into the edited video.
type SubtitleRenderer struct {
	Converter     *Converter
	SubtitlesName string
}

func (r SubtitleRenderer) Render(ctx context.Context, planPath, mediaPath, outputPath string) error {
	srt := filepath.Join(filepath.Dir(planPath), r.SubtitlesName)
	return r.Converter.BurnSubtitles(ctx, mediaPath, srt, outputPath)
}

var _ port.Renderer = SubtitleRenderer{}
