// Package ffmpeg implements audio extraction, probing and stream copy on top
// of the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/command"
	"github.com/bnema/videofactory/internal/port"
)

var (
	ErrEmptyPath   = errors.New("path is empty")
	ErrInvalidPath = errors.New("path contains a null byte")
)

type Converter struct {
	ffmpeg  string
	ffprobe string
	runner  command.Runner
}

type Option func(*Converter)

func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(c *Converter) {
		if ffmpegBin != "" {
			c.ffmpeg = ffmpegBin
		}
		if ffprobeBin != "" {
			c.ffprobe = ffprobeBin
		}
	}
}

func WithRunner(r command.Runner) Option {
	return func(c *Converter) { c.runner = r }
}

func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		runner:  command.ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

func validatePaths(stage string, paths ...string) error {
	for _, p := range paths {
		if err := validatePath(p); err != nil {
			return domain.Wrap(domain.ErrValidation, stage, fmt.Sprintf("%q", p), err)
		}
	}
	return nil
}

// ExtractAudio writes a 16 kHz mono PCM wav, the input whisper expects.
func (c *Converter) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if err := validatePaths("extract audio", videoPath, audioPath); err != nil {
		return err
	}
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", audioPath,
	}
	return c.run(ctx, "extract audio", audioPath, args)
}

// Edit copies the streams into outputPath without re-encoding. It stands in
// for a real editor when none is configured.
func (c *Converter) Edit(ctx context.Context, inputPath, outputPath string) error {
	if err := validatePaths("edit", inputPath, outputPath); err != nil {
		return err
	}
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", inputPath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
	return c.run(ctx, "edit", outputPath, args)
}

func (c *Converter) run(ctx context.Context, stage, outputPath string, args []string) error {
	res, err := c.runner.Run(ctx, c.ffmpeg, args...)
	if err != nil {
		return command.StageError(stage, res, err)
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return domain.Wrap(domain.ErrStageExecution, stage, "ffmpeg produced no output", err)
	}
	return nil
}

func (c *Converter) Probe(ctx context.Context, path string) (*domain.MediaInfo, error) {
	if err := validatePaths("probe", path); err != nil {
		return nil, err
	}
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	res, err := c.runner.Run(ctx, c.ffprobe, args...)
	if err != nil {
		return nil, command.StageError("probe", res, err)
	}

	var probe domain.ProbeResult
	if err := json.Unmarshal([]byte(res.Stdout), &probe); err != nil {
		return nil, domain.Wrap(domain.ErrStageExecution, "probe", "failed to parse ffprobe output", err)
	}
	if probe.VideoStream() == nil {
		return nil, domain.Wrap(domain.ErrValidation, "probe", "no video stream found", nil)
	}
	return probe.MediaInfo(), nil
}

var (
	_ port.AudioExtractor = (*Converter)(nil)
	_ port.Prober         = (*Converter)(nil)
	_ port.Editor         = (*Converter)(nil)
)
