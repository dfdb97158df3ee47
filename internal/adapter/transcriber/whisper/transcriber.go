// Package whisper transcribes audio with the whisper.cpp command line tool
// and reads back the SRT file it writes.
package whisper

import (
	"context"
	"os"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/command"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
	"github.com/bnema/videofactory/internal/subtitle"
)

type Transcriber struct {
	bin      string
	model    string
	language string
	runner   command.Runner
}

type Option func(*Transcriber)

// WithLanguage pins the spoken language instead of letting whisper detect it.
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

func WithRunner(r command.Runner) Option {
	return func(t *Transcriber) { t.runner = r }
}

func New(bin, model string, opts ...Option) *Transcriber {
	t := &Transcriber{bin: bin, model: model, runner: command.ExecRunner{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe writes srtPath and returns its cues. whisper appends the
// extension itself, so srtPath must end in ".srt".
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, srtPath string) ([]domain.Segment, error) {
	base, ok := strings.CutSuffix(srtPath, ".srt")
	if !ok || base == "" {
		return nil, domain.Wrap(domain.ErrValidation, "transcribe", "subtitle path must end in .srt", nil)
	}

	args := []string{"-m", t.model, "-f", audioPath, "-osrt", "-of", base}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}
	res, err := t.runner.Run(ctx, t.bin, args...)
	if err != nil {
		return nil, command.StageError("transcribe", res, err)
	}

	f, err := os.Open(srtPath)
	if err != nil {
		return nil, domain.Wrap(domain.ErrStageExecution, "transcribe", "whisper wrote no subtitles", err)
	}
	defer f.Close()

	segments, err := subtitle.Parse(f)
	if err != nil {
		return nil, domain.Wrap(domain.ErrStageExecution, "transcribe", "unreadable subtitles", err)
	}
	logger.Info.Printf("transcribed %d segments from %s", len(segments), logger.SanitizeForLog(audioPath))
	return segments, nil
}

var _ port.Transcriber = (*Transcriber)(nil)
