// Package autoeditor removes silent stretches from a video with the
// auto-editor command line tool.
package autoeditor

import (
	"context"
	"os"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/command"
	"github.com/bnema/videofactory/internal/port"
)

const DefaultArgs = "--no-open --margin 0.2sec"

type Editor struct {
	bin    string
	args   []string
	runner command.Runner
}

// New builds an editor around bin. extraArgs is split on whitespace and
// appended after the output flag.
func New(bin, extraArgs string, runner command.Runner) *Editor {
	if runner == nil {
		runner = command.ExecRunner{}
	}
	if strings.TrimSpace(extraArgs) == "" {
		extraArgs = DefaultArgs
	}
	return &Editor{bin: bin, args: strings.Fields(extraArgs), runner: runner}
}

func (e *Editor) Edit(ctx context.Context, inputPath, outputPath string) error {
	args := append([]string{inputPath, "--output", outputPath}, e.args...)
	res, err := e.runner.Run(ctx, e.bin, args...)
	if err != nil {
		return command.StageError("edit", res, err)
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return domain.Wrap(domain.ErrStageExecution, "edit", "auto-editor produced no output", err)
	}
	return nil
}

var _ port.Editor = (*Editor)(nil)
