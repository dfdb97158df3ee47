// Package remotion renders composition plans with the Remotion CLI.
package remotion

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/command"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
)

const DefaultComposition = "MainComposition"

type Renderer struct {
	npx         string
	composition string
	runner      command.Runner
}

// New returns a renderer that runs npx inside projectDir, the Remotion
// project holding the composition.
func New(npx, projectDir, composition string) *Renderer {
	return NewWithRunner(npx, composition, command.ExecRunner{Dir: projectDir})
}

func NewWithRunner(npx, composition string, runner command.Runner) *Renderer {
	if composition == "" {
		composition = DefaultComposition
	}
	return &Renderer{npx: npx, composition: composition, runner: runner}
}

// Render passes the plan file as input props. mediaPath is already
// referenced by the plan and is only checked for existence.
func (r *Renderer) Render(ctx context.Context, planPath, mediaPath, outputPath string) error {
	for _, p := range []string{planPath, mediaPath} {
		if _, err := os.Stat(p); err != nil {
			return domain.Wrap(domain.ErrValidation, "render", "missing render input", err)
		}
	}
	plan, err := filepath.Abs(planPath)
	if err != nil {
		return domain.Wrap(domain.ErrUnexpected, "render", "resolve plan path", err)
	}
	out, err := filepath.Abs(outputPath)
	if err != nil {
		return domain.Wrap(domain.ErrUnexpected, "render", "resolve output path", err)
	}

	args := []string{"remotion", "render", r.composition, out, "--props=" + plan}
	logger.Info.Printf("rendering composition %s to %s", r.composition, logger.SanitizeForLog(out))
	res, err := r.runner.Run(ctx, r.npx, args...)
	if err != nil {
		return command.StageError("render", res, err)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return domain.Wrap(domain.ErrStageExecution, "render", "remotion produced no output", err)
	}
	return nil
}

var _ port.Renderer = (*Renderer)(nil)
