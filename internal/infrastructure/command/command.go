// Package command runs external tools and captures what they printed.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
)

// Result is the outcome of one invocation.
type Result struct {
	Command  string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution so adapters can be tested without the
// real binaries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the working directory, empty for the current one.
	Dir string
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug.Printf("exec %s %s", name, logger.SanitizeForLog(strings.Join(args, " ")))
	err := cmd.Run()
	result := Result{
		Command: name,
		Args:    args,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

const stderrTail = 400

// StageError tags a failed invocation as a stage execution failure, keeping
// the tail of stderr for the job's error message.
func StageError(stage string, res Result, err error) error {
	msg := fmt.Sprintf("%s exited with code %d", res.Command, res.ExitCode)
	if tail := logger.Tail(res.Stderr, stderrTail); tail != "" {
		msg += ": " + tail
	}
	return domain.Wrap(domain.ErrStageExecution, stage, msg, err)
}
