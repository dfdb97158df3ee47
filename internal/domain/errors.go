package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error returned by the pipeline wraps exactly one of
// these so callers can classify it with errors.Is.
var (
	ErrValidation       = errors.New("validation failure")
	ErrTransientStorage = errors.New("transient storage failure")
	ErrStageExecution   = errors.New("stage execution failure")
	ErrUnexpected       = errors.New("unexpected failure")
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrJobLocked          = errors.New("job is being processed by another controller")
	ErrStorageFatal       = errors.New("storage configuration or authorization error")
	ErrStorageUnavailable = errors.New("remote storage not configured")
	ErrObjectNotFound     = errors.New("object not found")
)

// Wrap tags err with one of the failure kinds and prefixes it with the stage
// and message. A nil kind is treated as ErrUnexpected.
func Wrap(kind error, stage, message string, err error) error {
	if kind == nil {
		kind = ErrUnexpected
	}
	detail := buildDetail(stage, message)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", kind, detail, err)
	}
	return fmt.Errorf("%w: %s", kind, detail)
}

// KindOf returns the failure kind carried by err. Errors that carry none are
// unexpected.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrStageExecution):
		return ErrStageExecution
	case errors.Is(err, ErrTransientStorage):
		return ErrTransientStorage
	default:
		return ErrUnexpected
	}
}

// Classify makes sure err carries a failure kind, wrapping it as unexpected
// when it does not.
func Classify(stage string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != ErrUnexpected || errors.Is(err, ErrUnexpected) {
		return err
	}
	return Wrap(ErrUnexpected, stage, "", err)
}

func buildDetail(stage, message string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
