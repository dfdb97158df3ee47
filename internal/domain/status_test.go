package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Label(t *testing.T) {
	all := []Status{
		StatusUploaded, StatusValidating, StatusStoring, StatusEditing,
		StatusTranscribing, StatusAnalyzing, StatusRendering, StatusCompleted, StatusFailed,
	}
	seen := make(map[string]bool)
	for _, s := range all {
		label := s.Label()
		assert.NotEqual(t, "Unknown status", label, "status %s", s)
		assert.False(t, seen[label], "duplicate label %q", label)
		seen[label] = true
	}
	assert.Equal(t, "Unknown status", Status("nope").Label())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("rendering")
	require.NoError(t, err)
	assert.Equal(t, StatusRendering, s)

	_, err = ParseStatus("RENDERING")
	assert.Error(t, err)
}

func TestWrapAndKindOf(t *testing.T) {
	cause := errors.New("exit status 1")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "stage", err: Wrap(ErrStageExecution, "render", "remotion failed", cause), want: ErrStageExecution},
		{name: "validation", err: Wrap(ErrValidation, "plan", "bad schema", nil), want: ErrValidation},
		{name: "storage", err: Wrap(ErrTransientStorage, "put", "", cause), want: ErrTransientStorage},
		{name: "untyped", err: cause, want: ErrUnexpected},
		{name: "nil kind", err: Wrap(nil, "x", "", cause), want: ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}

	err := Wrap(ErrStageExecution, "render", "remotion failed", cause)
	assert.Equal(t, "stage execution failure: render: remotion failed: exit status 1", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify("x", nil))

	typed := Wrap(ErrValidation, "intake", "too big", nil)
	assert.Same(t, typed, Classify("x", typed))

	got := Classify("edit", errors.New("nil pointer"))
	assert.True(t, errors.Is(got, ErrUnexpected))
	assert.Contains(t, got.Error(), "edit")
}
