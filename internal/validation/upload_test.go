package validation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/videofactory/internal/domain"
)

func writeUpload(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRules_CheckFile(t *testing.T) {
	rules := Rules{MaxSizeBytes: 1024}

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantMIME string
		wantErr  bool
	}{
		{name: "valid mp4", filename: "clip.mp4", data: padBytes(mp4Magic, 512), wantMIME: "video/mp4"},
		{name: "valid avi uppercase ext", filename: "CLIP.AVI", data: padBytes(aviMagic, 512), wantMIME: "video/x-msvideo"},
		{name: "unsupported extension", filename: "clip.mkv", data: padBytes(mp4Magic, 512), wantErr: true},
		{name: "content mismatch", filename: "clip.mp4", data: padBytes(pngMagic, 512), wantErr: true},
		{name: "too large", filename: "clip.mp4", data: padBytes(mp4Magic, 2048), wantErr: true},
		{name: "empty file", filename: "clip.mp4", data: []byte{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeUpload(t, "upload.bin", tt.data)
			mime, _, err := rules.CheckFile(path, tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, mime)
		})
	}
}

func TestRules_CheckFile_MissingFileIsNotValidation(t *testing.T) {
	_, _, err := Rules{}.CheckFile(filepath.Join(t.TempDir(), "gone.mp4"), "gone.mp4")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}

func TestRules_CheckDuration(t *testing.T) {
	rules := Rules{MaxDurationSeconds: 600}
	assert.NoError(t, rules.CheckDuration(12.5))
	assert.NoError(t, rules.CheckDuration(600))
	assert.ErrorIs(t, rules.CheckDuration(601), domain.ErrValidation)
	assert.ErrorIs(t, rules.CheckDuration(0), domain.ErrValidation)
	assert.NoError(t, Rules{}.CheckDuration(1e6))
}

func TestCheckExtension(t *testing.T) {
	assert.NoError(t, CheckExtension("a.mpg"))
	assert.ErrorIs(t, CheckExtension(""), domain.ErrValidation)
	assert.ErrorIs(t, CheckExtension("a.gif"), domain.ErrValidation)
}
