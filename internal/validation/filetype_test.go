package validation

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mp4Magic  = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}
	movMagic  = []byte{0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p', 'q', 't', ' ', ' '}
	oldMov    = []byte{0x00, 0x00, 0x00, 0x08, 'w', 'i', 'd', 'e'}
	aviMagic  = []byte{'R', 'I', 'F', 'F', 0x00, 0x00, 0x00, 0x00, 'A', 'V', 'I', ' '}
	mpegMagic = []byte{0x00, 0x00, 0x01, 0xBA, 0x44}
	wmvMagic  = []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11, 0xA6, 0xD9}
	webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
	wavMagic  = []byte{'R', 'I', 'F', 'F', 0x00, 0x00, 0x00, 0x00, 'W', 'A', 'V', 'E'}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	htmlMagic = []byte("<!DOCTYPE html><html><body></body></html>")
)

func padBytes(magic []byte, size int) []byte {
	if len(magic) >= size {
		return magic
	}
	result := make([]byte, size)
	copy(result, magic)
	return result
}

func TestDetectVideoType(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		wantMIME    string
		wantAllowed bool
	}{
		{name: "mp4", data: padBytes(mp4Magic, 512), wantMIME: "video/mp4", wantAllowed: true},
		{name: "quicktime ftyp", data: padBytes(movMagic, 512), wantMIME: "video/quicktime", wantAllowed: true},
		{name: "quicktime legacy atom", data: padBytes(oldMov, 64), wantMIME: "video/quicktime", wantAllowed: true},
		{name: "avi", data: padBytes(aviMagic, 512), wantMIME: "video/x-msvideo", wantAllowed: true},
		{name: "mpeg program stream", data: padBytes(mpegMagic, 512), wantMIME: "video/mpeg", wantAllowed: true},
		{name: "wmv", data: padBytes(wmvMagic, 512), wantMIME: "video/x-ms-wmv", wantAllowed: true},
		{name: "webm is not accepted", data: padBytes(webmMagic, 512), wantMIME: "video/webm"},
		{name: "wav", data: padBytes(wavMagic, 512), wantMIME: "audio/wave"},
		{name: "png", data: padBytes(pngMagic, 512), wantMIME: "image/png"},
		{name: "html", data: htmlMagic, wantMIME: "text/html; charset=utf-8"},
		{name: "empty", data: nil, wantMIME: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bytes.NewReader(tt.data)
			mime, allowed, err := DetectVideoType(reader)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, mime)
			assert.Equal(t, tt.wantAllowed, allowed)

			pos, err := reader.Seek(0, io.SeekCurrent)
			require.NoError(t, err)
			assert.Zero(t, pos, "reader must be rewound")
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }
func (failingReader) Seek(int64, int) (int64, error) { return 0, nil }

func TestDetectVideoType_ReadError(t *testing.T) {
	_, _, err := DetectVideoType(failingReader{})
	assert.Error(t, err)
}
