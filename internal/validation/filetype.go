// Package validation checks uploaded videos before they enter the pipeline.
package validation

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// videoMIMETypes maps accepted video MIME types to their extensions.
var videoMIMETypes = map[string][]string{
	"video/mp4":       {".mp4"},
	"video/x-msvideo": {".avi"},
	"video/quicktime": {".mov"},
	"video/mpeg":      {".mpeg", ".mpg"},
	"video/x-ms-wmv":  {".wmv"},
}

const magicBytesBufferSize = 512

var asfHeaderGUID = []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}

// DetectVideoType sniffs the container from the first bytes of reader and
// rewinds it. allowed reports whether the type is an accepted video format.
func DetectVideoType(reader io.ReadSeeker) (mime string, allowed bool, err error) {
	buf := make([]byte, magicBytesBufferSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false, err
	}
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}
	if n == 0 {
		return "application/octet-stream", false, nil
	}
	buf = buf[:n]

	mime = detectVideoMagic(buf)
	if mime == "" {
		mime = http.DetectContentType(buf)
	}
	_, allowed = videoMIMETypes[mime]
	return mime, allowed, nil
}

func detectVideoMagic(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// ISO base media: [size]["ftyp"][brand]
	if len(buf) >= 12 && string(buf[4:8]) == "ftyp" {
		if string(buf[8:12]) == "qt  " {
			return "video/quicktime"
		}
		return "video/mp4"
	}

	// Older QuickTime files start with a moov/mdat/wide atom instead.
	if len(buf) >= 8 {
		switch string(buf[4:8]) {
		case "moov", "mdat", "wide", "free", "skip":
			return "video/quicktime"
		}
	}

	// AVI: RIFF....AVI
	if len(buf) >= 12 && string(buf[0:4]) == "RIFF" && string(buf[8:12]) == "AVI " {
		return "video/x-msvideo"
	}

	// MPEG program stream pack header or sequence header.
	if buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0x01 && (buf[3] == 0xBA || buf[3] == 0xB3) {
		return "video/mpeg"
	}

	if len(buf) >= len(asfHeaderGUID) && bytes.Equal(buf[:len(asfHeaderGUID)], asfHeaderGUID) {
		return "video/x-ms-wmv"
	}

	return ""
}
