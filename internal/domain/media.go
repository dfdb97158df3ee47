package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaInfo is the metadata probed from an input or output file.
type MediaInfo struct {
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	Format   string  `json:"format,omitempty"`
	Bitrate  int64   `json:"bitrate,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	Codec    string  `json:"codec,omitempty"`
}

// ObjectInfo describes one object in remote storage.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type,omitempty"`
}

var videoExts = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true,
	".mpeg": true, ".mpg": true, ".wmv": true,
}

// IsVideoFilename reports whether the extension is one of the accepted
// upload formats.
func IsVideoFilename(filename string) bool {
	return videoExts[strings.ToLower(filepath.Ext(filename))]
}

func VideoExtensions() []string {
	return []string{".mp4", ".avi", ".mov", ".mpeg", ".mpg", ".wmv"}
}
