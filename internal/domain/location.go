package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type LocationKind string

const (
	LocationNone   LocationKind = ""
	LocationLocal  LocationKind = "local"
	LocationRemote LocationKind = "remote"
)

// Location is where an input or output file lives: either a local path or a
// remote object key, never both. The zero value means "not placed yet".
type Location struct {
	kind  LocationKind
	value string
}

func LocalLocation(path string) Location {
	if path == "" {
		return Location{}
	}
	return Location{kind: LocationLocal, value: path}
}

func RemoteLocation(key string) Location {
	if key == "" {
		return Location{}
	}
	return Location{kind: LocationRemote, value: key}
}

func (l Location) Kind() LocationKind { return l.kind }

func (l Location) IsZero() bool { return l.kind == LocationNone }

func (l Location) IsLocal() bool { return l.kind == LocationLocal }

func (l Location) IsRemote() bool { return l.kind == LocationRemote }

// LocalPath returns the path when the location is local.
func (l Location) LocalPath() (string, bool) {
	if l.kind != LocationLocal {
		return "", false
	}
	return l.value, true
}

// RemoteKey returns the object key when the location is remote.
func (l Location) RemoteKey() (string, bool) {
	if l.kind != LocationRemote {
		return "", false
	}
	return l.value, true
}

func (l Location) String() string {
	switch l.kind {
	case LocationLocal:
		return "local:" + l.value
	case LocationRemote:
		return "remote:" + l.value
	default:
		return ""
	}
}

type locationJSON struct {
	Kind LocationKind `json:"kind"`
	Path string       `json:"path,omitempty"`
	Key  string       `json:"key,omitempty"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case LocationLocal:
		return json.Marshal(locationJSON{Kind: LocationLocal, Path: l.value})
	case LocationRemote:
		return json.Marshal(locationJSON{Kind: LocationRemote, Key: l.value})
	default:
		return []byte("null"), nil
	}
}

func (l *Location) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Location{}
		return nil
	}
	var raw locationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case LocationLocal:
		if raw.Key != "" {
			return fmt.Errorf("local location must not carry a key")
		}
		*l = LocalLocation(raw.Path)
	case LocationRemote:
		if raw.Path != "" {
			return fmt.Errorf("remote location must not carry a path")
		}
		*l = RemoteLocation(raw.Key)
	case LocationNone:
		*l = Location{}
	default:
		return fmt.Errorf("unknown location kind %q", raw.Kind)
	}
	return nil
}

// ParseLocation decodes the "kind:value" form produced by String.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return Location{}, nil
	}
	if path, ok := strings.CutPrefix(s, "local:"); ok && path != "" {
		return LocalLocation(path), nil
	}
	if key, ok := strings.CutPrefix(s, "remote:"); ok && key != "" {
		return RemoteLocation(key), nil
	}
	return Location{}, fmt.Errorf("malformed location %q", s)
}
