package gateway

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"
)

// Usage aggregates the remote bucket contents.
type Usage struct {
	Objects   int
	Bytes     int64
	CheckedAt time.Time
}

// Usage lists the whole bucket at most once per usage TTL.
func (g *Gateway) Usage(ctx context.Context) (Usage, error) {
	g.mu.Lock()
	if g.cached && g.now().Sub(g.usage.CheckedAt) < g.usageTTL {
		u := g.usage
		g.mu.Unlock()
		return u, nil
	}
	g.mu.Unlock()

	objects, err := g.List(ctx, "")
	if err != nil {
		return Usage{}, err
	}

	u := Usage{Objects: len(objects), CheckedAt: g.now()}
	for _, o := range objects {
		u.Bytes += o.Size
	}

	g.mu.Lock()
	g.usage = u
	g.cached = true
	g.mu.Unlock()
	return u, nil
}

func (g *Gateway) InvalidateUsage() {
	g.mu.Lock()
	g.cached = false
	g.mu.Unlock()
}

type LocalUsage struct {
	Files       int
	Dirs        int
	Bytes       int64
	LargestPath string
	LargestSize int64
}

// LocalUsageOf walks dir and sums the regular files below it. A missing dir
// is reported as empty.
func LocalUsageOf(dir string) (LocalUsage, error) {
	var u LocalUsage
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != dir {
				u.Dirs++
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		u.Files++
		u.Bytes += info.Size()
		if info.Size() > u.LargestSize {
			u.LargestSize = info.Size()
			u.LargestPath = path
		}
		return nil
	})
	return u, err
}
