// Package gateway wraps a remote object store with retries, a usage cache
// and local working directory housekeeping.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/port"
)

const DefaultUsageTTL = 5 * time.Minute

type Gateway struct {
	store  port.ObjectStore
	policy RetryPolicy

	usageTTL time.Duration
	now      func() time.Time

	mu     sync.Mutex
	usage  Usage
	cached bool
}

type Option func(*Gateway)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *Gateway) { g.policy = p.normalized() }
}

func WithUsageTTL(ttl time.Duration) Option {
	return func(g *Gateway) { g.usageTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New builds a gateway over store. A nil store yields a gateway that reports
// itself unavailable so callers place everything locally.
func New(store port.ObjectStore, opts ...Option) *Gateway {
	g := &Gateway{
		store:    store,
		policy:   DefaultRetryPolicy(),
		usageTTL: DefaultUsageTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Available() bool {
	return g.store != nil
}

func (g *Gateway) Put(ctx context.Context, localPath, key string) error {
	if !g.Available() {
		return domain.ErrStorageUnavailable
	}
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	err := g.policy.run(ctx, "put "+key, func() error {
		return g.store.PutObject(ctx, localPath, key)
	})
	if err == nil {
		g.InvalidateUsage()
	}
	return err
}

func (g *Gateway) Get(ctx context.Context, key, localPath string) error {
	if !g.Available() {
		return domain.ErrStorageUnavailable
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return g.policy.run(ctx, "get "+key, func() error {
		return g.store.GetObject(ctx, key, localPath)
	})
}

func (g *Gateway) Delete(ctx context.Context, key string) error {
	if !g.Available() {
		return domain.ErrStorageUnavailable
	}
	err := g.policy.run(ctx, "delete "+key, func() error {
		return g.store.DeleteObject(ctx, key)
	})
	if err == nil {
		g.InvalidateUsage()
	}
	return err
}

func (g *Gateway) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !g.Available() {
		return "", domain.ErrStorageUnavailable
	}
	var url string
	err := g.policy.run(ctx, "presign "+key, func() error {
		var err error
		url, err = g.store.PresignGet(ctx, key, ttl)
		return err
	})
	return url, err
}

// Stat returns domain.ErrObjectNotFound when key does not exist.
func (g *Gateway) Stat(ctx context.Context, key string) (domain.ObjectInfo, error) {
	if !g.Available() {
		return domain.ObjectInfo{}, domain.ErrStorageUnavailable
	}
	var info domain.ObjectInfo
	err := g.policy.run(ctx, "stat "+key, func() error {
		var err error
		info, err = g.store.StatObject(ctx, key)
		return err
	})
	return info, err
}

func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.Stat(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrObjectNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (g *Gateway) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	if !g.Available() {
		return nil, domain.ErrStorageUnavailable
	}
	var objects []domain.ObjectInfo
	err := g.policy.run(ctx, "list "+prefix, func() error {
		var err error
		objects, err = g.store.ListObjects(ctx, prefix)
		return err
	})
	return objects, err
}
