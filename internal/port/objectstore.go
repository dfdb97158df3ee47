package port

import (
	"context"
	"time"

	"github.com/bnema/videofactory/internal/domain"
)

// ObjectStore is a client for a remote bucket. Implementations tag
// configuration and authorization errors with domain.ErrStorageFatal and
// missing objects with domain.ErrObjectNotFound; anything else is treated as
// transient.
type ObjectStore interface {
	PutObject(ctx context.Context, localPath, key string) error
	GetObject(ctx context.Context, key, localPath string) error
	DeleteObject(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	StatObject(ctx context.Context, key string) (domain.ObjectInfo, error)
	ListObjects(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
}
