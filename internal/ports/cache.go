package ports

import (
	"context"
	"time"
)

// Cache is a small key-value store for operator state such as sync markers.
// A zero ttl keeps the value until it is overwritten or deleted.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
