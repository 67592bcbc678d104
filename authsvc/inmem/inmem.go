// Package inmem stores the live token sessions. A session exists while its
// key is present; expired keys read as missing.
package inmem

import (
	"context"
	"errors"
	"time"
)

type Client interface {
	Get(ctx context.Context, key string) error
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var ErrKeyNotFound = errors.New("key not found")
