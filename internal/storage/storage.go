// Package storage defines the durable key/value contract the event store
// writes its serialized collection through.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Backend persists opaque values under string keys.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Ready(ctx context.Context) error
	Close() error
}
