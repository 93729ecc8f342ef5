// Package memory is a process-local storage backend.
package memory

import (
	"context"
	"sync"

	"example.com/golocalevents/internal/storage"
)

type Backend struct {
	mu      sync.RWMutex
	data    map[string][]byte
	saveErr error
	saves   int
}

func New() *Backend {
	return &Backend{data: make(map[string][]byte)}
}

func (b *Backend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *Backend) Save(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.data[key] = append([]byte(nil), value...)
	b.saves++
	return nil
}

func (b *Backend) Ready(context.Context) error { return nil }
func (b *Backend) Close() error                { return nil }

// FailSaves makes every subsequent Save return err; nil restores normal behavior.
func (b *Backend) FailSaves(err error) {
	b.mu.Lock()
	b.saveErr = err
	b.mu.Unlock()
}

// Saves counts successful writes.
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}
