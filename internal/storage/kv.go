// Package storage persists the note collection in a key-value store.
//
// A KV is the raw byte store (file, SQLite, Redis or memory). An Adapter
// sits on top of one and reads and writes the whole collection as a single
// JSON array under one key.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by KV.Get when nothing is stored under key.
	ErrKeyNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned when a write is larger than the store allows.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// KV is the interface for a persistent key-value store.
type KV interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases any resources held by the store.
	Close() error
}
