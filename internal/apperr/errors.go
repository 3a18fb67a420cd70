// Package apperr holds the sentinel errors shared by the note layers.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyContent = errors.New("empty content")
	ErrConflict     = errors.New("conflict")
	// ErrStorageWrite wraps any failure to persist the note collection.
	ErrStorageWrite = errors.New("storage write failed")
)
