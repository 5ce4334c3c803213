// Package cache implements the content-addressed dependency cache. Entries
// are packed snapshots of an installed dependency tree, addressed by the
// manifest fingerprint, and published atomically so that a partial entry is
// never visible to concurrent lanes.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Key addresses one cache entry. It is the hex-encoded manifest fingerprint.
type Key string

// Entry describes a stored dependency snapshot. Entries are read-only once
// published; eviction is an external storage-quota concern.
type Entry struct {
	Key       Key
	Size      int64
	CreatedAt time.Time
}

// Store is a content-addressed snapshot store.
//
// Lookup is a pure read; an absent key is not an error. Store persists a
// snapshot of srcDir under key and must be idempotent under concurrent
// writers (last writer wins, no partial entry ever visible). Materialize
// restores a previously stored snapshot into destDir; a snapshot that
// cannot be restored yields a *CorruptionError, which callers treat as a
// miss and fall back to a full install.
type Store interface {
	Lookup(ctx context.Context, key Key) (*Entry, bool, error)
	Materialize(ctx context.Context, key Key, destDir string) error
	Store(ctx context.Context, key Key, srcDir string) (*Entry, error)
}

// CorruptionError reports a stored snapshot that could not be restored.
// It is recoverable: the lane performs a full install instead.
type CorruptionError struct {
	Key Key
	Err error
}

// Error implements the error interface.
func (e *CorruptionError) Error() string {
	return fmt.Sprintf("cache entry %s is corrupt: %v", e.Key, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *CorruptionError) Unwrap() error {
	return e.Err
}
