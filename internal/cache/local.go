package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore keeps snapshots on the local filesystem under
// <root>/sha256/<key>.tar.gz. Publication is a write to a temporary file in
// the same directory followed by an atomic rename, so a reader never
// observes a partially written entry and concurrent writers of the same key
// settle on last-writer-wins.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at the given directory, creating it
// if necessary.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "sha256"), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) entryPath(key Key) string {
	return filepath.Join(s.root, "sha256", string(key)+".tar.gz")
}

// Lookup reports whether a snapshot for key exists. It performs no side
// effects.
func (s *LocalStore) Lookup(_ context.Context, key Key) (*Entry, bool, error) {
	info, err := os.Stat(s.entryPath(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup for %s: %w", key, err)
	}
	return &Entry{Key: key, Size: info.Size(), CreatedAt: info.ModTime()}, true, nil
}

// Materialize unpacks the stored snapshot for key into destDir.
func (s *LocalStore) Materialize(_ context.Context, key Key, destDir string) error {
	f, err := os.Open(s.entryPath(key))
	if err != nil {
		return &CorruptionError{Key: key, Err: err}
	}
	defer f.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}
	if err := Unpack(f, destDir); err != nil {
		return &CorruptionError{Key: key, Err: err}
	}
	return nil
}

// Store packs srcDir and publishes it under key.
func (s *LocalStore) Store(ctx context.Context, key Key, srcDir string) (*Entry, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, "sha256"), "."+string(key)+".*")
	if err != nil {
		return nil, fmt.Errorf("creating staging file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Pack(srcDir, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("packing snapshot for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing staging file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		// Cancelled runs must not publish; the staging file is discarded.
		return nil, err
	}
	if err := os.Rename(tmp.Name(), s.entryPath(key)); err != nil {
		return nil, fmt.Errorf("publishing snapshot for %s: %w", key, err)
	}

	entry, ok, err := s.Lookup(ctx, key)
	if err != nil || !ok {
		return nil, fmt.Errorf("snapshot for %s vanished after publish: %w", key, err)
	}
	return entry, nil
}
