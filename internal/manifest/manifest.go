// Package manifest loads the tracked dependency-declaration files and
// derives the content fingerprint that addresses the dependency cache.
package manifest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/vk/gridci/internal/cache"
	"github.com/vk/gridci/internal/config"
	"github.com/vk/gridci/internal/matrix"
)

// File is one tracked manifest: its declared path and raw content.
type File struct {
	Path    string
	Content []byte
}

// Set is the ordered sequence of manifest files for a run. Order follows
// the declaration order in the pipeline definition, never the filesystem,
// because it feeds the cache fingerprint.
type Set struct {
	Files []File
}

// Load reads every declared manifest path relative to root, in declaration
// order. A missing manifest is a configuration error: the fingerprint would
// silently stop tracking it otherwise.
func Load(root string, paths []string) (*Set, error) {
	set := &Set{Files: make([]File, 0, len(paths))}
	for _, path := range paths {
		content, err := os.ReadFile(filepath.Join(root, path))
		if err != nil {
			return nil, config.Errorf("manifest %q cannot be read: %v", path, err)
		}
		set.Files = append(set.Files, File{Path: path, Content: content})
	}
	return set, nil
}

// Fingerprint derives the cache key for this manifest set in the given
// environment. Every field is length-framed before hashing so that no two
// distinct (path, content, environment) sequences can collide by
// concatenation.
func (s *Set) Fingerprint(env matrix.Environment) cache.Key {
	h := sha256.New()
	frame := func(b []byte) {
		var buf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(buf[:], uint64(len(b)))
		h.Write(buf[:n])
		h.Write(b)
	}
	for _, f := range s.Files {
		frame([]byte(f.Path))
		frame(f.Content)
	}
	frame([]byte(env.Platform))
	frame([]byte(env.Version))
	return cache.Key(hex.EncodeToString(h.Sum(nil)))
}
