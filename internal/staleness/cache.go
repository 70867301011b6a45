// Package staleness decides whether the dictionary on disk still reflects the
// corpus it was built from, using one content-hash record per corpus file.
package staleness

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/atikulmunna/logsieve/internal/fileops"
)

// DefaultDir is the hash store directory used when none is configured.
const DefaultDir = "hashes"

// Cache compares corpus file hashes against the records in a hash store
// directory, one file per corpus filename.
type Cache struct {
	fs     *fileops.FS
	dir    string
	logger *log.Logger
}

// New returns a Cache storing records under dir (relative to the workdir).
func New(fsys *fileops.FS, dir string, logger *log.Logger) *Cache {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[staleness] ", log.LstdFlags)
	}
	return &Cache{fs: fsys, dir: dir, logger: logger}
}

// IsStale reports whether any corpus file lacks a matching hash record.
// Missing, unreadable or malformed records count as stale. An error is
// returned only when a corpus file itself cannot be read.
func (c *Cache) IsStale(names []string) (bool, error) {
	current := make([]string, len(names))
	for i, name := range names {
		h, err := c.fs.HashFile(name)
		if err != nil {
			return true, fmt.Errorf("hash corpus file %s: %w", name, err)
		}
		current[i] = h
	}

	for i, name := range names {
		stored, ok := c.Record(name)
		if !ok {
			c.logger.Printf("no hash record for %s", name)
			return true, nil
		}
		if stored != current[i] {
			c.logger.Printf("%s changed (%s != %s)", name, current[i], stored)
			return true, nil
		}
	}
	return false, nil
}

// SaveHashes recomputes every corpus file's hash and overwrites its record.
// Call it after a successful dictionary rebuild.
func (c *Cache) SaveHashes(names []string) error {
	for _, name := range names {
		h, err := c.fs.HashFile(name)
		if err != nil {
			return fmt.Errorf("hash corpus file %s: %w", name, err)
		}
		if err := c.fs.WriteFileAtomic(c.recordPath(name), []byte(h)); err != nil {
			return fmt.Errorf("write hash record for %s: %w", name, err)
		}
	}
	return nil
}

// Record returns the stored hash for name. A record that is missing,
// unreadable or not a well-formed digest reports false.
func (c *Cache) Record(name string) (string, bool) {
	data, err := c.fs.ReadFile(c.recordPath(name))
	if err != nil {
		return "", false
	}
	h := strings.TrimSpace(string(data))
	if !wellFormed(h) {
		return "", false
	}
	return h, true
}

func (c *Cache) recordPath(name string) string {
	return filepath.Join(c.dir, filepath.Base(name))
}

// wellFormed accepts the 16 hex digit digests fileops.ContentHash produces.
func wellFormed(h string) bool {
	if len(h) != 16 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if !('0' <= c && c <= '9') && !('a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
