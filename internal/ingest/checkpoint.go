package ingest

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atikulmunna/logsieve/internal/fileops"
)

// WatchState is the persisted progress for one target.
type WatchState struct {
	Offset  int       `json:"offset"`
	Flagged int       `json:"flagged"`
	Updated time.Time `json:"updated"`
}

// checkpointData is the on-disk JSON structure.
type checkpointData struct {
	Targets map[string]WatchState `json:"targets"`
}

// Checkpoint persists watch offsets so ingestion can resume after a restart.
type Checkpoint struct {
	mu   sync.RWMutex
	fs   *fileops.FS
	path string
	data checkpointData
}

// NewCheckpoint loads the checkpoint at path, or starts an empty one if the
// file does not exist. A file that is not valid JSON is an error.
func NewCheckpoint(fsys *fileops.FS, path string) (*Checkpoint, error) {
	c := &Checkpoint{
		fs:   fsys,
		path: path,
		data: checkpointData{Targets: make(map[string]WatchState)},
	}

	raw, err := fsys.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &c.data); err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", path, err)
		}
	case !fileops.IsNotExist(err):
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	if c.data.Targets == nil {
		c.data.Targets = make(map[string]WatchState)
	}
	return c, nil
}

// Get returns the saved state for a target.
func (c *Checkpoint) Get(target string) (WatchState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data.Targets[target]
	return v, ok
}

// Set records the current state for a target.
func (c *Checkpoint) Set(target string, st WatchState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Targets[target] = st
}

// Save writes the checkpoint to disk atomically.
func (c *Checkpoint) Save() error {
	c.mu.RLock()
	raw, err := json.MarshalIndent(c.data, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return c.fs.WriteFileAtomic(c.path, raw)
}
