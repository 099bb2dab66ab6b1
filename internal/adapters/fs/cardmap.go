// Package fs provides file-backed adapters: the JSON card map, the table
// layout, and a watcher that reloads the card map on external edits.
package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

// CardMapFile persists the UID to label map as a JSON object, matching
// the card_map.json layout used by the table tooling.
type CardMapFile struct {
	path string
}

// NewCardMapFile creates a repository backed by the given path.
func NewCardMapFile(path string) *CardMapFile {
	return &CardMapFile{path: path}
}

// Path returns the backing file path.
func (r *CardMapFile) Path() string { return r.path }

// Load reads the stored map. A missing or unreadable-as-JSON file yields
// an empty map; the agent degrades to unmapped labels rather than
// refusing to start.
func (r *CardMapFile) Load(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]string{}, nil
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// Save persists the map atomically: write to a temp file, then rename.
func (r *CardMapFile) Save(ctx context.Context, m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
