package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// ReaderSpec describes one configured reader position.
type ReaderSpec struct {
	// Position is the human-readable seat name shown to consumers.
	Position string `json:"position"`

	// Type names the driver kind, e.g. "pn532".
	Type string `json:"type,omitempty"`

	// Bus addressing, driver dependent.
	SPICS   int `json:"spi_cs,omitempty"`
	I2CAddr int `json:"i2c_addr,omitempty"`
}

// TableLayout is the persisted table configuration: its name and the
// named reader positions.
type TableLayout struct {
	TableName  string                `json:"table_name"`
	MaxPlayers int                   `json:"max_players"`
	Readers    map[string]ReaderSpec `json:"readers"`
}

// DefaultLayout is used when no table_config.json exists: a single
// community-cards reader.
func DefaultLayout() TableLayout {
	return TableLayout{
		TableName:  "Deckhand Table",
		MaxPlayers: 8,
		Readers: map[string]ReaderSpec{
			"main": {Position: "Community Cards", Type: "pn532"},
		},
	}
}

// PositionNames returns the configured position names, sorted.
func (l TableLayout) PositionNames() []string {
	names := make([]string, 0, len(l.Readers))
	for name := range l.Readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LayoutFile persists a TableLayout as JSON.
type LayoutFile struct {
	path string
}

// NewLayoutFile creates a layout repository backed by the given path.
func NewLayoutFile(path string) *LayoutFile {
	return &LayoutFile{path: path}
}

// Path returns the backing file path.
func (r *LayoutFile) Path() string { return r.path }

// Load reads the layout; a missing file yields DefaultLayout.
func (r *LayoutFile) Load(ctx context.Context) (TableLayout, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultLayout(), nil
		}
		return TableLayout{}, err
	}
	var l TableLayout
	if err := json.Unmarshal(data, &l); err != nil {
		return TableLayout{}, err
	}
	if l.Readers == nil {
		l.Readers = map[string]ReaderSpec{}
	}
	return l, nil
}

// Save persists the layout atomically.
func (r *LayoutFile) Save(ctx context.Context, l TableLayout) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
