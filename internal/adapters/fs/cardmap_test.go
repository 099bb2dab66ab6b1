package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCardMapRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewCardMapFile(filepath.Join(dir, "card_map.json"))
	ctx := context.Background()

	want := map[string]string{"04AA11": "A♠", "04BB22": "K♦"}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) || got["04AA11"] != "A♠" || got["04BB22"] != "K♦" {
		t.Fatalf("Load = %v, want %v", got, want)
	}

	// Atomic save leaves no temp file behind.
	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file left behind after Save")
	}
}

func TestCardMapMissingFile(t *testing.T) {
	repo := NewCardMapFile(filepath.Join(t.TempDir(), "nope.json"))

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load = %v, want empty map", got)
	}
}

func TestCardMapCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card_map.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewCardMapFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load = %v, want empty map for corrupt file", got)
	}
}

func TestLayoutDefaultWhenMissing(t *testing.T) {
	repo := NewLayoutFile(filepath.Join(t.TempDir(), "table_config.json"))

	l, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := l.Readers["main"]; !ok {
		t.Fatalf("default layout missing main reader: %v", l.Readers)
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	repo := NewLayoutFile(filepath.Join(t.TempDir(), "table_config.json"))
	ctx := context.Background()

	want := TableLayout{
		TableName:  "Test Table",
		MaxPlayers: 10,
		Readers: map[string]ReaderSpec{
			"seat_1": {Position: "Seat 1", Type: "pn532", SPICS: 5},
			"seat_2": {Position: "Seat 2", Type: "pn532", SPICS: 6},
		},
	}
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.TableName != want.TableName || len(got.Readers) != 2 {
		t.Fatalf("Load = %+v", got)
	}
	if names := got.PositionNames(); names[0] != "seat_1" || names[1] != "seat_2" {
		t.Fatalf("PositionNames = %v", names)
	}
}

func TestMapWatcherReloadsOnRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card_map.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w := NewMapWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// Simulate an atomic save: write temp, rename over the target.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(`{"04AA":"A♠"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}
