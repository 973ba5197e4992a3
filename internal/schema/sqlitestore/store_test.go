package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/querycanvas/langservice/internal/schema"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "schema.sqlite3")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	snap := schema.Snapshot{
		Databases: []schema.DatabaseDefinition{
			{Name: "shop", Bundles: []schema.BundleDefinition{{Name: "orders"}}},
		},
		CurrentDatabase: "shop",
	}
	if err := store.Save("conn-1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.Load("conn-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to be found")
	}
	if got.CurrentDatabase != "shop" || len(got.Databases) != 1 {
		t.Fatalf("unexpected snapshot round trip: %+v", got)
	}
}

func TestLoadMissingKeyReturnsNotFound(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "schema.sqlite3")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_, ok, err := store.Load("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected not found")
	}
}

func TestSaveOverwritesPriorSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "schema.sqlite3")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	_ = store.Save("k", schema.Snapshot{CurrentDatabase: "a"})
	_ = store.Save("k", schema.Snapshot{CurrentDatabase: "b"})

	got, ok, err := store.Load("k")
	if err != nil || !ok {
		t.Fatalf("load: %v ok=%v", err, ok)
	}
	if got.CurrentDatabase != "b" {
		t.Fatalf("expected latest save to win, got %q", got.CurrentDatabase)
	}
}
