package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStatement(text string, byteSize int64) *Statement {
	stmt := NewStatement(text, nil, 1, 1, 0, len(text))
	stmt.ByteSize = byteSize
	return stmt
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(5*1024*1024, DefaultAccessWeightFactor)
	stmt := newTestStatement(`SELECT * FROM "users";`, 32)
	c.Put("doc1", stmt)

	got, ok := c.Get("doc1", stmt.Hash)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Text != stmt.Text {
		t.Fatalf("got text %q, want %q", got.Text, stmt.Text)
	}
	if got.AccessCount != 2 {
		t.Fatalf("expected access_count 2 after one Get following Put, got %d", got.AccessCount)
	}
}

func TestGetMissRecordsMiss(t *testing.T) {
	c := New(5*1024*1024, DefaultAccessWeightFactor)
	if _, ok := c.Get("doc1", "nonexistent"); ok {
		t.Fatal("expected miss")
	}
	if rate := c.HitRate("doc1"); rate != 0 {
		t.Fatalf("expected hit rate 0 after only a miss, got %f", rate)
	}
}

func TestHitRateComputation(t *testing.T) {
	c := New(5*1024*1024, DefaultAccessWeightFactor)
	stmt := newTestStatement("SELECT 1;", 16)
	c.Put("doc1", stmt)
	c.Get("doc1", stmt.Hash)
	c.Get("doc1", stmt.Hash)
	c.Get("doc1", "missing")

	rate := c.HitRate("doc1")
	if rate != 2.0/3.0 {
		t.Fatalf("expected hit rate 2/3, got %f", rate)
	}
}

func TestMarkDirtyAndClean(t *testing.T) {
	c := New(5*1024*1024, DefaultAccessWeightFactor)
	stmt := newTestStatement("SELECT 1;", 16)
	c.Put("doc1", stmt)

	c.MarkClean("doc1", stmt.Hash, true, nil)
	got, _ := c.Get("doc1", stmt.Hash)
	if got.IsDirty {
		t.Fatal("expected clean after MarkClean(true)")
	}
	if !got.IsValid {
		t.Fatal("expected is_valid true")
	}

	c.MarkDirty("doc1", stmt.Hash)
	got, _ = c.Get("doc1", stmt.Hash)
	if !got.IsDirty {
		t.Fatal("expected dirty after MarkDirty")
	}
}

func TestDirtyStatementsReturnsOnlyDirty(t *testing.T) {
	c := New(5*1024*1024, DefaultAccessWeightFactor)
	a := newTestStatement("SELECT 1;", 16)
	b := newTestStatement("SELECT 2;", 16)
	c.Put("doc1", a)
	c.Put("doc1", b)
	c.MarkClean("doc1", a.Hash, true, nil)

	dirty := c.DirtyStatements("doc1")
	if len(dirty) != 1 || dirty[0].Hash != b.Hash {
		t.Fatalf("expected exactly statement b dirty, got %+v", dirty)
	}
}

func TestClearRemovesDocument(t *testing.T) {
	c := New(5*1024*1024, DefaultAccessWeightFactor)
	stmt := newTestStatement("SELECT 1;", 16)
	c.Put("doc1", stmt)
	c.Clear("doc1")

	if _, ok := c.Get("doc1", stmt.Hash); ok {
		t.Fatal("expected miss after Clear")
	}
	if total := c.TotalBytes("doc1"); total != 0 {
		t.Fatalf("expected 0 bytes after Clear, got %d", total)
	}
}

// TestAccessWeightedEvictionProtectsFrequentEntry is scenario 6: with a
// tight byte budget, a heavily-accessed entry survives eviction even though
// it is the oldest, while newer one-shot entries get evicted to make room.
func TestAccessWeightedEvictionProtectsFrequentEntry(t *testing.T) {
	c := New(500, DefaultAccessWeightFactor)

	frequent := newTestStatement(`SELECT * FROM "frequent";`, 50)
	c.Put("doc1", frequent)
	c.MarkClean("doc1", frequent.Hash, true, nil)
	for i := 0; i < 10; i++ {
		c.Get("doc1", frequent.Hash)
	}

	for i := 0; i < 10; i++ {
		oneShot := newTestStatement("SELECT "+string(rune('a'+i))+";", 50)
		c.Put("doc1", oneShot)
		c.MarkClean("doc1", oneShot.Hash, true, nil)
	}

	if _, ok := c.Get("doc1", frequent.Hash); !ok {
		t.Fatal("expected frequently-accessed entry to survive eviction")
	}
	if total := c.TotalBytes("doc1"); total > 500 {
		t.Fatalf("expected total bytes to fit budget, got %d", total)
	}
}

// TestEvictionScoringFollowsLastAccessNotCreation isolates the recency term
// (a near-zero access_weight_factor; New treats 0 as "use the default") to
// show that touching the oldest-created entry most recently protects it
// from eviction, the way "recency" is meant to behave for an entry Get
// keeps alive.
func TestEvictionScoringFollowsLastAccessNotCreation(t *testing.T) {
	c := New(300, 0.001)

	stale := newTestStatement(`SELECT * FROM "stale";`, 50)
	c.Put("doc1", stale)
	c.MarkClean("doc1", stale.Hash, true, nil)
	time.Sleep(2 * time.Millisecond)

	for i := 0; i < 4; i++ {
		other := newTestStatement("SELECT "+string(rune('a'+i))+";", 50)
		c.Put("doc1", other)
		c.MarkClean("doc1", other.Hash, true, nil)
		time.Sleep(2 * time.Millisecond)
	}

	// stale was created first but is now the most recently touched entry.
	c.Get("doc1", stale.Hash)
	time.Sleep(2 * time.Millisecond)

	for i := 0; i < 4; i++ {
		filler := newTestStatement("SELECT "+string(rune('f'+i))+";", 50)
		c.Put("doc1", filler)
		c.MarkClean("doc1", filler.Hash, true, nil)
		time.Sleep(2 * time.Millisecond)
	}

	if _, ok := c.Get("doc1", stale.Hash); !ok {
		t.Fatal("expected the most recently accessed entry to survive eviction despite being the oldest by creation time")
	}
}

func TestByteBudgetInvariantHoldsAfterEachPut(t *testing.T) {
	c := New(200, DefaultAccessWeightFactor)
	for i := 0; i < 20; i++ {
		stmt := newTestStatement("SELECT "+string(rune('a'+i%26))+";", 30)
		c.Put("doc1", stmt)
		c.MarkClean("doc1", stmt.Hash, true, nil)
		if total := c.TotalBytes("doc1"); total > 200 {
			t.Fatalf("byte budget exceeded after put %d: %d > 200", i, total)
		}
	}
}

func TestDocumentsHaveIsolatedBudgets(t *testing.T) {
	c := New(100, DefaultAccessWeightFactor)
	a := newTestStatement("SELECT 1;", 80)
	b := newTestStatement("SELECT 2;", 80)
	c.Put("doc1", a)
	c.Put("doc2", b)

	if _, ok := c.Get("doc1", a.Hash); !ok {
		t.Fatal("doc1's entry should not be affected by doc2's budget")
	}
	if _, ok := c.Get("doc2", b.Hash); !ok {
		t.Fatal("doc2's entry should not be affected by doc1's budget")
	}
}

func TestFileStorageSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	storage, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	c := New(5*1024*1024, DefaultAccessWeightFactor)
	stmt := newTestStatement(`SELECT * FROM "users";`, 32)
	c.Put("doc1", stmt)

	if err := c.Save(storage, "doc1"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := New(5*1024*1024, DefaultAccessWeightFactor)
	if err := restored.Load(storage, "doc1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, ok := restored.Get("doc1", stmt.Hash)
	if !ok {
		t.Fatal("expected restored entry to be present")
	}
	if got.Text != stmt.Text {
		t.Fatalf("got text %q, want %q", got.Text, stmt.Text)
	}

	if _, err := os.Stat(filepath.Join(dir, "cache-index.json")); err != nil {
		t.Fatalf("expected cache-index.json to exist: %v", err)
	}
}

func TestFileStorageVersionMismatchResetsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	storage, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	stale := DocumentSnapshot{Version: snapshotVersion + 1, DocumentID: "doc1"}
	if err := storage.SaveDocument("doc1", stale); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	snap, ok, err := storage.LoadDocument("doc1")
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if ok {
		t.Fatalf("expected version mismatch to report no snapshot, got %+v", snap)
	}
}
