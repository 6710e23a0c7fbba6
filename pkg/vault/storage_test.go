package vault

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

func testEntry(userHash, id string) *EncryptedEntry {
	now := time.Now()
	return &EncryptedEntry{
		ID:          id,
		UserHash:    userHash,
		Type:        TypeFact,
		Access:      AccessPrivate,
		Ciphertext:  []byte("ct-" + id),
		Nonce:       []byte("nonce-" + id),
		Tag:         []byte("tag-" + id),
		ContentHash: "hash-" + id,
		Metadata: Metadata{
			CreatedAt:      now,
			LastAccessedAt: now,
			ModifiedAt:     now,
			Provenance:     ProvenanceManual,
		},
	}
}

func setupTestBadger(t *testing.T) (*BadgerStore, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "memvault-badger-test-*")
	if err != nil {
		t.Fatal(err)
	}

	opts := dgbadger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := dgbadger.Open(opts)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}

	cleanup := func() {
		db.Close()        //nolint:errcheck
		os.RemoveAll(dir) //nolint:errcheck
	}
	return NewBadgerStore(db), cleanup
}

// exerciseStore runs the EntryStore contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.Put(ctx, testEntry("userA", "e1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, testEntry("userA", "e2")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, testEntry("userB", "e3")); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "userA", "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "e1" || string(got.Ciphertext) != "ct-e1" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	// Lookups are scoped by owner hash.
	if _, err := store.Get(ctx, "userB", "e1"); err == nil {
		t.Fatal("expected not found for foreign owner")
	}
	var nf *NotFoundError
	if _, err := store.Get(ctx, "userA", "missing"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	entries, err := store.ListByUser(ctx, "userA")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for userA, got %d", len(entries))
	}

	count, err := store.CountByUser(ctx, "userA")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	all, err := store.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries total, got %d", len(all))
	}

	if err := store.Delete(ctx, "userA", "e1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "userA", "e1"); err == nil {
		t.Fatal("expected not found after delete")
	}

	removed, err := store.DeleteByUser(ctx, "userA")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	// userB untouched.
	if _, err := store.Get(ctx, "userB", "e3"); err != nil {
		t.Fatal(err)
	}

	// Audit round trip.
	records := []AuditRecord{
		{Timestamp: time.Now().UTC(), Action: AuditCreate, UserPrefix: "abc", Success: true},
		{Timestamp: time.Now().UTC(), Action: AuditRead, UserPrefix: "abc", Success: false, Reason: "expired"},
	}
	if err := store.SaveAudit(ctx, records); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.LoadAudit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(loaded))
	}
	if loaded[1].Reason != "expired" {
		t.Fatalf("unexpected audit record: %+v", loaded[1])
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close() //nolint:errcheck
	exerciseStore(t, store)
}

func TestBadgerStore(t *testing.T) {
	store, cleanup := setupTestBadger(t)
	defer cleanup()
	exerciseStore(t, store)
}

func TestMemoryStore_CopiesOnWrite(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close() //nolint:errcheck
	ctx := context.Background()

	entry := testEntry("userA", "e1")
	if err := store.Put(ctx, entry); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy must not affect the stored one.
	entry.ContentHash = "mutated"
	got, err := store.Get(ctx, "userA", "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentHash != "hash-e1" {
		t.Fatal("store must not alias caller memory")
	}
}

func TestEntryCache(t *testing.T) {
	c := newEntryCache(2)

	c.put(cacheKey("u", "a"), testEntry("u", "a"))
	c.put(cacheKey("u", "b"), testEntry("u", "b"))

	if _, ok := c.get(cacheKey("u", "a")); !ok {
		t.Fatal("expected cache hit for a")
	}

	// Inserting a third entry evicts the least recently used (b).
	c.put(cacheKey("u", "c"), testEntry("u", "c"))
	if _, ok := c.get(cacheKey("u", "b")); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.get(cacheKey("u", "a")); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if c.len() != 2 {
		t.Fatalf("expected cache size 2, got %d", c.len())
	}

	c.delete(cacheKey("u", "a"))
	if _, ok := c.get(cacheKey("u", "a")); ok {
		t.Fatal("expected a to be gone after delete")
	}

	rate, total := c.hitRate()
	if total == 0 {
		t.Fatal("expected lookups to be counted")
	}
	if rate <= 0 || rate >= 1 {
		t.Fatalf("expected mixed hit rate, got %f", rate)
	}

	c.purge()
	if c.len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", c.len())
	}
}

func TestEntryCache_Disabled(t *testing.T) {
	c := newEntryCache(0)
	c.put(cacheKey("u", "a"), testEntry("u", "a"))
	if _, ok := c.get(cacheKey("u", "a")); ok {
		t.Fatal("disabled cache must never hit")
	}
	if c.len() != 0 {
		t.Fatal("disabled cache must hold nothing")
	}
}
