package vault

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// EntryStore is the persistence interface for encrypted entries. Backends
// only ever see ciphertext; plaintext and keys never cross this boundary.
type EntryStore interface {
	Put(ctx context.Context, entry *EncryptedEntry) error
	Get(ctx context.Context, userHash, id string) (*EncryptedEntry, error)
	Delete(ctx context.Context, userHash, id string) error
	ListByUser(ctx context.Context, userHash string) ([]*EncryptedEntry, error)
	CountByUser(ctx context.Context, userHash string) (int, error)
	DeleteByUser(ctx context.Context, userHash string) (int, error)
	All(ctx context.Context) ([]*EncryptedEntry, error)
	Close() error
}

// AuditStore persists the audit log. The log is rewritten in full on flush.
type AuditStore interface {
	SaveAudit(ctx context.Context, records []AuditRecord) error
	LoadAudit(ctx context.Context) ([]AuditRecord, error)
}

// Store combines entry and audit persistence; every backend implements both.
type Store interface {
	EntryStore
	AuditStore
}

// NotFoundError indicates that the requested record was not found in storage.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entry not found: %s", e.ID)
}

// StorageUnavailableError indicates that the storage backend is unavailable.
type StorageUnavailableError struct {
	Cause error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Cause)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Cause }

// SerializationError indicates a failure to marshal or unmarshal a record.
type SerializationError struct {
	Operation string
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error during %s: %v", e.Operation, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// --- Encrypted-entry LRU cache ---

// entryCache is an in-process LRU cache of encrypted entries sitting in
// front of the storage backend. Plaintext is never cached.
type entryCache struct {
	mu       sync.Mutex
	maxSize  int
	items    map[string]*list.Element
	eviction *list.List
	hits     int64
	misses   int64
}

type cacheItem struct {
	key   string
	entry *EncryptedEntry
}

// newEntryCache creates a cache with the given capacity. A capacity of zero
// disables caching.
func newEntryCache(maxSize int) *entryCache {
	return &entryCache{
		maxSize:  maxSize,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

func cacheKey(userHash, id string) string {
	return userHash + ":" + id
}

func (c *entryCache) get(key string) (*EncryptedEntry, bool) {
	if c.maxSize <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		c.hits++
		return elem.Value.(*cacheItem).entry, true
	}
	c.misses++
	return nil, false
}

func (c *entryCache) put(key string, entry *EncryptedEntry) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*cacheItem).entry = entry
		return
	}

	if c.eviction.Len() >= c.maxSize {
		back := c.eviction.Back()
		if back != nil {
			c.eviction.Remove(back)
			delete(c.items, back.Value.(*cacheItem).key)
		}
	}

	elem := c.eviction.PushFront(&cacheItem{key: key, entry: entry})
	c.items[key] = elem
}

func (c *entryCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.Remove(elem)
		delete(c.items, key)
	}
}

func (c *entryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

func (c *entryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// hitRate returns the cache hit rate (0.0-1.0) and total accesses.
func (c *entryCache) hitRate() (rate float64, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total = c.hits + c.misses
	if total == 0 {
		return 0, 0
	}
	return float64(c.hits) / float64(total), total
}
