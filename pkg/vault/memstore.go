package vault

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store backed by maps. It is the default for
// tests and for deployments that accept losing state on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]*EncryptedEntry // userHash -> id -> entry
	audit   []AuditRecord
}

// NewMemoryStore creates an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]*EncryptedEntry),
	}
}

// Put persists an encrypted entry.
func (s *MemoryStore) Put(ctx context.Context, entry *EncryptedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.entries[entry.UserHash]
	if !ok {
		byID = make(map[string]*EncryptedEntry)
		s.entries[entry.UserHash] = byID
	}
	cp := *entry
	byID[entry.ID] = &cp
	return nil
}

// Get retrieves an encrypted entry by owner hash and id.
func (s *MemoryStore) Get(ctx context.Context, userHash, id string) (*EncryptedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[userHash][id]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, &NotFoundError{ID: id}
}

// Delete removes an encrypted entry. Deleting an absent entry is not an error.
func (s *MemoryStore) Delete(ctx context.Context, userHash, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries[userHash], id)
	if len(s.entries[userHash]) == 0 {
		delete(s.entries, userHash)
	}
	return nil
}

// ListByUser returns all entries for one owner hash.
func (s *MemoryStore) ListByUser(ctx context.Context, userHash string) ([]*EncryptedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.entries[userHash]
	entries := make([]*EncryptedEntry, 0, len(byID))
	for _, entry := range byID {
		cp := *entry
		entries = append(entries, &cp)
	}
	return entries, nil
}

// CountByUser returns the number of entries for one owner hash.
func (s *MemoryStore) CountByUser(ctx context.Context, userHash string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[userHash]), nil
}

// DeleteByUser removes all entries for one owner hash and returns the count.
func (s *MemoryStore) DeleteByUser(ctx context.Context, userHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.entries[userHash])
	delete(s.entries, userHash)
	return count, nil
}

// All returns every entry across all users.
func (s *MemoryStore) All(ctx context.Context) ([]*EncryptedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*EncryptedEntry
	for _, byID := range s.entries {
		for _, entry := range byID {
			cp := *entry
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

// SaveAudit rewrites the audit log in full.
func (s *MemoryStore) SaveAudit(ctx context.Context, records []AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = make([]AuditRecord, len(records))
	copy(s.audit, records)
	return nil
}

// LoadAudit loads the persisted audit log.
func (s *MemoryStore) LoadAudit(ctx context.Context) ([]AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]AuditRecord, len(s.audit))
	copy(records, s.audit)
	return records, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
