package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	entryKeyPrefix = "entry:"
	auditLogKey    = "audit:log"
)

// BadgerStore is a Badger-backed Store. Entries live under
// entry:{userHash}:{id} so per-user operations are prefix scans; the audit
// log is rewritten in full under a single key.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a Store on an already opened Badger DB. The DB
// lifecycle is managed by the caller.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func entryKey(userHash, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", entryKeyPrefix, userHash, id))
}

func userPrefix(userHash string) []byte {
	return []byte(fmt.Sprintf("%s%s:", entryKeyPrefix, userHash))
}

// Put persists an encrypted entry.
func (s *BadgerStore) Put(ctx context.Context, entry *EncryptedEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return &SerializationError{Operation: "marshal", Cause: err}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(entry.UserHash, entry.ID), data)
	})
}

// Get retrieves an encrypted entry by owner hash and id.
func (s *BadgerStore) Get(ctx context.Context, userHash, id string) (*EncryptedEntry, error) {
	var entry EncryptedEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(userHash, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &NotFoundError{ID: id}
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entry); err != nil {
				return &SerializationError{Operation: "unmarshal", Cause: err}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete removes an encrypted entry. Deleting an absent entry is not an error.
func (s *BadgerStore) Delete(ctx context.Context, userHash, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(entryKey(userHash, id))
	})
}

// ListByUser returns all entries for one owner hash.
func (s *BadgerStore) ListByUser(ctx context.Context, userHash string) ([]*EncryptedEntry, error) {
	var entries []*EncryptedEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix(userHash)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry EncryptedEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return &SerializationError{Operation: "unmarshal", Cause: err}
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	return entries, err
}

// CountByUser returns the number of entries for one owner hash.
func (s *BadgerStore) CountByUser(ctx context.Context, userHash string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix(userHash)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DeleteByUser removes all entries for one owner hash and returns the count.
func (s *BadgerStore) DeleteByUser(ctx context.Context, userHash string) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix(userHash)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// All returns every entry across all users. Used by the purge sweep, which
// reads only metadata.
func (s *BadgerStore) All(ctx context.Context) ([]*EncryptedEntry, error) {
	var entries []*EncryptedEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry EncryptedEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return &SerializationError{Operation: "unmarshal", Cause: err}
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	return entries, err
}

// SaveAudit rewrites the audit log in full.
func (s *BadgerStore) SaveAudit(ctx context.Context, records []AuditRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return &SerializationError{Operation: "marshal", Cause: err}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(auditLogKey), data)
	})
}

// LoadAudit loads the persisted audit log. A missing log is not an error.
func (s *BadgerStore) LoadAudit(ctx context.Context) ([]AuditRecord, error) {
	var records []AuditRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(auditLogKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &records); err != nil {
				return &SerializationError{Operation: "unmarshal", Cause: err}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close is a no-op; the Badger DB lifecycle is managed externally.
func (s *BadgerStore) Close() error {
	return nil
}

var _ Store = (*BadgerStore)(nil)
