package vault

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store for deployments that already run Redis.
// Each user's entries live in one hash keyed by entry id; the audit log is a
// single string key rewritten in full on flush.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore creates a Store on an existing Redis client. The client
// lifecycle is managed by the caller.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "memvault:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) userKey(userHash string) string {
	return s.keyPrefix + "entry:" + userHash
}

func (s *RedisStore) auditKey() string {
	return s.keyPrefix + "audit:log"
}

// Put persists an encrypted entry.
func (s *RedisStore) Put(ctx context.Context, entry *EncryptedEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return &SerializationError{Operation: "marshal", Cause: err}
	}
	if err := s.client.HSet(ctx, s.userKey(entry.UserHash), entry.ID, data).Err(); err != nil {
		return &StorageUnavailableError{Cause: err}
	}
	return nil
}

// Get retrieves an encrypted entry by owner hash and id.
func (s *RedisStore) Get(ctx context.Context, userHash, id string) (*EncryptedEntry, error) {
	data, err := s.client.HGet(ctx, s.userKey(userHash), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &StorageUnavailableError{Cause: err}
	}
	var entry EncryptedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, &SerializationError{Operation: "unmarshal", Cause: err}
	}
	return &entry, nil
}

// Delete removes an encrypted entry. Deleting an absent entry is not an error.
func (s *RedisStore) Delete(ctx context.Context, userHash, id string) error {
	if err := s.client.HDel(ctx, s.userKey(userHash), id).Err(); err != nil {
		return &StorageUnavailableError{Cause: err}
	}
	return nil
}

// ListByUser returns all entries for one owner hash.
func (s *RedisStore) ListByUser(ctx context.Context, userHash string) ([]*EncryptedEntry, error) {
	values, err := s.client.HGetAll(ctx, s.userKey(userHash)).Result()
	if err != nil {
		return nil, &StorageUnavailableError{Cause: err}
	}
	entries := make([]*EncryptedEntry, 0, len(values))
	for _, raw := range values {
		var entry EncryptedEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, &SerializationError{Operation: "unmarshal", Cause: err}
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// CountByUser returns the number of entries for one owner hash.
func (s *RedisStore) CountByUser(ctx context.Context, userHash string) (int, error) {
	n, err := s.client.HLen(ctx, s.userKey(userHash)).Result()
	if err != nil {
		return 0, &StorageUnavailableError{Cause: err}
	}
	return int(n), nil
}

// DeleteByUser removes all entries for one owner hash and returns the count.
func (s *RedisStore) DeleteByUser(ctx context.Context, userHash string) (int, error) {
	key := s.userKey(userHash)
	n, err := s.client.HLen(ctx, key).Result()
	if err != nil {
		return 0, &StorageUnavailableError{Cause: err}
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return 0, &StorageUnavailableError{Cause: err}
	}
	return int(n), nil
}

// All returns every entry across all users, scanning the keyspace for
// per-user hashes.
func (s *RedisStore) All(ctx context.Context) ([]*EncryptedEntry, error) {
	var entries []*EncryptedEntry
	match := s.keyPrefix + "entry:*"

	iter := s.client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		values, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, &StorageUnavailableError{Cause: err}
		}
		for _, raw := range values {
			var entry EncryptedEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return nil, &SerializationError{Operation: "unmarshal", Cause: err}
			}
			entries = append(entries, &entry)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, &StorageUnavailableError{Cause: err}
	}
	return entries, nil
}

// SaveAudit rewrites the audit log in full.
func (s *RedisStore) SaveAudit(ctx context.Context, records []AuditRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return &SerializationError{Operation: "marshal", Cause: err}
	}
	if err := s.client.Set(ctx, s.auditKey(), data, 0).Err(); err != nil {
		return &StorageUnavailableError{Cause: err}
	}
	return nil
}

// LoadAudit loads the persisted audit log. A missing log is not an error.
func (s *RedisStore) LoadAudit(ctx context.Context) ([]AuditRecord, error) {
	data, err := s.client.Get(ctx, s.auditKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, &StorageUnavailableError{Cause: err}
	}
	var records []AuditRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &SerializationError{Operation: "unmarshal", Cause: err}
	}
	return records, nil
}

// Close is a no-op; the Redis client lifecycle is managed externally.
func (s *RedisStore) Close() error {
	return nil
}

var _ Store = (*RedisStore)(nil)
