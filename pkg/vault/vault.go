package vault

import (
	"context"
	"errors"
)

// Sentinel errors for the secure store.
var (
	// ErrNotFound covers an absent entry, an expired entry, an entry owned
	// by a different user, and a failed decryption. The causes are
	// deliberately indistinguishable to callers; the audit log records the
	// internal reason.
	ErrNotFound = errors.New("vault: entry not found")

	// ErrEntryLimitExceeded is returned by Store when the per-user cap is
	// reached. No eviction is performed automatically.
	ErrEntryLimitExceeded = errors.New("vault: entry limit exceeded")

	// ErrNotInitialized is returned when an operation is attempted before
	// Start completes.
	ErrNotInitialized = errors.New("vault: store not initialized")

	// ErrInvalidUserID is returned for an empty user identifier.
	ErrInvalidUserID = errors.New("vault: invalid user ID")

	// ErrInvalidMasterKey is returned for an empty master key.
	ErrInvalidMasterKey = errors.New("vault: invalid master key")
)

// Vault is the contract consumed by the assistant's remember/recall/forget
// tool surface. The master key is sourced from a secure per-request context
// by the caller and is never persisted or cached by the store.
type Vault interface {
	// Store encrypts and persists content for a user, deduplicating against
	// existing content, and returns the entry id. Storing identical content
	// twice for the same user never produces two live entries.
	Store(ctx context.Context, userID, masterKey string, typ MemoryType, content any, opts *StoreOptions) (string, error)

	// Retrieve decrypts one entry by id, bumping its access metadata and
	// refreshing a sliding TTL.
	Retrieve(ctx context.Context, userID, masterKey, id string) (*Entry, error)

	// Query returns the user's entries matching the criteria, newest first.
	Query(ctx context.Context, userID, masterKey string, q Query) ([]*Entry, error)

	// Update re-encrypts an entry with new content under a fresh nonce and
	// applies requested metadata changes.
	Update(ctx context.Context, userID, masterKey, id string, content any, opts *StoreOptions) error

	// Delete removes one entry owned by the user.
	Delete(ctx context.Context, userID, id string) error

	// DeleteAll removes every entry owned by the user and returns the count.
	DeleteAll(ctx context.Context, userID string) (int, error)

	// GetStats aggregates the user's entries from metadata alone.
	GetStats(ctx context.Context, userID string) (*Stats, error)

	// Export returns all of the user's entries, including expired ones,
	// fully decrypted, with a format version tag.
	Export(ctx context.Context, userID, masterKey string) (*Backup, error)

	// Import re-inserts backup entries with provenance forced to imported.
	// Individual failures are counted as skipped, not fatal.
	Import(ctx context.Context, userID, masterKey string, backup *Backup) (*ImportResult, error)

	// Start loads state from storage and begins the purge sweep.
	Start(ctx context.Context) error

	// Stop flushes the audit log and stops background work.
	Stop(ctx context.Context) error
}
