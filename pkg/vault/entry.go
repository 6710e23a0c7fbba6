// Package vault implements the per-user, at-rest-encrypted memory store for
// assistant long-term memories, with ownership isolation, deduplication,
// time-based expiration, and tamper-evident audit logging.
package vault

import (
	"time"
)

// MemoryType tags what kind of memory an entry holds.
type MemoryType string

const (
	TypeFact         MemoryType = "fact"
	TypePreference   MemoryType = "preference"
	TypeConversation MemoryType = "conversation"
	TypeContext      MemoryType = "context"
	TypeSecret       MemoryType = "secret"
	TypeTask         MemoryType = "task"
	TypeRelationship MemoryType = "relationship"
	TypeLocation     MemoryType = "location"
	TypeTemporal     MemoryType = "temporal"
)

// AccessLevel tags who may be shown an entry by the consuming assistant.
type AccessLevel string

const (
	AccessPrivate   AccessLevel = "private"
	AccessAssistant AccessLevel = "assistant"
	AccessShared    AccessLevel = "shared"
	AccessSystem    AccessLevel = "system"
)

// Provenance records where a memory came from.
type Provenance string

const (
	ProvenanceManual       Provenance = "manual"
	ProvenanceConversation Provenance = "conversation"
	ProvenanceInferred     Provenance = "inferred"
	ProvenanceImported     Provenance = "imported"
)

// Metadata holds the attributes of one memory regardless of type.
type Metadata struct {
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessedAt is the timestamp of the last successful read.
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// ModifiedAt is the timestamp of the last content mutation.
	ModifiedAt time.Time `json:"modified_at"`

	// AccessCount is the number of successful reads.
	AccessCount int `json:"access_count"`

	// ExpiresAt is the absolute expiration timestamp, if any. If TTLSeconds
	// is set it is recomputed to now+TTL on every successful read, so
	// frequently accessed ephemeral memories stay alive while idle ones
	// expire.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// TTLSeconds is the sliding time-to-live measured from last access.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`

	// Provenance records where the memory came from.
	Provenance Provenance `json:"provenance"`

	// Confidence is a 0-1 score, meaningful only for inferred provenance.
	Confidence float64 `json:"confidence,omitempty"`

	// RelatedIDs are identifiers of related entries.
	RelatedIDs []string `json:"related_ids,omitempty"`

	// Tags are free-form labels for filtering.
	Tags []string `json:"tags,omitempty"`

	// Custom holds opaque caller-supplied fields.
	Custom map[string]any `json:"custom,omitempty"`
}

// EncryptedEntry is the persisted record. Ciphertext, nonce, and tag are
// always set and replaced together; a plaintext projection of this record is
// never persisted.
type EncryptedEntry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id"`

	// UserHash is the one-way hash of the owning user's identifier. The raw
	// identifier is never stored.
	UserHash string `json:"user_hash"`

	// Type tags the kind of memory.
	Type MemoryType `json:"type"`

	// Access is the access-level tag.
	Access AccessLevel `json:"access"`

	// Ciphertext is the AES-256-GCM output over the serialized content.
	Ciphertext []byte `json:"ciphertext"`

	// Nonce is the per-encryption initialization vector.
	Nonce []byte `json:"nonce"`

	// Tag is the GCM authentication tag.
	Tag []byte `json:"tag"`

	// ContentHash is the salted digest of the plaintext, used only for
	// deduplication.
	ContentHash string `json:"content_hash"`

	// Metadata holds the entry attributes.
	Metadata Metadata `json:"metadata"`
}

// IsExpired reports whether the entry is past its expiration at the given
// instant. Expired entries behave as absent to readers even before the purge
// sweep physically removes them.
func (e *EncryptedEntry) IsExpired(now time.Time) bool {
	return e.Metadata.ExpiresAt != nil && e.Metadata.ExpiresAt.Before(now)
}

// Entry is the decrypted view, the only representation returned across the
// store boundary.
type Entry struct {
	ID       string      `json:"id"`
	Type     MemoryType  `json:"type"`
	Access   AccessLevel `json:"access"`
	Content  any         `json:"content"`
	Metadata Metadata    `json:"metadata"`
}

// StoreOptions carries the optional attributes of a Store or Update call.
type StoreOptions struct {
	// Access is the access-level tag. Defaults to private.
	Access AccessLevel

	// TTL is the sliding time-to-live. Zero means no sliding expiry.
	TTL time.Duration

	// ExpiresAt is an absolute expiration timestamp. Ignored when TTL is set.
	ExpiresAt *time.Time

	// Provenance records where the memory came from. Defaults to manual.
	Provenance Provenance

	// Confidence is a 0-1 score for inferred memories.
	Confidence float64

	// RelatedIDs are identifiers of related entries.
	RelatedIDs []string

	// Tags are free-form labels.
	Tags []string

	// Custom holds opaque caller-supplied metadata.
	Custom map[string]any
}

// Query selects entries for the Query operation. Structural criteria are
// applied before decryption; Search is applied to decrypted content.
type Query struct {
	// Types filters by memory type. Empty means all types.
	Types []MemoryType `json:"types,omitempty"`

	// Access filters by access level. Empty means all levels.
	Access AccessLevel `json:"access,omitempty"`

	// Tags requires every listed tag to be present on the entry.
	Tags []string `json:"tags,omitempty"`

	// CreatedAfter/CreatedBefore bound the creation timestamp.
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`

	// MinConfidence filters out entries below the confidence floor.
	MinConfidence float64 `json:"min_confidence,omitempty"`

	// IncludeExpired includes expired-but-not-yet-purged entries.
	IncludeExpired bool `json:"include_expired,omitempty"`

	// Search is a case-insensitive substring match against the decrypted
	// serialized content.
	Search string `json:"search,omitempty"`

	// Limit and Offset paginate the newest-first result set.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Stats summarizes one user's entries. Computed from metadata only, without
// decryption.
type Stats struct {
	TotalEntries    int                 `json:"total_entries"`
	ByType          map[MemoryType]int  `json:"by_type"`
	ByAccess        map[AccessLevel]int `json:"by_access"`
	TagCount        int                 `json:"tag_count"`
	ExpiredPending  int                 `json:"expired_pending"`
	OldestCreatedAt *time.Time          `json:"oldest_created_at,omitempty"`
	NewestCreatedAt *time.Time          `json:"newest_created_at,omitempty"`
}

// BackupVersion is the format version tag of exported backups.
const BackupVersion = "1"

// Backup is the result of Export and the input of Import.
type Backup struct {
	Version string   `json:"version"`
	Entries []*Entry `json:"entries"`
}

// ImportResult reports the outcome of a partial-failure-tolerant Import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
