package vault

import (
	"context"
	"sync"
	"time"
)

// AuditAction tags what a privileged operation did.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditRead   AuditAction = "read"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditSearch AuditAction = "search"
	AuditExport AuditAction = "export"
	AuditPurge  AuditAction = "purge"
)

// Audit log sizing. On overflow the oldest half is discarded.
const (
	auditMaxRecords  = 10000
	auditTruncateTo  = 5000
	entryIDPrefixLen = 8
)

// AuditRecord is one append-only forensic record. It never contains
// plaintext content or a full user identifier: the user is reduced to a
// short hash prefix and the entry id is truncated, so the log supports
// correlation without needing the confidentiality class of the memories it
// describes.
type AuditRecord struct {
	// Timestamp is when the operation completed.
	Timestamp time.Time `json:"timestamp"`

	// Action tags the operation.
	Action AuditAction `json:"action"`

	// UserPrefix is the first 16 hex characters of the user hash.
	UserPrefix string `json:"user_prefix"`

	// EntryID is the truncated target entry identifier, if any.
	EntryID string `json:"entry_id,omitempty"`

	// Type is the memory type involved, if known.
	Type MemoryType `json:"type,omitempty"`

	// Success reports whether the operation succeeded.
	Success bool `json:"success"`

	// Reason is the internal failure or denial reason, for operator
	// visibility only.
	Reason string `json:"reason,omitempty"`

	// Metadata holds structured extras such as result counts.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AuditLog is the append-only operation log. Records are held in memory,
// flushed to the backing store every flushEvery appends and unconditionally
// at Close, and pruned by age at Load.
type AuditLog struct {
	mu         sync.Mutex
	store      AuditStore
	enabled    bool
	retention  time.Duration
	flushEvery int

	records []AuditRecord
	pending int

	// onFlush is invoked after each successful flush, for instrumentation.
	onFlush func()
}

// NewAuditLog creates an audit log over the given store. A nil store or
// disabled flag yields a log that drops all records.
func NewAuditLog(store AuditStore, enabled bool, retentionDays, flushEvery int) *AuditLog {
	if flushEvery <= 0 {
		flushEvery = 100
	}
	return &AuditLog{
		store:      store,
		enabled:    enabled && store != nil,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		flushEvery: flushEvery,
	}
}

// Load reads the persisted log, dropping records older than the retention
// window.
func (a *AuditLog) Load(ctx context.Context) error {
	if !a.enabled {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.store.LoadAudit(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-a.retention)
	kept := records[:0]
	for _, r := range records {
		if a.retention > 0 && r.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	a.records = kept
	return nil
}

// Record appends one record, truncating on overflow and flushing every
// flushEvery appends. Append failures are swallowed: auditing must never
// fail the operation it describes.
func (a *AuditLog) Record(ctx context.Context, rec AuditRecord) {
	if !a.enabled {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if len(rec.EntryID) > entryIDPrefixLen {
		rec.EntryID = rec.EntryID[:entryIDPrefixLen]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = append(a.records, rec)
	if len(a.records) > auditMaxRecords {
		// Oldest-first discard down to the retained half.
		a.records = append(a.records[:0:0], a.records[len(a.records)-auditTruncateTo:]...)
	}

	a.pending++
	if a.pending >= a.flushEvery {
		a.flushLocked(ctx)
	}
}

// Flush persists the log immediately.
func (a *AuditLog) Flush(ctx context.Context) error {
	if !a.enabled {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(ctx)
}

func (a *AuditLog) flushLocked(ctx context.Context) error {
	if err := a.store.SaveAudit(ctx, a.records); err != nil {
		return err
	}
	a.pending = 0
	if a.onFlush != nil {
		a.onFlush()
	}
	return nil
}

// Records returns a copy of the in-memory log, newest last.
func (a *AuditLog) Records() []AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]AuditRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of in-memory records.
func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Close flushes the log unconditionally.
func (a *AuditLog) Close(ctx context.Context) error {
	return a.Flush(ctx)
}
