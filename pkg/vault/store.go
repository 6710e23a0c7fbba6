package vault

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memvault/memvault/config"
	"github.com/memvault/memvault/pkg/crypto"
)

// storeLogger is the minimal logger interface used by SecureStore.
type storeLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// nopLogger is a no-op logger.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

// Metrics is the minimal metrics interface used by SecureStore.
type Metrics interface {
	RecordOperation(operation string, success bool, duration time.Duration)
	RecordDedupHit()
	RecordDenied(reason string)
	RecordPurge(removed int, duration time.Duration)
	RecordAuditRecord()
	RecordAuditFlush()
	SetCacheHitRate(rate float64)
}

// nopMetrics is a no-op metrics recorder.
type nopMetrics struct{}

func (nopMetrics) RecordOperation(string, bool, time.Duration) {}
func (nopMetrics) RecordDedupHit()                             {}
func (nopMetrics) RecordDenied(string)                         {}
func (nopMetrics) RecordPurge(int, time.Duration)              {}
func (nopMetrics) RecordAuditRecord()                          {}
func (nopMetrics) RecordAuditFlush()                           {}
func (nopMetrics) SetCacheHitRate(float64)                     {}

// SecureStore is the concrete Vault implementation. A single RWMutex
// serializes every table mutation, including the purge sweep; persistence
// completes before any mutating call returns.
type SecureStore struct {
	mu sync.RWMutex

	cfg     *config.VaultConfig
	store   Store
	cache   *entryCache
	audit   *AuditLog
	limiter *failureLimiter
	metrics Metrics
	logger  storeLogger

	// Salts derived from the installation salt, one per purpose so the
	// key-derivation, identifier-hashing, and dedup domains never overlap.
	keySalt     []byte
	idSalt      []byte
	contentSalt []byte

	started     bool
	purgeCancel context.CancelFunc
	purgeDone   chan struct{}
}

// Option configures a SecureStore.
type Option func(*SecureStore)

// WithLogger sets the logger.
func WithLogger(l storeLogger) Option {
	return func(s *SecureStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(s *SecureStore) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewSecureStore creates a SecureStore over the given backend. The backend
// only ever sees ciphertext. When no installation salt is configured the
// development fallback is used and a warning is logged; production
// deployments are rejected earlier, at config validation.
func NewSecureStore(cfg *config.VaultConfig, store Store, opts ...Option) *SecureStore {
	s := &SecureStore{
		cfg:     cfg,
		store:   store,
		cache:   newEntryCache(cfg.CacheSize),
		limiter: newFailureLimiter(cfg.DecryptFailureRate, cfg.DecryptFailureBurst),
		metrics: nopMetrics{},
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	installSalt := cfg.InstallSalt
	if installSalt == "" {
		installSalt = config.DevInstallSalt
		s.logger.Warn("no installation salt configured, using development fallback")
	}
	s.keySalt = deriveSalt(installSalt, "kdf")
	s.idSalt = deriveSalt(installSalt, "uid")
	s.contentSalt = deriveSalt(installSalt, "content")

	s.audit = NewAuditLog(store, cfg.Audit.Enabled, cfg.Audit.RetentionDays, cfg.Audit.FlushEvery)
	s.audit.onFlush = s.metrics.RecordAuditFlush

	return s
}

// deriveSalt expands the installation salt into a purpose-bound salt.
func deriveSalt(installSalt, purpose string) []byte {
	sum := sha256.Sum256([]byte(installSalt + ":" + purpose))
	return sum[:]
}

// Start loads persisted state and begins the purge sweep. The first sweep
// runs immediately.
func (s *SecureStore) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if err := s.audit.Load(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("secure store started",
		"kdf_iterations", s.cfg.KDFIterations,
		"purge_interval", s.cfg.PurgeInterval,
		"max_entries_per_user", s.cfg.MaxEntriesPerUser,
		"audit_enabled", s.cfg.Audit.Enabled,
	)

	s.sweep(ctx)

	purgeCtx, cancel := context.WithCancel(context.Background())
	s.purgeCancel = cancel
	s.purgeDone = make(chan struct{})

	interval := s.cfg.PurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		defer close(s.purgeDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep(purgeCtx)
			case <-purgeCtx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop halts the purge sweep and flushes the audit log.
func (s *SecureStore) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.purgeCancel
	done := s.purgeDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if err := s.audit.Close(ctx); err != nil {
		s.logger.Error("audit flush on shutdown failed", "error", err)
		return err
	}
	s.logger.Info("secure store stopped")
	return nil
}

// Store encrypts and persists content, deduplicating against existing
// entries for the same user.
func (s *SecureStore) Store(ctx context.Context, userID, masterKey string, typ MemoryType, content any, opts *StoreOptions) (string, error) {
	start := time.Now()
	if err := s.checkArgs(userID, masterKey); err != nil {
		return "", err
	}
	if opts == nil {
		opts = &StoreOptions{}
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", ErrNotInitialized
	}

	// The per-user cap is checked before deduplication; no automatic
	// eviction is performed.
	if s.cfg.MaxEntriesPerUser > 0 {
		count, err := s.store.CountByUser(ctx, userHash)
		if err != nil {
			s.record(ctx, AuditCreate, userHash, "", typ, false, "storage error", nil)
			s.metrics.RecordOperation("store", false, time.Since(start))
			return "", err
		}
		if count >= s.cfg.MaxEntriesPerUser {
			s.record(ctx, AuditCreate, userHash, "", typ, false, "entry limit exceeded", nil)
			s.metrics.RecordOperation("store", false, time.Since(start))
			return "", ErrEntryLimitExceeded
		}
	}

	key := s.deriveKey(masterKey)
	defer crypto.Zeroize(key)

	plaintext, err := json.Marshal(content)
	if err != nil {
		s.record(ctx, AuditCreate, userHash, "", typ, false, "serialization failed", nil)
		s.metrics.RecordOperation("store", false, time.Since(start))
		return "", &SerializationError{Operation: "marshal", Cause: err}
	}
	contentHash := crypto.ContentHash(plaintext, s.contentSalt)

	// Identical content for the same user updates the existing entry
	// instead of creating a duplicate.
	existing, err := s.findByContentHash(ctx, userHash, contentHash)
	if err != nil {
		s.record(ctx, AuditCreate, userHash, "", typ, false, "storage error", nil)
		s.metrics.RecordOperation("store", false, time.Since(start))
		return "", err
	}
	if existing != nil {
		if err := s.applyUpdate(ctx, existing, key, plaintext, contentHash, typ, opts); err != nil {
			s.metrics.RecordOperation("store", false, time.Since(start))
			return "", err
		}
		s.metrics.RecordDedupHit()
		s.metrics.RecordOperation("store", true, time.Since(start))
		return existing.ID, nil
	}

	ciphertext, nonce, tag, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		s.record(ctx, AuditCreate, userHash, "", typ, false, "encryption failed", nil)
		s.metrics.RecordOperation("store", false, time.Since(start))
		return "", err
	}

	now := time.Now()
	entry := &EncryptedEntry{
		ID:          uuid.New().String(),
		UserHash:    userHash,
		Type:        typ,
		Access:      opts.Access,
		Ciphertext:  ciphertext,
		Nonce:       nonce,
		Tag:         tag,
		ContentHash: contentHash,
		Metadata: Metadata{
			CreatedAt:      now,
			LastAccessedAt: now,
			ModifiedAt:     now,
			AccessCount:    0,
			TTLSeconds:     int64(opts.TTL.Seconds()),
			Provenance:     opts.Provenance,
			Confidence:     opts.Confidence,
			RelatedIDs:     opts.RelatedIDs,
			Tags:           opts.Tags,
			Custom:         opts.Custom,
		},
	}
	if entry.Access == "" {
		entry.Access = AccessPrivate
	}
	if entry.Metadata.Provenance == "" {
		entry.Metadata.Provenance = ProvenanceManual
	}
	if opts.TTL > 0 {
		expiry := now.Add(opts.TTL)
		entry.Metadata.ExpiresAt = &expiry
	} else if opts.ExpiresAt != nil {
		expiry := *opts.ExpiresAt
		entry.Metadata.ExpiresAt = &expiry
	}

	if err := s.putEntry(ctx, entry); err != nil {
		s.record(ctx, AuditCreate, userHash, entry.ID, typ, false, "storage error", nil)
		s.metrics.RecordOperation("store", false, time.Since(start))
		return "", err
	}

	s.record(ctx, AuditCreate, userHash, entry.ID, typ, true, "", nil)
	s.metrics.RecordOperation("store", true, time.Since(start))
	return entry.ID, nil
}

// Retrieve decrypts one entry by id. An absent entry, a foreign owner, an
// expired entry, and a failed decryption are indistinguishable to the
// caller; the audit log records the internal reason.
func (s *SecureStore) Retrieve(ctx context.Context, userID, masterKey, id string) (*Entry, error) {
	start := time.Now()
	if err := s.checkArgs(userID, masterKey); err != nil {
		return nil, err
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotInitialized
	}

	deny := func(reason string) (*Entry, error) {
		s.record(ctx, AuditRead, userHash, id, "", false, reason, nil)
		s.metrics.RecordDenied(reason)
		s.metrics.RecordOperation("retrieve", false, time.Since(start))
		return nil, ErrNotFound
	}

	if s.limiter.blocked(userHash) {
		return deny("throttled")
	}

	// Keys are scoped by owner hash, so a foreign entry is structurally
	// absent here; ownership mismatch and absence share one path.
	entry, err := s.getEntry(ctx, userHash, id)
	if err != nil {
		return deny("not found")
	}
	now := time.Now()
	if entry.IsExpired(now) {
		return deny("expired")
	}

	key := s.deriveKey(masterKey)
	defer crypto.Zeroize(key)

	plaintext, err := crypto.Decrypt(key, entry.Ciphertext, entry.Nonce, entry.Tag)
	if err != nil {
		s.limiter.penalize(userHash)
		return deny("decryption failed")
	}

	var content any
	if err := json.Unmarshal(plaintext, &content); err != nil {
		return deny("deserialization failed")
	}

	// The access bump is applied to a copy; the cached entry must keep
	// matching the backend if the persist fails.
	updated := *entry
	updated.Metadata.AccessCount++
	updated.Metadata.LastAccessedAt = now
	if updated.Metadata.TTLSeconds > 0 {
		expiry := now.Add(time.Duration(updated.Metadata.TTLSeconds) * time.Second)
		updated.Metadata.ExpiresAt = &expiry
	}
	if err := s.putEntry(ctx, &updated); err != nil {
		s.logger.Error("failed to persist access metadata", "error", err)
	}

	s.record(ctx, AuditRead, userHash, id, updated.Type, true, "", nil)
	s.metrics.RecordOperation("retrieve", true, time.Since(start))
	return s.decryptedView(&updated, content), nil
}

// Query returns the user's entries matching the criteria, newest first.
// Structural criteria are applied before decryption; the key is derived once
// for the whole call.
func (s *SecureStore) Query(ctx context.Context, userID, masterKey string, q Query) ([]*Entry, error) {
	start := time.Now()
	if err := s.checkArgs(userID, masterKey); err != nil {
		return nil, err
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotInitialized
	}

	page, total, err := s.queryEntries(ctx, userHash, masterKey, q)
	if err != nil {
		s.record(ctx, AuditSearch, userHash, "", "", false, "storage error", nil)
		s.metrics.RecordOperation("query", false, time.Since(start))
		return nil, err
	}

	// The audit record carries counts only, never the query text.
	s.record(ctx, AuditSearch, userHash, "", "", true, "", map[string]any{
		"results": len(page),
		"total":   total,
	})
	s.metrics.RecordOperation("query", true, time.Since(start))
	return page, nil
}

// queryEntries is the shared filter/decrypt/sort/paginate path of Query and
// Export. It performs no audit logging of its own.
func (s *SecureStore) queryEntries(ctx context.Context, userHash, masterKey string, q Query) ([]*Entry, int, error) {
	candidates, err := s.store.ListByUser(ctx, userHash)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	structural := candidates[:0]
	for _, entry := range candidates {
		if !q.IncludeExpired && entry.IsExpired(now) {
			continue
		}
		if len(q.Types) > 0 && !containsType(q.Types, entry.Type) {
			continue
		}
		if q.Access != "" && entry.Access != q.Access {
			continue
		}
		if len(q.Tags) > 0 && !containsAllTags(entry.Metadata.Tags, q.Tags) {
			continue
		}
		if q.CreatedAfter != nil && entry.Metadata.CreatedAt.Before(*q.CreatedAfter) {
			continue
		}
		if q.CreatedBefore != nil && entry.Metadata.CreatedAt.After(*q.CreatedBefore) {
			continue
		}
		if q.MinConfidence > 0 && entry.Metadata.Confidence < q.MinConfidence {
			continue
		}
		structural = append(structural, entry)
	}

	key := s.deriveKey(masterKey)
	defer crypto.Zeroize(key)

	search := strings.ToLower(q.Search)
	matches := make([]*Entry, 0, len(structural))
	for _, entry := range structural {
		plaintext, err := crypto.Decrypt(key, entry.Ciphertext, entry.Nonce, entry.Tag)
		if err != nil {
			// Undecryptable candidates are skipped, not errors.
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(string(plaintext)), search) {
			continue
		}
		var content any
		if err := json.Unmarshal(plaintext, &content); err != nil {
			continue
		}
		matches = append(matches, s.decryptedView(entry, content))
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Metadata.CreatedAt.After(matches[j].Metadata.CreatedAt)
	})

	total := len(matches)
	if q.Offset > 0 {
		if q.Offset >= total {
			return []*Entry{}, total, nil
		}
		matches = matches[q.Offset:]
	}
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, total, nil
}

// Update re-encrypts an entry with new content under a fresh nonce.
func (s *SecureStore) Update(ctx context.Context, userID, masterKey, id string, content any, opts *StoreOptions) error {
	start := time.Now()
	if err := s.checkArgs(userID, masterKey); err != nil {
		return err
	}
	if opts == nil {
		opts = &StoreOptions{}
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotInitialized
	}

	entry, err := s.getEntry(ctx, userHash, id)
	if err != nil {
		s.record(ctx, AuditUpdate, userHash, id, "", false, "not found", nil)
		s.metrics.RecordOperation("update", false, time.Since(start))
		return ErrNotFound
	}

	key := s.deriveKey(masterKey)
	defer crypto.Zeroize(key)

	plaintext, err := json.Marshal(content)
	if err != nil {
		s.record(ctx, AuditUpdate, userHash, id, entry.Type, false, "serialization failed", nil)
		s.metrics.RecordOperation("update", false, time.Since(start))
		return &SerializationError{Operation: "marshal", Cause: err}
	}
	contentHash := crypto.ContentHash(plaintext, s.contentSalt)

	if err := s.applyUpdate(ctx, entry, key, plaintext, contentHash, entry.Type, opts); err != nil {
		s.metrics.RecordOperation("update", false, time.Since(start))
		return err
	}
	s.metrics.RecordOperation("update", true, time.Since(start))
	return nil
}

// applyUpdate re-encrypts content into an existing entry and applies
// requested metadata changes. Ciphertext, nonce, and tag are replaced
// together. Called with the table lock held; shared by Update and the dedup
// branch of Store.
func (s *SecureStore) applyUpdate(ctx context.Context, entry *EncryptedEntry, key, plaintext []byte, contentHash string, typ MemoryType, opts *StoreOptions) error {
	ciphertext, nonce, tag, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		s.record(ctx, AuditUpdate, entry.UserHash, entry.ID, entry.Type, false, "encryption failed", nil)
		return err
	}

	now := time.Now()
	entry.Ciphertext = ciphertext
	entry.Nonce = nonce
	entry.Tag = tag
	entry.ContentHash = contentHash
	entry.Metadata.ModifiedAt = now
	if typ != "" {
		entry.Type = typ
	}
	if opts.Access != "" {
		entry.Access = opts.Access
	}
	if opts.Tags != nil {
		entry.Metadata.Tags = opts.Tags
	}
	if opts.RelatedIDs != nil {
		entry.Metadata.RelatedIDs = opts.RelatedIDs
	}
	if opts.Custom != nil {
		entry.Metadata.Custom = opts.Custom
	}
	if opts.Confidence > 0 {
		entry.Metadata.Confidence = opts.Confidence
	}
	if opts.Provenance != "" {
		entry.Metadata.Provenance = opts.Provenance
	}
	if opts.TTL > 0 {
		entry.Metadata.TTLSeconds = int64(opts.TTL.Seconds())
		expiry := now.Add(opts.TTL)
		entry.Metadata.ExpiresAt = &expiry
	} else if opts.ExpiresAt != nil {
		entry.Metadata.TTLSeconds = 0
		expiry := *opts.ExpiresAt
		entry.Metadata.ExpiresAt = &expiry
	}

	if err := s.putEntry(ctx, entry); err != nil {
		s.record(ctx, AuditUpdate, entry.UserHash, entry.ID, entry.Type, false, "storage error", nil)
		return err
	}

	s.record(ctx, AuditUpdate, entry.UserHash, entry.ID, entry.Type, true, "", nil)
	return nil
}

// Delete removes one entry owned by the user.
func (s *SecureStore) Delete(ctx context.Context, userID, id string) error {
	start := time.Now()
	if userID == "" {
		return ErrInvalidUserID
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotInitialized
	}

	entry, err := s.getEntry(ctx, userHash, id)
	if err != nil {
		s.record(ctx, AuditDelete, userHash, id, "", false, "not found", nil)
		s.metrics.RecordOperation("delete", false, time.Since(start))
		return ErrNotFound
	}

	if err := s.removeEntry(ctx, userHash, id); err != nil {
		s.record(ctx, AuditDelete, userHash, id, entry.Type, false, "storage error", nil)
		s.metrics.RecordOperation("delete", false, time.Since(start))
		return err
	}

	s.record(ctx, AuditDelete, userHash, id, entry.Type, true, "", nil)
	s.metrics.RecordOperation("delete", true, time.Since(start))
	return nil
}

// DeleteAll removes every entry owned by the user and returns the count.
func (s *SecureStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	if userID == "" {
		return 0, ErrInvalidUserID
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return 0, ErrNotInitialized
	}

	entries, err := s.store.ListByUser(ctx, userHash)
	if err != nil {
		s.record(ctx, AuditPurge, userHash, "", "", false, "storage error", nil)
		s.metrics.RecordOperation("delete_all", false, time.Since(start))
		return 0, err
	}
	for _, entry := range entries {
		s.cache.delete(cacheKey(userHash, entry.ID))
	}

	count, err := s.store.DeleteByUser(ctx, userHash)
	if err != nil {
		s.record(ctx, AuditPurge, userHash, "", "", false, "storage error", nil)
		s.metrics.RecordOperation("delete_all", false, time.Since(start))
		return 0, err
	}

	s.record(ctx, AuditPurge, userHash, "", "", true, "", map[string]any{"removed": count})
	s.metrics.RecordOperation("delete_all", true, time.Since(start))
	return count, nil
}

// GetStats aggregates the user's entries from metadata alone, without any
// decryption.
func (s *SecureStore) GetStats(ctx context.Context, userID string) (*Stats, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotInitialized
	}

	entries, err := s.store.ListByUser(ctx, userHash)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalEntries: len(entries),
		ByType:       make(map[MemoryType]int),
		ByAccess:     make(map[AccessLevel]int),
	}
	now := time.Now()
	tags := make(map[string]struct{})
	for _, entry := range entries {
		stats.ByType[entry.Type]++
		stats.ByAccess[entry.Access]++
		for _, tag := range entry.Metadata.Tags {
			tags[tag] = struct{}{}
		}
		if entry.IsExpired(now) {
			stats.ExpiredPending++
		}
		created := entry.Metadata.CreatedAt
		if stats.OldestCreatedAt == nil || created.Before(*stats.OldestCreatedAt) {
			c := created
			stats.OldestCreatedAt = &c
		}
		if stats.NewestCreatedAt == nil || created.After(*stats.NewestCreatedAt) {
			c := created
			stats.NewestCreatedAt = &c
		}
	}
	stats.TagCount = len(tags)
	return stats, nil
}

// Export returns all of the user's entries, including expired ones, fully
// decrypted, with a format version tag.
func (s *SecureStore) Export(ctx context.Context, userID, masterKey string) (*Backup, error) {
	start := time.Now()
	if err := s.checkArgs(userID, masterKey); err != nil {
		return nil, err
	}
	userHash := crypto.HashUserID(userID, s.idSalt)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotInitialized
	}

	entries, _, err := s.queryEntries(ctx, userHash, masterKey, Query{IncludeExpired: true})
	if err != nil {
		s.record(ctx, AuditExport, userHash, "", "", false, "storage error", nil)
		s.metrics.RecordOperation("export", false, time.Since(start))
		return nil, err
	}

	s.record(ctx, AuditExport, userHash, "", "", true, "", map[string]any{"count": len(entries)})
	s.metrics.RecordOperation("export", true, time.Since(start))
	return &Backup{Version: BackupVersion, Entries: entries}, nil
}

// Import re-inserts backup entries with provenance forced to imported.
// Individual failures are counted as skipped rather than aborting the batch.
func (s *SecureStore) Import(ctx context.Context, userID, masterKey string, backup *Backup) (*ImportResult, error) {
	if backup == nil {
		return &ImportResult{}, nil
	}
	result := &ImportResult{}
	for _, entry := range backup.Entries {
		if entry == nil {
			result.Skipped++
			continue
		}
		opts := &StoreOptions{
			Access:     entry.Access,
			Provenance: ProvenanceImported,
			Confidence: entry.Metadata.Confidence,
			RelatedIDs: entry.Metadata.RelatedIDs,
			Tags:       entry.Metadata.Tags,
			Custom:     entry.Metadata.Custom,
		}
		if entry.Metadata.TTLSeconds > 0 {
			opts.TTL = time.Duration(entry.Metadata.TTLSeconds) * time.Second
		} else if entry.Metadata.ExpiresAt != nil {
			opts.ExpiresAt = entry.Metadata.ExpiresAt
		}
		if _, err := s.Store(ctx, userID, masterKey, entry.Type, entry.Content, opts); err != nil {
			result.Skipped++
			continue
		}
		result.Imported++
	}
	return result, nil
}

// sweep removes expired entries. It inspects only metadata, requires no
// master key, and swallows its own errors: maintenance must not crash the
// store.
func (s *SecureStore) sweep(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.All(ctx)
	if err != nil {
		s.logger.Warn("purge sweep failed to list entries", "error", err)
		return
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if !entry.IsExpired(now) {
			continue
		}
		if err := s.removeEntry(ctx, entry.UserHash, entry.ID); err != nil {
			s.logger.Warn("purge sweep failed to remove entry", "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.record(ctx, AuditPurge, "", "", "", true, "", map[string]any{"removed": removed})
		s.logger.Info("purge sweep removed expired entries", "removed", removed)
	}

	if rate, total := s.cache.hitRate(); total > 0 {
		s.metrics.SetCacheHitRate(rate)
	}
	s.metrics.RecordPurge(removed, time.Since(start))
}

// Audit returns the audit log for forensic review.
func (s *SecureStore) Audit() *AuditLog {
	return s.audit
}

// --- internal helpers ---

func (s *SecureStore) checkArgs(userID, masterKey string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	if masterKey == "" {
		return ErrInvalidMasterKey
	}
	return nil
}

// deriveKey re-derives the encryption key for one operation. The caller
// must Zeroize the result on every exit path.
func (s *SecureStore) deriveKey(masterKey string) []byte {
	return crypto.DeriveKey(masterKey, s.keySalt, s.cfg.KDFIterations)
}

// getEntry reads through the cache to the backend.
func (s *SecureStore) getEntry(ctx context.Context, userHash, id string) (*EncryptedEntry, error) {
	ck := cacheKey(userHash, id)
	if entry, ok := s.cache.get(ck); ok {
		return entry, nil
	}
	entry, err := s.store.Get(ctx, userHash, id)
	if err != nil {
		return nil, err
	}
	s.cache.put(ck, entry)
	return entry, nil
}

// putEntry persists to the backend before updating the cache, so a caller
// never observes a cached state that did not reach storage.
func (s *SecureStore) putEntry(ctx context.Context, entry *EncryptedEntry) error {
	if err := s.store.Put(ctx, entry); err != nil {
		return err
	}
	s.cache.put(cacheKey(entry.UserHash, entry.ID), entry)
	return nil
}

func (s *SecureStore) removeEntry(ctx context.Context, userHash, id string) error {
	s.cache.delete(cacheKey(userHash, id))
	return s.store.Delete(ctx, userHash, id)
}

// findByContentHash scans one user's entries for a dedup match. Expired
// entries are treated as absent; matching one would hand back an id that
// Retrieve immediately rejects.
func (s *SecureStore) findByContentHash(ctx context.Context, userHash, contentHash string) (*EncryptedEntry, error) {
	entries, err := s.store.ListByUser(ctx, userHash)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.ContentHash == contentHash && !entry.IsExpired(now) {
			return entry, nil
		}
	}
	return nil, nil
}

// record appends one audit record. The user hash is reduced to its prefix
// here so full hashes never reach the log.
func (s *SecureStore) record(ctx context.Context, action AuditAction, userHash, entryID string, typ MemoryType, success bool, reason string, meta map[string]any) {
	s.audit.Record(ctx, AuditRecord{
		Action:     action,
		UserPrefix: crypto.UserHashPrefix(userHash),
		EntryID:    entryID,
		Type:       typ,
		Success:    success,
		Reason:     reason,
		Metadata:   meta,
	})
	s.metrics.RecordAuditRecord()
}

func (s *SecureStore) decryptedView(entry *EncryptedEntry, content any) *Entry {
	return &Entry{
		ID:       entry.ID,
		Type:     entry.Type,
		Access:   entry.Access,
		Content:  content,
		Metadata: entry.Metadata,
	}
}

func containsType(types []MemoryType, t MemoryType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, tag := range have {
		set[tag] = struct{}{}
	}
	for _, tag := range want {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}

var _ Vault = (*SecureStore)(nil)
