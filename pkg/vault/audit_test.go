package vault

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestAuditLog_FlushEvery(t *testing.T) {
	backend := NewMemoryStore()
	defer backend.Close() //nolint:errcheck
	ctx := context.Background()

	log := NewAuditLog(backend, true, 90, 3)
	if err := log.Load(ctx); err != nil {
		t.Fatal(err)
	}

	log.Record(ctx, AuditRecord{Action: AuditCreate, UserPrefix: "abc", Success: true})
	log.Record(ctx, AuditRecord{Action: AuditRead, UserPrefix: "abc", Success: true})

	// Below the flush threshold nothing is persisted yet.
	persisted, err := backend.LoadAudit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 0 {
		t.Fatalf("expected no persisted records before flush, got %d", len(persisted))
	}

	// The third append crosses the threshold.
	log.Record(ctx, AuditRecord{Action: AuditDelete, UserPrefix: "abc", Success: true})
	persisted, err = backend.LoadAudit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 3 {
		t.Fatalf("expected 3 persisted records after flush, got %d", len(persisted))
	}
}

func TestAuditLog_CloseFlushes(t *testing.T) {
	backend := NewMemoryStore()
	defer backend.Close() //nolint:errcheck
	ctx := context.Background()

	log := NewAuditLog(backend, true, 90, 100)
	log.Record(ctx, AuditRecord{Action: AuditCreate, UserPrefix: "abc", Success: true})

	if err := log.Close(ctx); err != nil {
		t.Fatal(err)
	}
	persisted, err := backend.LoadAudit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected 1 persisted record after close, got %d", len(persisted))
	}
}

func TestAuditLog_RetentionAtLoad(t *testing.T) {
	backend := NewMemoryStore()
	defer backend.Close() //nolint:errcheck
	ctx := context.Background()

	old := AuditRecord{Timestamp: time.Now().Add(-100 * 24 * time.Hour), Action: AuditCreate, UserPrefix: "old"}
	fresh := AuditRecord{Timestamp: time.Now(), Action: AuditCreate, UserPrefix: "new"}
	if err := backend.SaveAudit(ctx, []AuditRecord{old, fresh}); err != nil {
		t.Fatal(err)
	}

	log := NewAuditLog(backend, true, 90, 100)
	if err := log.Load(ctx); err != nil {
		t.Fatal(err)
	}
	records := log.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record after retention pruning, got %d", len(records))
	}
	if records[0].UserPrefix != "new" {
		t.Fatalf("expected the fresh record to survive, got %+v", records[0])
	}
}

func TestAuditLog_OverflowTruncation(t *testing.T) {
	backend := NewMemoryStore()
	defer backend.Close() //nolint:errcheck
	ctx := context.Background()

	log := NewAuditLog(backend, true, 90, auditMaxRecords*2)
	for i := 0; i <= auditMaxRecords; i++ {
		log.Record(ctx, AuditRecord{Action: AuditCreate, UserPrefix: fmt.Sprintf("%d", i)})
	}

	if log.Len() != auditTruncateTo {
		t.Fatalf("expected %d records after truncation, got %d", auditTruncateTo, log.Len())
	}
	// The survivors are the most recent ones.
	records := log.Records()
	if records[len(records)-1].UserPrefix != fmt.Sprintf("%d", auditMaxRecords) {
		t.Fatalf("expected newest record to survive, got %+v", records[len(records)-1])
	}
}

func TestAuditLog_TruncatesEntryID(t *testing.T) {
	backend := NewMemoryStore()
	defer backend.Close() //nolint:errcheck
	ctx := context.Background()

	log := NewAuditLog(backend, true, 90, 100)
	log.Record(ctx, AuditRecord{Action: AuditRead, EntryID: "0123456789abcdef-full-uuid"})

	records := log.Records()
	if records[0].EntryID != "01234567" {
		t.Fatalf("expected truncated entry id, got %q", records[0].EntryID)
	}
}

func TestAuditLog_Disabled(t *testing.T) {
	backend := NewMemoryStore()
	defer backend.Close() //nolint:errcheck
	ctx := context.Background()

	log := NewAuditLog(backend, false, 90, 1)
	log.Record(ctx, AuditRecord{Action: AuditCreate})

	if log.Len() != 0 {
		t.Fatalf("disabled log must drop records, got %d", log.Len())
	}
	persisted, err := backend.LoadAudit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 0 {
		t.Fatalf("disabled log must not persist, got %d", len(persisted))
	}
}
