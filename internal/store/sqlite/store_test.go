package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store/storetest"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	db, err := Open(":memory:", time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s := NewStore(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Repository {
		return openMemory(t)
	})
}

func TestAllRecordsNewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	old := storetest.Record("old", domain.PlatformMicroblog, "1")
	recent := storetest.Record("new", domain.PlatformMicroblog, "2")
	recent.CapturedAt = old.CapturedAt.Add(time.Hour)

	_, _ = s.InsertRecord(ctx, old)
	_, _ = s.InsertRecord(ctx, recent)

	all, err := s.AllRecords(ctx)
	if err != nil {
		t.Fatalf("AllRecords() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != "new" {
		t.Errorf("AllRecords() order = %v", ids(all))
	}
}

func TestOpenFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stash.db")
	ctx := context.Background()

	db, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s := NewStore(db)
	_, _ = s.InsertRecord(ctx, storetest.Record("a", domain.PlatformLongVideo, "vid"))
	_ = s.Close()

	db, err = Open(path, time.Second)
	if err != nil {
		t.Fatalf("re-Open() error = %v", err)
	}
	s = NewStore(db)
	defer func() { _ = s.Close() }()

	got, err := s.GetRecord(ctx, "a")
	if err != nil {
		t.Fatalf("GetRecord() after reopen error = %v", err)
	}
	if got.ExternalID != "vid" {
		t.Errorf("ExternalID = %q, want vid", got.ExternalID)
	}
}

func ids(records []*domain.StoredRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
