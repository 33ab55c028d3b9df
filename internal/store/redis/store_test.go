package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store/storetest"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Repository {
		s, _ := newTestStore(t)
		return s
	})
}

func TestInsertRecordKeyLayout(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	rec := storetest.Record("id-1", domain.PlatformMicroblog, "42")
	if ok, err := s.InsertRecord(ctx, rec); err != nil || !ok {
		t.Fatalf("InsertRecord() = %v, %v", ok, err)
	}

	if !mr.Exists(RecordKey("id-1")) {
		t.Errorf("expected key %s", RecordKey("id-1"))
	}
	if got := mr.HGet(KeyDedup, "generic-microblog|42"); got != "id-1" {
		t.Errorf("dedup claim = %q, want id-1", got)
	}
	if ttl := mr.TTL(RecordKey("id-1")); ttl != 0 {
		t.Errorf("record TTL = %v, want none", ttl)
	}
	members, _ := mr.Members(KeyAllRecords)
	if len(members) != 1 || members[0] != "id-1" {
		t.Errorf("all set = %v, want [id-1]", members)
	}
}

func TestInsertRecordReleasesClaimOnIDCollision(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, _ = s.InsertRecord(ctx, storetest.Record("id-1", domain.PlatformMicroblog, "1"))

	ok, err := s.InsertRecord(ctx, storetest.Record("id-1", domain.PlatformMicroblog, "2"))
	if err != nil || ok {
		t.Fatalf("InsertRecord() = %v, %v, want false, nil", ok, err)
	}
	if mr.HGet(KeyDedup, "generic-microblog|2") != "" {
		t.Error("dedup claim was not released")
	}
}

func TestInsertRecordRollsBackOnIndexFailure(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	// A wrong-typed index key makes SADD fail after the record body is set.
	if err := mr.Set(KeyAllRecords, "not-a-set"); err != nil {
		t.Fatal(err)
	}
	rec := storetest.Record("id-1", domain.PlatformMicroblog, "1")
	if ok, err := s.InsertRecord(ctx, rec); err == nil || ok {
		t.Fatalf("InsertRecord() = %v, %v, want an error", ok, err)
	}
	if mr.Exists(RecordKey("id-1")) {
		t.Error("record body left behind")
	}
	if got := mr.HGet(KeyDedup, rec.DedupKey()); got != "" {
		t.Errorf("dedup claim left behind: %q", got)
	}

	mr.Del(KeyAllRecords)
	if ok, err := s.InsertRecord(ctx, rec); err != nil || !ok {
		t.Fatalf("retry InsertRecord() = %v, %v, want true, nil", ok, err)
	}
	all, err := s.AllRecords(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("AllRecords() = %d records, %v", len(all), err)
	}
}

func TestAllRecordsSkipsDanglingMembers(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, _ = s.InsertRecord(ctx, storetest.Record("id-1", domain.PlatformMicroblog, "1"))
	_, _ = mr.SetAdd(KeyAllRecords, "ghost")

	all, err := s.AllRecords(ctx)
	if err != nil {
		t.Fatalf("AllRecords() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("AllRecords() = %d records, want 1", len(all))
	}
}

func TestExtractRecordID(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "stash:record:abc", want: "abc"},
		{key: "stash:record:", wantErr: true},
		{key: "other:abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ExtractRecordID(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractRecordID(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractRecordID(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
