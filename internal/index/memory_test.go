package index

import (
	"context"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/store/storetest"
)

func TestMemoryIndexContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Repository {
		return NewMemoryIndex()
	})
}

func TestNewMemoryIndex(t *testing.T) {
	index := NewMemoryIndex()
	if index == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	if index.Count() != 0 {
		t.Errorf("NewMemoryIndex() should start empty, got %v", index.Count())
	}
}

func TestGetRecordReturnsCopy(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	_, _ = index.InsertRecord(ctx, storetest.Record("id-1", domain.PlatformMicroblog, "1"))

	got, _ := index.GetRecord(ctx, "id-1")
	got.Tags = append(got.Tags, "mutated")

	again, _ := index.GetRecord(ctx, "id-1")
	if len(again.Tags) != 0 {
		t.Errorf("mutating a returned record leaked into the index: %v", again.Tags)
	}
}

func TestConcurrentInsertSameKey(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := storetest.Record(string(rune('a'+i%26))+string(rune('0'+i/26)), domain.PlatformMicroblog, "same")
			ok, _ := index.InsertRecord(ctx, rec)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("concurrent inserts stored %d records, want 1", inserted)
	}
	if index.Count() != 1 {
		t.Errorf("Count() = %d, want 1", index.Count())
	}
}
