package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/storage"
	"github.com/MrSnakeDoc/stash/internal/syncer"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newEngine(t *testing.T, c *clock) *storage.Engine {
	t.Helper()
	return storage.New(index.NewMemoryIndex(), logger.New("error", false), storage.WithClock(c.now))
}

func insert(t *testing.T, e *storage.Engine, externalID string) *domain.StoredRecord {
	t.Helper()
	rec, err := e.Insert(context.Background(), &domain.CanonicalPost{
		ExternalID: externalID,
		Platform:   domain.PlatformMicroblog,
		Author:     domain.Author{Handle: "gopher"},
		Text:       "post " + externalID,
	})
	if err != nil || rec == nil {
		t.Fatalf("Insert(%s) = %v, %v", externalID, rec, err)
	}
	return rec
}

func TestGarbageCollector_Collect(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &clock{t: start}
	e := newEngine(t, c)

	active := insert(t, e, "active")
	old := insert(t, e, "old")
	recent := insert(t, e, "recent")

	if _, err := e.SetAvailable(ctx, old.ID, false); err != nil {
		t.Fatal(err)
	}
	c.t = start.Add(25 * 24 * time.Hour)
	if _, err := e.SetAvailable(ctx, recent.ID, false); err != nil {
		t.Fatal(err)
	}

	gc := NewGarbageCollector(e, logger.New("error", false), time.Hour, 30*24*time.Hour)
	gc.now = func() time.Time { return start.Add(35 * 24 * time.Hour) }

	deleted, err := gc.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Collect() deleted %d, want 1", deleted)
	}

	if _, err := e.Get(ctx, active.ID); err != nil {
		t.Error("Active record was incorrectly removed")
	}
	if _, err := e.Get(ctx, recent.ID); err != nil {
		t.Error("Recently soft-deleted record was incorrectly removed")
	}
	if _, err := e.Get(ctx, old.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Old soft-deleted record was not removed: %v", err)
	}
}

func TestGarbageCollectorDefaultThreshold(t *testing.T) {
	gc := NewGarbageCollector(nil, logger.Nop(), time.Hour, 0)
	if gc.threshold != DefaultGCThreshold {
		t.Errorf("threshold = %v, want %v", gc.threshold, DefaultGCThreshold)
	}
}

func writeCategories(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write categories file: %v", err)
	}
}

func TestCategoryReloader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "categories.yaml")
	writeCategories(t, path, "categories:\n  - name: Go\n    keywords: [Golang, gopher]\n")

	e := newEngine(t, &clock{t: time.Now()})
	trigger := make(chan struct{}, 1)
	cr := NewCategoryReloader(path, e, logger.New("error", false), time.Hour, trigger)

	if err := cr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer cr.Stop()

	got, err := e.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Go" || got[0].Keywords[0] != "golang" {
		t.Fatalf("Categories() after start = %+v", got)
	}

	if changed, err := cr.Reload(ctx); err != nil || changed {
		t.Errorf("Reload() of an unchanged file = %v, %v, want false, nil", changed, err)
	}

	writeCategories(t, path, "categories:\n  - name: Go\n    keywords: [golang]\n  - name: Music\n    keywords: [song]\n")
	trigger <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ = e.Categories(ctx)
		if len(got) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("manual trigger did not reload, categories = %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCategoryReloaderStartFails(t *testing.T) {
	e := newEngine(t, &clock{t: time.Now()})
	cr := NewCategoryReloader(filepath.Join(t.TempDir(), "missing.yaml"), e, logger.Nop(), time.Hour, nil)
	if err := cr.Start(context.Background()); err == nil {
		t.Fatal("Start() with a missing file should fail")
	}
}

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) Run(context.Context) (syncer.Result, error) {
	f.calls.Add(1)
	return syncer.Result{Pushed: 1}, f.err
}

func TestSyncJob(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "already running", err: syncer.ErrRunning},
		{name: "failure", err: fmt.Errorf("remote down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			r := &fakeRunner{err: tt.err}
			trigger := make(chan struct{})
			job := NewSyncJob(r, logger.Nop(), time.Hour, trigger)
			if err := job.Start(ctx); err != nil {
				t.Fatal(err)
			}
			defer job.Stop()

			// The send blocks until the loop, which ran the initial sync
			// first, receives it.
			trigger <- struct{}{}

			deadline := time.Now().Add(2 * time.Second)
			for r.calls.Load() < 2 {
				if time.Now().After(deadline) {
					t.Fatalf("runner called %d times, want 2", r.calls.Load())
				}
				time.Sleep(5 * time.Millisecond)
			}
		})
	}
}
