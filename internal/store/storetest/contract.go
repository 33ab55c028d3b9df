// Package storetest holds the behaviour every domain.Repository must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) domain.Repository

// Record builds a minimal valid record.
func Record(id string, platform domain.Platform, externalID string) *domain.StoredRecord {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &domain.StoredRecord{
		ID: id,
		CanonicalPost: domain.CanonicalPost{
			ExternalID: externalID,
			Platform:   platform,
			Author:     domain.Author{Handle: "gopher", DisplayName: "Gopher"},
			Text:       "text of " + externalID,
			CapturedAt: now,
		},
		Tags:        []string{},
		AutoTags:    []string{},
		IsAvailable: true,
		UpdatedAt:   now,
	}
	rec.Normalize()
	return rec
}

// Run exercises a repository implementation.
func Run(t *testing.T, newRepo Factory) {
	t.Run("insert and get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := Record("id-1", domain.PlatformMicroblog, "100")
		rec.Tags = []string{"AI"}
		ok, err := repo.InsertRecord(ctx, rec)
		if err != nil || !ok {
			t.Fatalf("InsertRecord() = %v, %v, want true, nil", ok, err)
		}

		got, err := repo.GetRecord(ctx, "id-1")
		if err != nil {
			t.Fatalf("GetRecord() error = %v", err)
		}
		if got.ExternalID != "100" || got.Platform != domain.PlatformMicroblog {
			t.Errorf("GetRecord() = %+v", got)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "AI" {
			t.Errorf("Tags = %v, want [AI]", got.Tags)
		}
		if !got.CapturedAt.Equal(rec.CapturedAt) {
			t.Errorf("CapturedAt = %v, want %v", got.CapturedAt, rec.CapturedAt)
		}
	})

	t.Run("dedup collision is skipped", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := Record("id-1", domain.PlatformMicroblog, "100")
		if _, err := repo.InsertRecord(ctx, first); err != nil {
			t.Fatalf("InsertRecord() error = %v", err)
		}

		second := Record("id-2", domain.PlatformMicroblog, "100")
		second.Text = "overwritten?"
		ok, err := repo.InsertRecord(ctx, second)
		if err != nil {
			t.Fatalf("InsertRecord() error = %v", err)
		}
		if ok {
			t.Fatal("InsertRecord() accepted a colliding dedup key")
		}

		all, _ := repo.AllRecords(ctx)
		if len(all) != 1 {
			t.Fatalf("AllRecords() = %d records, want 1", len(all))
		}
		if all[0].Text != first.Text {
			t.Errorf("first record was altered: text = %q", all[0].Text)
		}
		if _, err := repo.GetRecord(ctx, "id-2"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetRecord(id-2) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("same id on another platform is allowed", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, _ = repo.InsertRecord(ctx, Record("a", domain.PlatformMicroblog, "1"))
		ok, err := repo.InsertRecord(ctx, Record("b", domain.PlatformShortVideo, "1"))
		if err != nil || !ok {
			t.Fatalf("InsertRecord() = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("update and delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := Record("id-1", domain.PlatformPhotoShare, "abc")
		_, _ = repo.InsertRecord(ctx, rec)

		rec.Tags = []string{"Design"}
		if err := repo.UpdateRecord(ctx, rec); err != nil {
			t.Fatalf("UpdateRecord() error = %v", err)
		}
		got, _ := repo.GetRecord(ctx, "id-1")
		if len(got.Tags) != 1 || got.Tags[0] != "Design" {
			t.Errorf("Tags = %v, want [Design]", got.Tags)
		}

		missing := Record("nope", domain.PlatformPhotoShare, "zzz")
		if err := repo.UpdateRecord(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("UpdateRecord(missing) error = %v, want ErrNotFound", err)
		}

		if err := repo.DeleteRecord(ctx, "id-1"); err != nil {
			t.Fatalf("DeleteRecord() error = %v", err)
		}
		if err := repo.DeleteRecord(ctx, "id-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second DeleteRecord() error = %v, want ErrNotFound", err)
		}

		// The dedup key is released with the record.
		ok, err := repo.InsertRecord(ctx, Record("id-3", domain.PlatformPhotoShare, "abc"))
		if err != nil || !ok {
			t.Errorf("re-insert after delete = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, _ = repo.InsertRecord(ctx, Record("a", domain.PlatformMicroblog, "1"))
		_, _ = repo.InsertRecord(ctx, Record("b", domain.PlatformMicroblog, "2"))
		if err := repo.ClearRecords(ctx); err != nil {
			t.Fatalf("ClearRecords() error = %v", err)
		}
		all, _ := repo.AllRecords(ctx)
		if len(all) != 0 {
			t.Errorf("AllRecords() after clear = %d, want 0", len(all))
		}
		ok, _ := repo.InsertRecord(ctx, Record("c", domain.PlatformMicroblog, "1"))
		if !ok {
			t.Error("dedup key survived ClearRecords()")
		}
	})

	t.Run("meta", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		cats, err := repo.Categories(ctx)
		if err != nil || cats != nil {
			t.Fatalf("Categories() on empty store = %v, %v, want nil, nil", cats, err)
		}
		want := []domain.Category{{Name: "AI", Keywords: []string{"llm"}}}
		if err := repo.SaveCategories(ctx, want); err != nil {
			t.Fatalf("SaveCategories() error = %v", err)
		}
		cats, _ = repo.Categories(ctx)
		if len(cats) != 1 || cats[0].Name != "AI" || cats[0].Keywords[0] != "llm" {
			t.Errorf("Categories() = %v, want %v", cats, want)
		}

		settings, _ := repo.Settings(ctx)
		if !settings.AutoTag {
			t.Error("default settings should enable auto-tagging")
		}
		settings.AutoTag = false
		settings.SyncEndpoint = "https://sync.example"
		if err := repo.SaveSettings(ctx, settings); err != nil {
			t.Fatalf("SaveSettings() error = %v", err)
		}
		settings, _ = repo.Settings(ctx)
		if settings.AutoTag || settings.SyncEndpoint != "https://sync.example" {
			t.Errorf("Settings() = %+v", settings)
		}

		s := domain.SavedSearch{ID: "s1", Name: "ai posts", Query: "llm", CreatedAt: time.Now().UTC()}
		if err := repo.SaveSavedSearch(ctx, s); err != nil {
			t.Fatalf("SaveSavedSearch() error = %v", err)
		}
		s.Name = "renamed"
		_ = repo.SaveSavedSearch(ctx, s)
		list, _ := repo.SavedSearches(ctx)
		if len(list) != 1 || list[0].Name != "renamed" {
			t.Errorf("SavedSearches() = %+v, want one renamed entry", list)
		}
		if err := repo.DeleteSavedSearch(ctx, "s1"); err != nil {
			t.Errorf("DeleteSavedSearch() error = %v", err)
		}
		if err := repo.DeleteSavedSearch(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second DeleteSavedSearch() error = %v, want ErrNotFound", err)
		}
	})
}
