package backup

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

func newEngine(at time.Time) *storage.Engine {
	return storage.New(index.NewMemoryIndex(), logger.New("error", false),
		storage.WithClock(func() time.Time { return at }))
}

func seed(t *testing.T, e *storage.Engine) {
	t.Helper()
	ctx := context.Background()
	for i, text := range []string{"first post", "second post"} {
		at := time.Date(2024, 5, 1+i, 8, 0, 0, 0, time.UTC)
		rec, err := e.Insert(ctx, &domain.CanonicalPost{
			ExternalID: string(rune('a' + i)),
			Platform:   domain.PlatformMicroblog,
			Author:     domain.Author{Handle: "gopher"},
			Text:       text,
			CapturedAt: at,
		})
		if err != nil || rec == nil {
			t.Fatalf("Insert() = %v, %v", rec, err)
		}
		if _, err := e.UpdateTags(ctx, rec.ID, []string{"keep"}); err != nil {
			t.Fatalf("UpdateTags() error = %v", err)
		}
	}
	if _, err := e.SaveCategories(ctx, []domain.Category{{Name: "Go", Keywords: []string{"golang"}}}); err != nil {
		t.Fatalf("SaveCategories() error = %v", err)
	}
	if _, err := e.SaveSearch(ctx, domain.SavedSearch{ID: "s1", Name: "posts", Query: "post"}); err != nil {
		t.Fatalf("SaveSearch() error = %v", err)
	}
	settings := domain.DefaultSettings()
	settings.AutoTag = false
	if _, err := e.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
}

func TestBuildRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	src := newEngine(now)
	seed(t, src)

	doc, err := Build(ctx, src, now)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if doc.Version != Version || !doc.ExportedAt.Equal(now) {
		t.Errorf("header = %d %v", doc.Version, doc.ExportedAt)
	}
	if len(doc.Records) != 2 || doc.Records[0].Text != "second post" {
		t.Fatalf("Records not newest first: %+v", doc.Records)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	dst := newEngine(now)
	sum, err := Restore(ctx, dst, decoded)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if sum.Records.Added != 2 || !sum.Settings || sum.Categories != 1 || sum.SavedSearches != 1 {
		t.Errorf("Summary = %+v", sum)
	}

	for _, want := range doc.Records {
		got, err := dst.Get(ctx, want.ID)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", want.ID, err)
		}
		if got.Text != want.Text || !got.CapturedAt.Equal(want.CapturedAt) {
			t.Errorf("record %s = %+v", want.ID, got)
		}
		if len(got.Tags) != 1 || got.Tags[0] != "keep" {
			t.Errorf("Tags = %v", got.Tags)
		}
	}

	settings, _ := dst.Settings(ctx)
	if settings.AutoTag {
		t.Error("settings were not restored")
	}

	again, err := Restore(ctx, dst, decoded)
	if err != nil {
		t.Fatalf("second Restore() error = %v", err)
	}
	if again.Records.Added != 0 || again.Records.Duplicates != 2 {
		t.Errorf("second restore = %+v, want only duplicates", again.Records)
	}
}

func TestRestoreRejectsVersions(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
	}{
		{"nil", nil},
		{"missing version", &Document{}},
		{"newer version", &Document{Version: Version + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(context.Background(), newEngine(time.Now()), tt.doc)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("Restore() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"{", `{"version": 99}`, `[]`} {
		if _, err := Decode(strings.NewReader(in)); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidRequest", in, err)
		}
	}
}

func TestRestoreKeepsMissingSections(t *testing.T) {
	ctx := context.Background()
	e := newEngine(time.Now())
	seed(t, e)

	sum, err := Restore(ctx, e, &Document{Version: Version})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if sum.Settings || sum.Categories != 0 {
		t.Errorf("Summary = %+v", sum)
	}
	cats, _ := e.Categories(ctx)
	if len(cats) != 1 || cats[0].Name != "Go" {
		t.Errorf("categories changed: %+v", cats)
	}
}
