// Package backup builds and restores full-fidelity JSON exports of a
// collection: records, settings, categories and saved searches.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

// Version is the newest export format this build understands.
const Version = 1

// Document is the export file.
type Document struct {
	Version       int                    `json:"version"`
	ExportedAt    time.Time              `json:"exportedAt"`
	Records       []*domain.StoredRecord `json:"records"`
	Settings      *domain.Settings       `json:"settings,omitempty"`
	Categories    []domain.Category      `json:"categories"`
	SavedSearches []domain.SavedSearch   `json:"savedSearches"`
}

// Source is what Build reads from. *storage.Engine implements it.
type Source interface {
	All(ctx context.Context) ([]*domain.StoredRecord, error)
	Settings(ctx context.Context) (domain.Settings, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	SavedSearches(ctx context.Context) ([]domain.SavedSearch, error)
}

// Target is what Restore writes to. *storage.Engine implements it.
type Target interface {
	ImportRecords(ctx context.Context, records []*domain.StoredRecord, preserveIDs bool) storage.InsertSummary
	SaveSettings(ctx context.Context, s domain.Settings) (domain.Settings, error)
	SaveCategories(ctx context.Context, categories []domain.Category) ([]domain.Category, error)
	SaveSearch(ctx context.Context, s domain.SavedSearch) (*domain.SavedSearch, error)
}

// Build snapshots src. Records are ordered newest capture first.
func Build(ctx context.Context, src Source, now time.Time) (*Document, error) {
	records, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("export records: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CapturedAt.Equal(records[j].CapturedAt) {
			return records[i].CapturedAt.After(records[j].CapturedAt)
		}
		return records[i].ID < records[j].ID
	})

	settings, err := src.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	categories, err := src.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}
	searches, err := src.SavedSearches(ctx)
	if err != nil {
		return nil, fmt.Errorf("export saved searches: %w", err)
	}
	if searches == nil {
		searches = []domain.SavedSearch{}
	}

	return &Document{
		Version:       Version,
		ExportedAt:    now.UTC(),
		Records:       records,
		Settings:      &settings,
		Categories:    categories,
		SavedSearches: searches,
	}, nil
}

// Summary reports what Restore did.
type Summary struct {
	Records       storage.InsertSummary `json:"records"`
	Settings      bool                  `json:"settings"`
	Categories    int                   `json:"categories"`
	SavedSearches int                   `json:"savedSearches"`
}

// Restore loads doc into dst. Record IDs are preserved and records whose
// dedup key already exists are counted as duplicates. Sections missing
// from the document are left untouched.
func Restore(ctx context.Context, dst Target, doc *Document) (Summary, error) {
	var sum Summary
	if err := Validate(doc); err != nil {
		return sum, err
	}

	sum.Records = dst.ImportRecords(ctx, doc.Records, true)

	if doc.Settings != nil {
		if _, err := dst.SaveSettings(ctx, *doc.Settings); err != nil {
			return sum, fmt.Errorf("restore settings: %w", err)
		}
		sum.Settings = true
	}
	if doc.Categories != nil {
		saved, err := dst.SaveCategories(ctx, doc.Categories)
		if err != nil {
			return sum, fmt.Errorf("restore categories: %w", err)
		}
		sum.Categories = len(saved)
	}
	for _, s := range doc.SavedSearches {
		if _, err := dst.SaveSearch(ctx, s); err != nil {
			return sum, fmt.Errorf("restore saved search %q: %w", s.Name, err)
		}
		sum.SavedSearches++
	}
	return sum, nil
}

// Validate rejects documents this build cannot restore.
func Validate(doc *Document) error {
	switch {
	case doc == nil:
		return fmt.Errorf("empty backup: %w", domain.ErrInvalidRequest)
	case doc.Version < 1:
		return fmt.Errorf("backup without a version: %w", domain.ErrInvalidRequest)
	case doc.Version > Version:
		return fmt.Errorf("backup version %d is newer than supported %d: %w", doc.Version, Version, domain.ErrInvalidRequest)
	}
	return nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Decode reads a document and validates its version.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode backup: %v: %w", err, domain.ErrInvalidRequest)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
