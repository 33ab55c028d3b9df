package index

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// MemoryIndex is an in-process domain.Repository.
// It backs STASH_STORE=memory and every engine test.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]*domain.StoredRecord // ID -> record
	dedup   map[string]string               // dedup key -> ID
	meta    memoryMeta
}

type memoryMeta struct {
	categories    []domain.Category
	hasCategories bool
	searches      []domain.SavedSearch
	settings      *domain.Settings
}

// NewMemoryIndex creates an empty memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		records: make(map[string]*domain.StoredRecord),
		dedup:   make(map[string]string),
	}
}

// Ping always succeeds.
func (idx *MemoryIndex) Ping(_ context.Context) error {
	return nil
}

// InsertRecord stores a copy of rec unless its dedup key is already claimed.
func (idx *MemoryIndex) InsertRecord(_ context.Context, rec *domain.StoredRecord) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := rec.DedupKey()
	if _, taken := idx.dedup[key]; taken {
		return false, nil
	}
	if _, taken := idx.records[rec.ID]; taken {
		return false, nil
	}

	idx.records[rec.ID] = rec.Clone()
	idx.dedup[key] = rec.ID
	return true, nil
}

// GetRecord retrieves a record by ID
func (idx *MemoryIndex) GetRecord(_ context.Context, id string) (*domain.StoredRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// AllRecords returns a copy of every record
func (idx *MemoryIndex) AllRecords(_ context.Context) ([]*domain.StoredRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*domain.StoredRecord, 0, len(idx.records))
	for _, rec := range idx.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// UpdateRecord replaces an existing record
func (idx *MemoryIndex) UpdateRecord(_ context.Context, rec *domain.StoredRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.records[rec.ID]; !ok {
		return domain.ErrNotFound
	}
	idx.records[rec.ID] = rec.Clone()
	return nil
}

// DeleteRecord removes a record and releases its dedup key
func (idx *MemoryIndex) DeleteRecord(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(idx.dedup, rec.DedupKey())
	delete(idx.records, id)
	return nil
}

// ClearRecords drops every record
func (idx *MemoryIndex) ClearRecords(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = make(map[string]*domain.StoredRecord)
	idx.dedup = make(map[string]string)
	return nil
}

// Count returns the number of records in the index
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.records)
}

// ─────────────────────────────────────────────────────────────────
// Meta methods
// ─────────────────────────────────────────────────────────────────

// Categories returns nil until categories have been saved once
func (idx *MemoryIndex) Categories(_ context.Context) ([]domain.Category, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.meta.hasCategories {
		return nil, nil
	}
	return cloneCategories(idx.meta.categories), nil
}

// SaveCategories replaces the stored categories
func (idx *MemoryIndex) SaveCategories(_ context.Context, categories []domain.Category) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.meta.categories = cloneCategories(categories)
	idx.meta.hasCategories = true
	return nil
}

// SavedSearches returns saved searches in insertion order
func (idx *MemoryIndex) SavedSearches(_ context.Context) ([]domain.SavedSearch, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.SavedSearch, len(idx.meta.searches))
	copy(out, idx.meta.searches)
	return out, nil
}

// SaveSavedSearch adds a saved search or replaces the one with the same ID
func (idx *MemoryIndex) SaveSavedSearch(_ context.Context, s domain.SavedSearch) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range idx.meta.searches {
		if idx.meta.searches[i].ID == s.ID {
			idx.meta.searches[i] = s
			return nil
		}
	}
	idx.meta.searches = append(idx.meta.searches, s)
	return nil
}

// DeleteSavedSearch removes a saved search by ID
func (idx *MemoryIndex) DeleteSavedSearch(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range idx.meta.searches {
		if idx.meta.searches[i].ID == id {
			idx.meta.searches = append(idx.meta.searches[:i], idx.meta.searches[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Settings returns the stored settings or the defaults
func (idx *MemoryIndex) Settings(_ context.Context) (domain.Settings, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.meta.settings == nil {
		return domain.DefaultSettings(), nil
	}
	return *idx.meta.settings, nil
}

// SaveSettings replaces the stored settings
func (idx *MemoryIndex) SaveSettings(_ context.Context, s domain.Settings) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.meta.settings = &s
	return nil
}

func cloneCategories(in []domain.Category) []domain.Category {
	out := make([]domain.Category, len(in))
	for i, c := range in {
		out[i] = domain.Category{Name: c.Name, Keywords: append([]string(nil), c.Keywords...)}
	}
	return out
}
