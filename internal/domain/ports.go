package domain

import (
	"context"
	"time"
)

// RecordRepository defines persistence operations for stored records.
type RecordRepository interface {
	// InsertRecord stores rec unless a record with the same dedup key
	// already exists. It returns false, and stores nothing, on collision.
	InsertRecord(ctx context.Context, rec *StoredRecord) (bool, error)

	// GetRecord returns ErrNotFound when id is unknown.
	GetRecord(ctx context.Context, id string) (*StoredRecord, error)

	// AllRecords returns every record in no particular order.
	AllRecords(ctx context.Context) ([]*StoredRecord, error)

	// UpdateRecord replaces an existing record. The dedup key must not change.
	UpdateRecord(ctx context.Context, rec *StoredRecord) error

	// DeleteRecord returns ErrNotFound when id is unknown.
	DeleteRecord(ctx context.Context, id string) error

	// ClearRecords removes every record and dedup claim.
	ClearRecords(ctx context.Context) error
}

// MetaRepository persists everything that is not a record.
type MetaRepository interface {
	// Categories returns nil, nil when nothing has been stored yet.
	Categories(ctx context.Context) ([]Category, error)
	SaveCategories(ctx context.Context, categories []Category) error

	SavedSearches(ctx context.Context) ([]SavedSearch, error)
	SaveSavedSearch(ctx context.Context, s SavedSearch) error
	DeleteSavedSearch(ctx context.Context, id string) error

	// Settings returns DefaultSettings when nothing has been stored yet.
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// Repository is the full persistence port of the storage engine.
type Repository interface {
	RecordRepository
	MetaRepository

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// Clock returns the current time. Swapped in tests.
type Clock func() time.Time
