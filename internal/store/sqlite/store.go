// Package sqlite is the embedded single-file domain.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

const (
	metaCategories = "categories"
	metaSettings   = "settings"
)

// Store keeps each record as a JSON document next to the columns the
// uniqueness constraint and ordering need.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertRecord relies on the UNIQUE(platform, external_id) constraint:
// a conflicting row is silently ignored and reported as (false, nil).
func (s *Store) InsertRecord(ctx context.Context, rec *domain.StoredRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	var inserted bool
	err = runTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, platform, external_id, captured_at, data)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			rec.ID, string(rec.Platform), rec.ExternalID, rec.CapturedAt.UnixMilli(), string(data))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert record: %w", err)
	}
	return inserted, nil
}

// GetRecord retrieves a record by ID
func (s *Store) GetRecord(ctx context.Context, id string) (*domain.StoredRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return decodeRecord(data)
}

// AllRecords returns every record, newest capture first
func (s *Store) AllRecords(ctx context.Context) ([]*domain.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM records ORDER BY captured_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*domain.StoredRecord{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// UpdateRecord replaces the stored document of an existing record
func (s *Store) UpdateRecord(ctx context.Context, rec *domain.StoredRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET captured_at = ?, data = ? WHERE id = ?`,
		rec.CapturedAt.UnixMilli(), string(data), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteRecord removes a record by ID
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ClearRecords removes every record
func (s *Store) ClearRecords(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────
// Meta
// ─────────────────────────────────────────────────────────────────

// Categories returns nil, nil until categories have been saved
func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	found, err := s.getMeta(ctx, metaCategories, &categories)
	if err != nil || !found {
		return nil, err
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// SaveCategories replaces the stored categories
func (s *Store) SaveCategories(ctx context.Context, categories []domain.Category) error {
	return s.setMeta(ctx, metaCategories, categories)
}

// Settings returns the stored settings or the defaults
func (s *Store) Settings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if _, err := s.getMeta(ctx, metaSettings, &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// SaveSettings replaces the stored settings
func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.setMeta(ctx, metaSettings, settings)
}

// SavedSearches returns saved searches oldest first
func (s *Store) SavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM saved_searches ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.SavedSearch{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %w", err)
		}
		var ss domain.SavedSearch
		if err := json.Unmarshal([]byte(data), &ss); err != nil {
			continue
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// SaveSavedSearch inserts or replaces a saved search
func (s *Store) SaveSavedSearch(ctx context.Context, ss domain.SavedSearch) error {
	data, err := json.Marshal(ss)
	if err != nil {
		return fmt.Errorf("failed to marshal saved search: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_searches (id, created_at, data) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		ss.ID, ss.CreatedAt.UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save saved search: %w", err)
	}
	return nil
}

// DeleteSavedSearch removes a saved search by ID
func (s *Store) DeleteSavedSearch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saved search %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) getMeta(ctx context.Context, key string, v any) (bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setMeta(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data))
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func decodeRecord(data string) (*domain.StoredRecord, error) {
	var rec domain.StoredRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}
