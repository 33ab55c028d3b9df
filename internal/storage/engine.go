// Package storage is the storage engine: the single writer in front of a
// domain.Repository that enforces defaults, dedup and tag rules.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// Engine serialises every read-modify-write path with one mutex, so two
// concurrent tag edits on the same record resolve as last-write-wins.
type Engine struct {
	mu     sync.Mutex
	repo   domain.Repository
	logger logger.Logger
	now    domain.Clock
	newID  func() string
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(c domain.Clock) Option { return func(e *Engine) { e.now = c } }

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// New creates an engine over repo.
func New(repo domain.Repository, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		logger: log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Repository exposes the underlying repository.
func (e *Engine) Repository() domain.Repository { return e.repo }

// Ping checks the repository.
func (e *Engine) Ping(ctx context.Context) error { return e.repo.Ping(ctx) }

// InsertSummary counts the outcome of a batch insert.
type InsertSummary struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Insert persists a freshly captured post.
//
// A post whose (platform, externalId) already exists is not an error:
// Insert returns (nil, nil) and leaves the stored record untouched.
func (e *Engine) Insert(ctx context.Context, post *domain.CanonicalPost) (*domain.StoredRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.insertLocked(ctx, post)
}

func (e *Engine) insertLocked(ctx context.Context, post *domain.CanonicalPost) (*domain.StoredRecord, error) {
	if post == nil {
		return nil, fmt.Errorf("nil post: %w", domain.ErrInvalidPost)
	}
	if strings.TrimSpace(post.ExternalID) == "" {
		return nil, fmt.Errorf("missing externalId: %w", domain.ErrInvalidPost)
	}
	if !post.Platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q: %w", post.Platform, domain.ErrInvalidPost)
	}

	now := e.now()
	rec := &domain.StoredRecord{
		ID:            e.newID(),
		CanonicalPost: *post,
		Tags:          []string{},
		AutoTags:      []string{},
		IsAvailable:   true,
		UpdatedAt:     now,
	}
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = now
	}
	rec.Normalize()

	autoTags, err := e.autoTags(ctx, rec.Text)
	if err != nil {
		// Auto-tagging is best effort, the capture still goes through.
		e.logger.Warn("auto-tagging skipped", logger.Error(err))
	}
	rec.AutoTags = autoTags

	ok, err := e.repo.InsertRecord(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}
	if !ok {
		e.logger.Debug("duplicate capture skipped",
			logger.String("platform", string(rec.Platform)),
			logger.String("external_id", rec.ExternalID))
		return nil, nil
	}

	e.logger.Info("record stored",
		logger.String("id", rec.ID),
		logger.String("platform", string(rec.Platform)),
		logger.String("external_id", rec.ExternalID),
		logger.Int("auto_tags", len(rec.AutoTags)))
	return rec, nil
}

// InsertMany inserts posts one by one; a failing item never aborts the batch.
func (e *Engine) InsertMany(ctx context.Context, posts []*domain.CanonicalPost) InsertSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum InsertSummary
	for _, p := range posts {
		rec, err := e.insertLocked(ctx, p)
		switch {
		case err != nil:
			sum.Failed++
			e.logger.Debug("batch item rejected", logger.Error(err))
		case rec == nil:
			sum.Duplicates++
		default:
			sum.Added++
		}
	}
	return sum
}

// ImportRecords inserts complete records coming from a backup or a sync
// pull. With preserveIDs the incoming IDs are kept, otherwise fresh ones
// are assigned. Dedup rules are the same as Insert.
func (e *Engine) ImportRecords(ctx context.Context, records []*domain.StoredRecord, preserveIDs bool) InsertSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum InsertSummary
	for _, in := range records {
		if in == nil || strings.TrimSpace(in.ExternalID) == "" || !in.Platform.Valid() {
			sum.Failed++
			continue
		}

		rec := in.Clone()
		if !preserveIDs || rec.ID == "" {
			rec.ID = e.newID()
		}
		if rec.CapturedAt.IsZero() {
			rec.CapturedAt = e.now()
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = e.now()
		}
		rec.Tags = domain.NormalizeTags(rec.Tags)
		if rec.AutoTags == nil {
			rec.AutoTags = []string{}
		}
		rec.Normalize()

		ok, err := e.repo.InsertRecord(ctx, rec)
		switch {
		case err != nil:
			sum.Failed++
			e.logger.Warn("import item failed", logger.String("id", rec.ID), logger.Error(err))
		case !ok:
			sum.Duplicates++
		default:
			sum.Added++
		}
	}
	return sum
}

// Get returns a record by ID, or domain.ErrNotFound.
func (e *Engine) Get(ctx context.Context, id string) (*domain.StoredRecord, error) {
	return e.repo.GetRecord(ctx, id)
}

// All returns every stored record, unordered.
func (e *Engine) All(ctx context.Context) ([]*domain.StoredRecord, error) {
	records, err := e.repo.AllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return records, nil
}

// Delete hard-deletes a record.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.DeleteRecord(ctx, id); err != nil {
		return err
	}
	e.logger.Info("record deleted", logger.String("id", id))
	return nil
}

// DeleteMany deletes every id it can and returns how many went away.
func (e *Engine) DeleteMany(ctx context.Context, ids []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if err := e.repo.DeleteRecord(ctx, id); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				e.logger.Warn("bulk delete item failed", logger.String("id", id), logger.Error(err))
			}
			continue
		}
		deleted++
	}
	return deleted
}

// Clear removes every record. Meta data survives.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.ClearRecords(ctx); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	e.logger.Warn("all records cleared")
	return nil
}

// SetAvailable toggles the soft-delete flag of a record.
func (e *Engine) SetAvailable(ctx context.Context, id string, available bool) (*domain.StoredRecord, error) {
	return e.mutate(ctx, id, func(r *domain.StoredRecord) {
		r.IsAvailable = available
	})
}

// MarkSynced stamps SyncedAt on every id that still exists.
func (e *Engine) MarkSynced(ctx context.Context, ids []string, at time.Time) int {
	marked := 0
	for _, id := range ids {
		if _, err := e.mutate(ctx, id, func(r *domain.StoredRecord) {
			t := at
			r.SyncedAt = &t
		}); err == nil {
			marked++
		}
	}
	return marked
}

// Unsynced returns records that were never pushed, oldest capture first.
func (e *Engine) Unsynced(ctx context.Context) ([]*domain.StoredRecord, error) {
	records, err := e.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.StoredRecord, 0)
	for _, r := range records {
		if r.SyncedAt == nil {
			out = append(out, r)
		}
	}
	sortRecords(out, SortCapturedAt, SortAsc)
	return out, nil
}

// mutate applies fn to a record under the engine lock and bumps UpdatedAt.
func (e *Engine) mutate(ctx context.Context, id string, fn func(*domain.StoredRecord)) (*domain.StoredRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(rec)
	rec.UpdatedAt = e.now()
	if err := e.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine) autoTags(ctx context.Context, text string) ([]string, error) {
	settings, err := e.repo.Settings(ctx)
	if err != nil {
		return []string{}, err
	}
	if !settings.AutoTag {
		return []string{}, nil
	}
	categories, err := e.categoriesOrDefault(ctx)
	if err != nil {
		return []string{}, err
	}
	return domain.SuggestTags(text, categories), nil
}
