package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/backup"
	"github.com/MrSnakeDoc/stash/internal/domain"
)

func registerHandlers(d *Dispatcher, deps Deps) {
	e := deps.Engine

	on(d, func(ctx context.Context, r SavePost) (any, error) {
		rec, err := e.Insert(ctx, r.Post)
		if err != nil {
			return nil, err
		}
		return SaveResult{Record: rec, Duplicate: rec == nil}, nil
	})
	on(d, func(ctx context.Context, r GetRecords) (any, error) {
		return e.List(ctx, r.ListOptions)
	})
	on(d, func(ctx context.Context, r GetRecord) (any, error) {
		return e.Get(ctx, r.ID)
	})
	on(d, func(ctx context.Context, r Search) (any, error) {
		return e.Search(ctx, r.SearchRequest)
	})
	on(d, func(ctx context.Context, r Filter) (any, error) {
		return e.Filter(ctx, r.Filters)
	})
	on(d, func(ctx context.Context, r UpdateTags) (any, error) {
		return e.UpdateTags(ctx, r.ID, r.Tags)
	})
	on(d, func(ctx context.Context, r BulkUpdateTags) (any, error) {
		return e.BulkUpdateTags(ctx, r.IDs, r.Add, r.Remove), nil
	})
	on(d, func(ctx context.Context, r DeleteRecord) (any, error) {
		if r.Soft {
			return e.SetAvailable(ctx, r.ID, false)
		}
		return nil, e.Delete(ctx, r.ID)
	})
	on(d, func(ctx context.Context, r DeleteRecords) (any, error) {
		return DeleteResult{Deleted: e.DeleteMany(ctx, r.IDs)}, nil
	})
	on(d, func(ctx context.Context, _ ClearAll) (any, error) {
		return nil, e.Clear(ctx)
	})
	on(d, func(ctx context.Context, _ GetStats) (any, error) {
		return e.Stats(ctx)
	})

	on(d, func(ctx context.Context, _ Export) (any, error) {
		return backup.Build(ctx, e, deps.Clock())
	})
	on(d, func(ctx context.Context, r ImportBackup) (any, error) {
		return backup.Restore(ctx, e, r.Backup)
	})
	on(d, func(ctx context.Context, r ImportFile) (any, error) {
		content := r.Content
		if content == "" && r.URL != "" {
			if deps.Fetcher == nil {
				return nil, fmt.Errorf("remote import disabled: %w", domain.ErrInvalidRequest)
			}
			body, err := deps.Fetcher.FetchFeed(ctx, r.URL)
			if err != nil {
				return nil, err
			}
			content = string(body)
		}
		if strings.TrimSpace(content) == "" {
			return nil, fmt.Errorf("empty import: %w", domain.ErrInvalidRequest)
		}
		parsed, err := deps.Importers.Parse(r.Format, strings.NewReader(content))
		if err != nil {
			return nil, err
		}
		sum := e.InsertMany(ctx, parsed.Posts)
		sum.Failed += parsed.Skipped
		return sum, nil
	})

	on(d, func(ctx context.Context, _ GetCategories) (any, error) {
		return e.Categories(ctx)
	})
	on(d, func(ctx context.Context, r SaveCategories) (any, error) {
		return e.SaveCategories(ctx, r.Categories)
	})
	on(d, func(ctx context.Context, _ GetSavedSearches) (any, error) {
		searches, err := e.SavedSearches(ctx)
		if err == nil && searches == nil {
			searches = []domain.SavedSearch{}
		}
		return searches, err
	})
	on(d, func(ctx context.Context, r SaveSearch) (any, error) {
		return e.SaveSearch(ctx, r.Search)
	})
	on(d, func(ctx context.Context, r DeleteSavedSearch) (any, error) {
		return nil, e.DeleteSavedSearch(ctx, r.ID)
	})
	on(d, func(ctx context.Context, _ GetSettings) (any, error) {
		return e.Settings(ctx)
	})
	on(d, func(ctx context.Context, r SaveSettings) (any, error) {
		return e.SaveSettings(ctx, r.Settings)
	})
}
