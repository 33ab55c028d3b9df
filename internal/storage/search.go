package storage

import (
	"context"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// SearchRequest combines a free-text query with structured filters.
type SearchRequest struct {
	Query    string            `json:"query"`
	Filters  domain.FilterSpec `json:"filters"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// SearchPage is a page of ranked hits.
type SearchPage struct {
	Items      []domain.ScoredRecord `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}

// Filter returns every record matching spec, newest capture first.
func (e *Engine) Filter(ctx context.Context, spec domain.FilterSpec) ([]*domain.StoredRecord, error) {
	records, err := e.All(ctx)
	if err != nil {
		return nil, err
	}
	out := spec.Apply(records)
	sortRecords(out, SortCapturedAt, SortDesc)
	return out, nil
}

// Search filters first, then scores what is left against the query.
// Without a query the hits come back in recency order.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	records, err := e.All(ctx)
	if err != nil {
		return nil, err
	}

	hits := domain.Rank(req.Filters.Apply(records), req.Query)

	page, size := req.Page, req.PageSize
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	total := len(hits)
	out := &SearchPage{
		Items:      []domain.ScoredRecord{},
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: (total + size - 1) / size,
	}
	if start, end, ok := pageBounds(page, size, total); ok {
		out.Items = hits[start:end]
	}
	return out, nil
}
