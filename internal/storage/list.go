package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// SortField names a record attribute List can order by.
type SortField string

const (
	SortCapturedAt        SortField = "capturedAt"
	SortOriginalCreatedAt SortField = "originalCreatedAt"
	SortPlatform          SortField = "platform"
	SortAuthor            SortField = "author"
	SortText              SortField = "text"
	SortLikes             SortField = "likes"
	SortReshares          SortField = "reshares"
	SortViews             SortField = "views"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// ListOptions drives List.
type ListOptions struct {
	Page      int       `json:"page"`
	PageSize  int       `json:"pageSize"`
	SortField SortField `json:"sortField"`
	SortOrder SortOrder `json:"sortOrder"`
}

// Page is one slice of an ordered result.
type Page struct {
	Items      []*domain.StoredRecord `json:"items"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	switch f {
	case SortCapturedAt, SortOriginalCreatedAt, SortPlatform, SortAuthor,
		SortText, SortLikes, SortReshares, SortViews:
		return true
	}
	return false
}

func (o ListOptions) normalized() (ListOptions, error) {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	if o.SortField == "" {
		o.SortField = SortCapturedAt
	}
	if !o.SortField.Valid() {
		return o, fmt.Errorf("unknown sort field %q: %w", o.SortField, domain.ErrInvalidRequest)
	}
	switch strings.ToLower(string(o.SortOrder)) {
	case "", string(SortDesc):
		o.SortOrder = SortDesc
	case string(SortAsc):
		o.SortOrder = SortAsc
	default:
		return o, fmt.Errorf("unknown sort order %q: %w", o.SortOrder, domain.ErrInvalidRequest)
	}
	return o, nil
}

// List loads the whole collection, sorts it in memory and returns one page.
func (e *Engine) List(ctx context.Context, opts ListOptions) (*Page, error) {
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}

	records, err := e.All(ctx)
	if err != nil {
		return nil, err
	}
	sortRecords(records, opts.SortField, opts.SortOrder)
	return paginate(records, opts.Page, opts.PageSize), nil
}

func paginate(records []*domain.StoredRecord, page, pageSize int) *Page {
	total := len(records)
	p := &Page{
		Items:      []*domain.StoredRecord{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	if start, end, ok := pageBounds(page, pageSize, total); ok {
		p.Items = records[start:end]
	}
	return p
}

// pageBounds returns the slice bounds of page within total items. Pages
// past the end report ok false before any multiplication can overflow.
func pageBounds(page, pageSize, total int) (start, end int, ok bool) {
	if page < 1 || pageSize < 1 || page-1 >= (total+pageSize-1)/pageSize {
		return 0, 0, false
	}
	start = (page - 1) * pageSize
	end = min(start+pageSize, total)
	return start, end, true
}

func sortRecords(records []*domain.StoredRecord, field SortField, order SortOrder) {
	less := lessFor(field)
	sort.SliceStable(records, func(i, j int) bool {
		if order == SortAsc {
			return less(records[i], records[j])
		}
		return less(records[j], records[i])
	})
}

func lessFor(field SortField) func(a, b *domain.StoredRecord) bool {
	switch field {
	case SortOriginalCreatedAt:
		// Unknown creation times sort as the oldest.
		return func(a, b *domain.StoredRecord) bool {
			return timeOrZero(a.OriginalCreatedAt).Before(timeOrZero(b.OriginalCreatedAt))
		}
	case SortPlatform:
		return func(a, b *domain.StoredRecord) bool { return a.Platform < b.Platform }
	case SortAuthor:
		return func(a, b *domain.StoredRecord) bool { return a.Author.Handle < b.Author.Handle }
	case SortText:
		return func(a, b *domain.StoredRecord) bool { return a.Text < b.Text }
	case SortLikes:
		return func(a, b *domain.StoredRecord) bool { return a.Metrics.Likes < b.Metrics.Likes }
	case SortReshares:
		return func(a, b *domain.StoredRecord) bool { return a.Metrics.Reshares < b.Metrics.Reshares }
	case SortViews:
		return func(a, b *domain.StoredRecord) bool { return a.Metrics.Views < b.Metrics.Views }
	default:
		return func(a, b *domain.StoredRecord) bool { return a.CapturedAt.Before(b.CapturedAt) }
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
