package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// BulkSummary counts the outcome of a bulk tag edit.
type BulkSummary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// UpdateTags replaces the manual tags of a record wholesale.
func (e *Engine) UpdateTags(ctx context.Context, id string, tags []string) (*domain.StoredRecord, error) {
	return e.mutate(ctx, id, func(r *domain.StoredRecord) {
		r.Tags = domain.NormalizeTags(tags)
	})
}

// BulkUpdateTags removes then adds tags on each record. Tag identity is
// case-insensitive, so adding "ai" to a record tagged "AI" is a no-op.
// Unknown ids are skipped.
func (e *Engine) BulkUpdateTags(ctx context.Context, ids, add, remove []string) BulkSummary {
	add = domain.NormalizeTags(add)
	drop := make(map[string]bool, len(remove))
	for _, t := range remove {
		drop[strings.ToLower(strings.TrimSpace(t))] = true
	}

	var sum BulkSummary
	for _, id := range ids {
		_, err := e.mutate(ctx, id, func(r *domain.StoredRecord) {
			r.Tags = mergeTags(r.Tags, add, drop)
		})
		if err != nil {
			sum.Skipped++
			if !errors.Is(err, domain.ErrNotFound) {
				e.logger.Warn("bulk tag update failed", logger.String("id", id), logger.Error(err))
			}
			continue
		}
		sum.Updated++
	}
	return sum
}

// AllTags returns every distinct tag, manual and auto, in first-seen order.
func (e *Engine) AllTags(ctx context.Context) ([]string, error) {
	records, err := e.All(ctx)
	if err != nil {
		return nil, err
	}
	sortRecords(records, SortCapturedAt, SortDesc)

	var all []string
	for _, r := range records {
		all = append(all, r.AllTags()...)
	}
	return domain.NormalizeTags(all), nil
}

func mergeTags(current, add []string, drop map[string]bool) []string {
	out := make([]string, 0, len(current)+len(add))
	seen := make(map[string]bool, cap(out))
	for _, t := range current {
		k := strings.ToLower(t)
		if drop[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	for _, t := range add {
		k := strings.ToLower(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}
