package domain

import (
	"strings"
	"time"
)

// FilterSpec is the structured half of a dashboard query.
// Every field left at its zero value is ignored; the rest are ANDed.
type FilterSpec struct {
	// Tags matches when any of them is carried as a manual or auto tag.
	// Comparison is exact and case-sensitive.
	Tags []string `json:"tags,omitempty"`

	// DateFrom and DateTo bound CapturedAt, both inclusive.
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`

	Platform Platform `json:"platform,omitempty"`
	HasMedia *bool    `json:"hasMedia,omitempty"`

	// Author is a case-insensitive substring of the handle or display name.
	Author string `json:"author,omitempty"`
}

// IsZero reports whether the spec carries no predicate at all.
func (f FilterSpec) IsZero() bool {
	return len(f.Tags) == 0 && f.DateFrom == nil && f.DateTo == nil &&
		f.Platform == "" && f.HasMedia == nil && strings.TrimSpace(f.Author) == ""
}

// Matches evaluates the spec against a single record.
func (f FilterSpec) Matches(r *StoredRecord) bool {
	if r == nil {
		return false
	}

	if len(f.Tags) > 0 && !carriesAnyTag(r, f.Tags) {
		return false
	}

	if f.DateFrom != nil && r.CapturedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.CapturedAt.After(*f.DateTo) {
		return false
	}

	if f.Platform != "" && r.Platform != f.Platform {
		return false
	}

	if f.HasMedia != nil && r.HasMedia() != *f.HasMedia {
		return false
	}

	if a := strings.ToLower(strings.TrimSpace(f.Author)); a != "" {
		if !strings.Contains(strings.ToLower(r.Author.Handle), a) &&
			!strings.Contains(strings.ToLower(r.Author.DisplayName), a) {
			return false
		}
	}

	return true
}

func carriesAnyTag(r *StoredRecord, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range r.Tags {
			if t == w {
				return true
			}
		}
		for _, t := range r.AutoTags {
			if t == w {
				return true
			}
		}
	}
	return false
}

// Apply returns the records matching the spec, preserving input order.
func (f FilterSpec) Apply(records []*StoredRecord) []*StoredRecord {
	if f.IsZero() {
		return records
	}
	out := make([]*StoredRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
