package categories

import (
	"errors"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// ErrEmpty is returned when a file yields no usable category.
var ErrEmpty = errors.New("no valid categories found in file")

// Mapper converts file entries to domain categories.
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapCategories keeps file order, skips disabled or nameless entries and
// merges repeated names (case-insensitive) into the first occurrence.
// Keywords are trimmed, lowercased and deduplicated.
func (m *Mapper) MapCategories(f File) ([]domain.Category, error) {
	var out []domain.Category
	index := make(map[string]int)

	for _, e := range f.Categories {
		name := strings.TrimSpace(e.Name)
		if e.Disabled || name == "" {
			continue
		}
		key := strings.ToLower(name)
		i, ok := index[key]
		if !ok {
			out = append(out, domain.Category{Name: name, Keywords: []string{}})
			i = len(out) - 1
			index[key] = i
		}
		out[i].Keywords = mergeKeywords(out[i].Keywords, e.Keywords)
	}

	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func mergeKeywords(have, add []string) []string {
	seen := make(map[string]bool, len(have)+len(add))
	for _, k := range have {
		seen[k] = true
	}
	for _, k := range add {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		have = append(have, k)
	}
	return have
}
