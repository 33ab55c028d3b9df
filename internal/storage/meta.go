package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

// Categories returns the stored categories, seeding defaults on first use.
func (e *Engine) Categories(ctx context.Context) ([]domain.Category, error) {
	return e.categoriesOrDefault(ctx)
}

func (e *Engine) categoriesOrDefault(ctx context.Context) ([]domain.Category, error) {
	categories, err := e.repo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	if categories == nil {
		return domain.DefaultCategories(), nil
	}
	return categories, nil
}

// SaveCategories validates and replaces the category list. Names are
// unique case-insensitively; the first occurrence wins.
func (e *Engine) SaveCategories(ctx context.Context, categories []domain.Category) ([]domain.Category, error) {
	clean := make([]domain.Category, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category without a name: %w", domain.ErrInvalidRequest)
		}
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		clean = append(clean, domain.Category{Name: name, Keywords: keywords})
	}

	if err := e.repo.SaveCategories(ctx, clean); err != nil {
		return nil, fmt.Errorf("failed to save categories: %w", err)
	}
	e.logger.Info("categories saved", logger.Int("count", len(clean)))
	return clean, nil
}

// SavedSearches lists saved searches.
func (e *Engine) SavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	return e.repo.SavedSearches(ctx)
}

// SaveSearch stores a named query. A missing ID is generated.
func (e *Engine) SaveSearch(ctx context.Context, s domain.SavedSearch) (*domain.SavedSearch, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, fmt.Errorf("saved search without a name: %w", domain.ErrInvalidRequest)
	}
	if s.ID == "" {
		s.ID = e.newID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = e.now()
	}
	if err := e.repo.SaveSavedSearch(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save search: %w", err)
	}
	return &s, nil
}

// DeleteSavedSearch removes a saved search.
func (e *Engine) DeleteSavedSearch(ctx context.Context, id string) error {
	return e.repo.DeleteSavedSearch(ctx, id)
}

// Settings returns the current settings.
func (e *Engine) Settings(ctx context.Context) (domain.Settings, error) {
	return e.repo.Settings(ctx)
}

// SaveSettings replaces the settings.
func (e *Engine) SaveSettings(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	for _, p := range s.EnabledPlatforms {
		if !p.Valid() {
			return domain.Settings{}, fmt.Errorf("unknown platform %q: %w", p, domain.ErrInvalidRequest)
		}
	}
	if err := e.repo.SaveSettings(ctx, s); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return s, nil
}
