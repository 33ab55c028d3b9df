package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Categories returns nil, nil until categories have been saved
func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	found, err := s.getJSON(ctx, KeyCategories, &categories)
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
	return s.setJSON(ctx, KeyCategories, categories)
}

// Settings returns the stored settings or the defaults
func (s *Store) Settings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if _, err := s.getJSON(ctx, KeySettings, &settings); err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

// SaveSettings replaces the stored settings
func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	return s.setJSON(ctx, KeySettings, settings)
}

// SavedSearches returns saved searches oldest first
func (s *Store) SavedSearches(ctx context.Context) ([]domain.SavedSearch, error) {
	entries, err := s.client.HGetAll(ctx, KeySavedSearches).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get saved searches: %w", err)
	}

	out := make([]domain.SavedSearch, 0, len(entries))
	for _, raw := range entries {
		var ss domain.SavedSearch
		if err := json.Unmarshal([]byte(raw), &ss); err != nil {
			continue
		}
		out = append(out, ss)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaveSavedSearch stores a saved search under its ID
func (s *Store) SaveSavedSearch(ctx context.Context, ss domain.SavedSearch) error {
	data, err := json.Marshal(ss)
	if err != nil {
		return fmt.Errorf("failed to marshal saved search: %w", err)
	}
	if err := s.client.HSet(ctx, KeySavedSearches, ss.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to save saved search: %w", err)
	}
	return nil
}

// DeleteSavedSearch removes a saved search by ID
func (s *Store) DeleteSavedSearch(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, KeySavedSearches, id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("saved search %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
