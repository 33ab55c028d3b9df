package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Store is the Redis-backed domain.Repository.
//
// Records live as JSON strings under stash:record:<id>. The dedup hash is
// the uniqueness constraint: a record only exists once its
// platform|externalId field has been claimed with HSETNX.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// InsertRecord claims the dedup key then writes the record.
// A lost claim is reported as (false, nil).
func (s *Store) InsertRecord(ctx context.Context, rec *domain.StoredRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	dedupKey := rec.DedupKey()
	claimed, err := s.client.HSetNX(ctx, KeyDedup, dedupKey, rec.ID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedup key: %w", err)
	}
	if !claimed {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	set := pipe.SetNX(ctx, RecordKey(rec.ID), data, 0)
	pipe.SAdd(ctx, KeyAllRecords, rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		s.releaseInsert(ctx, rec.ID, dedupKey, set.Val())
		return false, fmt.Errorf("failed to save record: %w", err)
	}
	if !set.Val() {
		// ID collision: the set already holds this id for the other record.
		s.client.HDel(ctx, KeyDedup, dedupKey)
		return false, nil
	}

	return true, nil
}

// releaseInsert undoes a half-applied insert so the post can be captured
// again later.
func (s *Store) releaseInsert(ctx context.Context, id, dedupKey string, written bool) {
	s.client.HDel(ctx, KeyDedup, dedupKey)
	if written {
		s.client.Del(ctx, RecordKey(id))
		s.client.SRem(ctx, KeyAllRecords, id)
	}
}

// GetRecord retrieves a record from Redis by ID
func (s *Store) GetRecord(ctx context.Context, id string) (*domain.StoredRecord, error) {
	data, err := s.client.Get(ctx, RecordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return decodeRecord(data)
}

// AllRecords retrieves all records from Redis
func (s *Store) AllRecords(ctx context.Context) ([]*domain.StoredRecord, error) {
	ids, err := s.client.SMembers(ctx, KeyAllRecords).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get record IDs: %w", err)
	}

	if len(ids) == 0 {
		return []*domain.StoredRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = RecordKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}

	records := make([]*domain.StoredRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Set member without a body: skip it
			continue
		}
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// UpdateRecord overwrites an existing record
func (s *Store) UpdateRecord(ctx context.Context, rec *domain.StoredRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	ok, err := s.client.SetXX(ctx, RecordKey(rec.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if !ok {
		return fmt.Errorf("record %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteRecord removes a record, its set membership and its dedup claim
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, RecordKey(id))
	pipe.SRem(ctx, KeyAllRecords, id)
	pipe.HDel(ctx, KeyDedup, rec.DedupKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// ClearRecords removes every record key, the ID set and the dedup hash
func (s *Store) ClearRecords(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixRecord+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete record key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan records: %w", err)
	}

	if err := s.client.Del(ctx, KeyAllRecords, KeyDedup).Err(); err != nil {
		return fmt.Errorf("failed to clear record indexes: %w", err)
	}
	return nil
}

func decodeRecord(data []byte) (*domain.StoredRecord, error) {
	var rec domain.StoredRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}
