package storage

import (
	"context"
	"time"
)

// Stats summarises the collection.
type Stats struct {
	Total    int            `json:"total"`
	Today    int            `json:"today"`
	BySource map[string]int `json:"bySource"`
	ByTag    map[string]int `json:"byTag"`
	Unsynced int            `json:"unsynced"`
}

// Stats counts records. "Today" starts at local midnight of the engine
// clock, and a record counts once in every tag bucket it carries.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	records, err := e.All(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	st := &Stats{
		Total:    len(records),
		BySource: map[string]int{},
		ByTag:    map[string]int{},
	}
	for _, r := range records {
		if !r.CapturedAt.Before(midnight) {
			st.Today++
		}
		st.BySource[string(r.Platform)]++
		for _, t := range r.AllTags() {
			st.ByTag[t]++
		}
		if r.SyncedAt == nil {
			st.Unsynced++
		}
	}
	return st, nil
}
