package domain

import (
	"strings"
	"time"
)

// StoredRecord is a CanonicalPost once it has been persisted.
//
// A StoredRecord is uniquely identified by ID, and no two records share
// the same (Platform, ExternalID) pair.
type StoredRecord struct {
	// ID is assigned once at insert and never changes.
	ID string `json:"id"`

	CanonicalPost

	// ─────────────────────────────
	// Organisation
	// ─────────────────────────────

	// Tags are user-assigned. Display is case-sensitive, identity is not.
	Tags []string `json:"tags"`

	// AutoTags are category names suggested by the keyword classifier.
	AutoTags []string `json:"autoTags"`

	// ─────────────────────────────
	// Sync & liveness
	// ─────────────────────────────

	// SyncedAt is nil while the record is pending sync.
	SyncedAt *time.Time `json:"syncedAt"`

	// IsAvailable is false once a record has been soft-deleted.
	// It may be garbage-collected later.
	IsAvailable bool `json:"isAvailable"`

	// UpdatedAt is bumped on every mutation.
	UpdatedAt time.Time `json:"updatedAt"`
}

// DedupKey returns the uniqueness key of the record.
func (r *StoredRecord) DedupKey() string {
	return DedupKey(r.Platform, r.ExternalID)
}

// AllTags returns manual tags followed by auto tags, without repeats.
func (r *StoredRecord) AllTags() []string {
	out := make([]string, 0, len(r.Tags)+len(r.AutoTags))
	seen := make(map[string]bool, cap(out))
	for _, list := range [][]string{r.Tags, r.AutoTags} {
		for _, t := range list {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate it without touching
// the repository's copy.
func (r *StoredRecord) Clone() *StoredRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.AutoTags = append([]string(nil), r.AutoTags...)
	c.Media = append([]Media(nil), r.Media...)
	c.Entities.URLs = append([]URLEntity(nil), r.Entities.URLs...)
	c.Entities.Hashtags = append([]string(nil), r.Entities.Hashtags...)
	c.Entities.Mentions = append([]string(nil), r.Entities.Mentions...)
	if r.QuotedPost != nil {
		q := *r.QuotedPost
		q.Media = append([]Media(nil), r.QuotedPost.Media...)
		c.QuotedPost = &q
	}
	if r.LinkCard != nil {
		l := *r.LinkCard
		c.LinkCard = &l
	}
	if r.OriginalCreatedAt != nil {
		t := *r.OriginalCreatedAt
		c.OriginalCreatedAt = &t
	}
	if r.SyncedAt != nil {
		t := *r.SyncedAt
		c.SyncedAt = &t
	}
	return &c
}

// DedupKey builds the (platform, externalId) uniqueness key.
func DedupKey(platform Platform, externalID string) string {
	return string(platform) + "|" + externalID
}

// NormalizeTags trims tags and drops empty and case-insensitive repeats,
// keeping the first spelling seen.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// Category groups keywords under a name used for auto-tagging.
type Category struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// DefaultCategories seeds a fresh store.
func DefaultCategories() []Category {
	return []Category{
		{Name: "AI", Keywords: []string{"ai", "artificial intelligence", "machine learning", "llm", "gpt", "neural network", "deep learning"}},
		{Name: "Programming", Keywords: []string{"code", "programming", "developer", "golang", "javascript", "python", "rust", "api"}},
		{Name: "Design", Keywords: []string{"design", "ui", "ux", "figma", "typography", "illustration"}},
		{Name: "Business", Keywords: []string{"startup", "business", "marketing", "revenue", "founder", "saas"}},
		{Name: "Science", Keywords: []string{"science", "research", "physics", "biology", "space", "climate"}},
		{Name: "Entertainment", Keywords: []string{"movie", "music", "game", "gaming", "film", "series"}},
	}
}

// SavedSearch is a named query replayed from the dashboard.
type SavedSearch struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Query     string     `json:"query"`
	Filters   FilterSpec `json:"filters"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Settings are the user preferences that travel with a backup.
// Credentials are deliberately not part of it.
type Settings struct {
	AutoTag          bool       `json:"autoTag"`
	NotifyOnCapture  bool       `json:"notifyOnCapture"`
	EnabledPlatforms []Platform `json:"enabledPlatforms"`
	SyncEnabled      bool       `json:"syncEnabled"`
	SyncEndpoint     string     `json:"syncEndpoint"`
	LastSyncAt       *time.Time `json:"lastSyncAt"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		AutoTag:          true,
		NotifyOnCapture:  true,
		EnabledPlatforms: AllPlatforms(),
	}
}

// PlatformEnabled reports whether capture is switched on for p.
func (s Settings) PlatformEnabled(p Platform) bool {
	if len(s.EnabledPlatforms) == 0 {
		return true
	}
	for _, e := range s.EnabledPlatforms {
		if e == p {
			return true
		}
	}
	return false
}
