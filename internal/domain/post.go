package domain

import "time"

// Platform identifies the site a post was captured from.
// It is also the "source" half of the dedup key.
type Platform string

const (
	PlatformMicroblog  Platform = "generic-microblog"
	PlatformShortVideo Platform = "short-video"
	PlatformPhotoShare Platform = "photo-share"
	PlatformLongVideo  Platform = "long-video"
)

// AllPlatforms lists every supported platform in display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformMicroblog, PlatformShortVideo, PlatformPhotoShare, PlatformLongVideo}
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformMicroblog, PlatformShortVideo, PlatformPhotoShare, PlatformLongVideo:
		return true
	}
	return false
}

// Prefix returns the short prefix used for synthetic identifiers.
func (p Platform) Prefix() string {
	switch p {
	case PlatformMicroblog:
		return "mb"
	case PlatformShortVideo:
		return "sv"
	case PlatformPhotoShare:
		return "ps"
	case PlatformLongVideo:
		return "lv"
	default:
		return "post"
	}
}

// VerifiedTier is the verification badge shown next to an author.
type VerifiedTier string

const (
	VerifiedNone       VerifiedTier = "none"
	VerifiedStandard   VerifiedTier = "standard"
	VerifiedBusiness   VerifiedTier = "business"
	VerifiedGovernment VerifiedTier = "government"
)

// Author describes who published a post.
type Author struct {
	Handle      string       `json:"handle"`
	DisplayName string       `json:"displayName"`
	AvatarURL   string       `json:"avatarUrl"`
	Verified    VerifiedTier `json:"verifiedTier"`
}

// URLEntity is a link found in the post text.
type URLEntity struct {
	URL         string `json:"url"`
	DisplayText string `json:"displayText"`
}

// Entities are derived from the post text. They are never authoritative
// on their own and can always be recomputed with ExtractEntities.
type Entities struct {
	URLs     []URLEntity `json:"urls"`
	Hashtags []string    `json:"hashtags"`
	Mentions []string    `json:"mentions"`
}

// Metrics holds engagement counters. Counters a platform does not
// expose stay at zero.
type Metrics struct {
	Replies   int64 `json:"replies"`
	Reshares  int64 `json:"reshares"`
	Likes     int64 `json:"likes"`
	Views     int64 `json:"views"`
	Bookmarks int64 `json:"bookmarks"`
}

// MediaKind is the type of a media attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaGIF   MediaKind = "gif"
)

// Media is one attachment, in display order.
type Media struct {
	Kind            MediaKind `json:"kind"`
	URL             string    `json:"url"`
	ThumbnailURL    string    `json:"thumbnailUrl"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty"`
	AltText         string    `json:"altText,omitempty"`
}

// LinkCard is the preview card rendered for a shared link.
type LinkCard struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	Domain   string `json:"domain"`
}

// QuotedPost is the partial post embedded inside another one.
type QuotedPost struct {
	ExternalID string  `json:"externalId"`
	Author     Author  `json:"author"`
	Text       string  `json:"text"`
	Media      []Media `json:"media"`
}

// CanonicalPost is the platform-agnostic shape every extractor produces.
// It only lives for the duration of a capture.
type CanonicalPost struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ExternalID is the platform-unique identifier of the source post.
	// Together with Platform it forms the dedup key.
	ExternalID string   `json:"externalId"`
	Platform   Platform `json:"platform"`

	// SourceURL is the canonical deep link to the original post.
	SourceURL string `json:"sourceUrl"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Author     Author      `json:"author"`
	Text       string      `json:"text"`
	Entities   Entities    `json:"entities"`
	Metrics    Metrics     `json:"metrics"`
	QuotedPost *QuotedPost `json:"quotedPost"`
	Media      []Media     `json:"media"`
	LinkCard   *LinkCard   `json:"linkCard"`

	IsReply       bool   `json:"isReply"`
	ReplyToHandle string `json:"replyToHandle,omitempty"`

	// ─────────────────────────────
	// Time
	// ─────────────────────────────

	// OriginalCreatedAt is unknown on platforms that hide it.
	OriginalCreatedAt *time.Time `json:"originalCreatedAt"`

	// CapturedAt is always the extraction time and never user-editable.
	CapturedAt time.Time `json:"capturedAt"`
}

// HasMedia reports whether the post carries at least one attachment.
func (p *CanonicalPost) HasMedia() bool {
	return len(p.Media) > 0
}

// Normalize fills the zero-value defaults every stored post must carry.
func (p *CanonicalPost) Normalize() {
	if p.Author.Verified == "" {
		p.Author.Verified = VerifiedNone
	}
	if p.Media == nil {
		p.Media = []Media{}
	}
	if len(p.Entities.URLs) == 0 && len(p.Entities.Hashtags) == 0 && len(p.Entities.Mentions) == 0 {
		p.Entities = ExtractEntities(p.Text)
	}
	if p.Entities.URLs == nil {
		p.Entities.URLs = []URLEntity{}
	}
	if p.Entities.Hashtags == nil {
		p.Entities.Hashtags = []string{}
	}
	if p.Entities.Mentions == nil {
		p.Entities.Mentions = []string{}
	}
	p.Metrics = p.Metrics.clamped()
	if p.QuotedPost != nil && p.QuotedPost.Media == nil {
		p.QuotedPost.Media = []Media{}
	}
	if !p.IsReply {
		p.ReplyToHandle = ""
	}
}

func (m Metrics) clamped() Metrics {
	clamp := func(v int64) int64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return Metrics{
		Replies:   clamp(m.Replies),
		Reshares:  clamp(m.Reshares),
		Likes:     clamp(m.Likes),
		Views:     clamp(m.Views),
		Bookmarks: clamp(m.Bookmarks),
	}
}
