package domain

import (
	"reflect"
	"testing"
)

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		urls     []string
		hashtags []string
		mentions []string
	}{
		{
			name:     "empty text",
			text:     "",
			urls:     []string{},
			hashtags: []string{},
			mentions: []string{},
		},
		{
			name:     "mixed entities",
			text:     "Shipping #golang tips with @gopher, see https://go.dev/doc. #GoLang again",
			urls:     []string{"https://go.dev/doc"},
			hashtags: []string{"golang"},
			mentions: []string{"gopher"},
		},
		{
			name:     "email is not a mention",
			text:     "write to me@example.com",
			urls:     []string{},
			hashtags: []string{},
			mentions: []string{},
		},
		{
			name:     "url fragment is not a hashtag",
			text:     "read https://example.com/page#section now",
			urls:     []string{"https://example.com/page#section"},
			hashtags: []string{},
			mentions: []string{},
		},
		{
			name:     "mention with trailing dot",
			text:     "thanks @alice.",
			urls:     []string{},
			hashtags: []string{},
			mentions: []string{"alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractEntities(tt.text)

			urls := make([]string, 0, len(got.URLs))
			for _, u := range got.URLs {
				urls = append(urls, u.URL)
			}
			if !reflect.DeepEqual(urls, tt.urls) {
				t.Errorf("urls = %v, want %v", urls, tt.urls)
			}
			if !reflect.DeepEqual(got.Hashtags, tt.hashtags) {
				t.Errorf("hashtags = %v, want %v", got.Hashtags, tt.hashtags)
			}
			if !reflect.DeepEqual(got.Mentions, tt.mentions) {
				t.Errorf("mentions = %v, want %v", got.Mentions, tt.mentions)
			}
		})
	}
}

func TestExtractEntitiesDisplayText(t *testing.T) {
	got := ExtractEntities("https://www.example.com/a")
	if len(got.URLs) != 1 {
		t.Fatalf("expected 1 url, got %d", len(got.URLs))
	}
	if got.URLs[0].DisplayText != "example.com/a" {
		t.Errorf("DisplayText = %q, want %q", got.URLs[0].DisplayText, "example.com/a")
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	p := &CanonicalPost{
		Text:          "hello #world",
		Metrics:       Metrics{Likes: -3, Views: 10},
		ReplyToHandle: "bob",
	}
	p.Normalize()

	if p.Author.Verified != VerifiedNone {
		t.Errorf("Verified = %q, want %q", p.Author.Verified, VerifiedNone)
	}
	if p.Media == nil {
		t.Error("Media should be an empty list, got nil")
	}
	if p.Metrics.Likes != 0 || p.Metrics.Views != 10 {
		t.Errorf("Metrics = %+v, want likes 0 views 10", p.Metrics)
	}
	if !reflect.DeepEqual(p.Entities.Hashtags, []string{"world"}) {
		t.Errorf("Hashtags = %v, want [world]", p.Entities.Hashtags)
	}
	if p.ReplyToHandle != "" {
		t.Errorf("ReplyToHandle = %q, want empty for a non-reply", p.ReplyToHandle)
	}
}
