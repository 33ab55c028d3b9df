package extract

import (
	"math"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

func TestSyntheticID(t *testing.T) {
	now := time.UnixMilli(1714557600000)
	tests := []struct {
		platform domain.Platform
		handle   string
		want     string
	}{
		{domain.PlatformMicroblog, "alice", "mb_alice_1714557600000"},
		{domain.PlatformShortVideo, "@bob", "sv_bob_1714557600000"},
		{domain.PlatformPhotoShare, "", "ps_unknown_1714557600000"},
		{domain.PlatformLongVideo, "  ", "lv_unknown_1714557600000"},
	}
	for _, tt := range tests {
		got := SyntheticID(tt.platform, tt.handle, now)
		if got != tt.want {
			t.Errorf("SyntheticID(%s, %q) = %q, want %q", tt.platform, tt.handle, got, tt.want)
		}
		if !IsSyntheticID(tt.platform, got) {
			t.Errorf("IsSyntheticID(%q) = false", got)
		}
	}
}

func TestSnowflakeTime(t *testing.T) {
	tests := []struct {
		name     string
		platform domain.Platform
		id       string
		want     time.Time
		ok       bool
	}{
		{"microblog", domain.PlatformMicroblog, "1790000000000000000", time.UnixMilli(1715604231248).UTC(), true},
		{"short video", domain.PlatformShortVideo, "7350000000000000000", time.Unix(1711305230, 0).UTC(), true},
		{"not numeric", domain.PlatformMicroblog, "mb_alice_1", time.Time{}, false},
		{"photo share has no snowflake", domain.PlatformPhotoShare, "123", time.Time{}, false},
		{"empty", domain.PlatformMicroblog, "", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SnowflakeTime(tt.platform, tt.id)
			if ok != tt.ok {
				t.Fatalf("SnowflakeTime() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("SnowflakeTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"PT1M30S", 90, true},
		{"PT3M33S", 213, true},
		{"PT1H", 3600, true},
		{"P1DT2S", 86402, true},
		{"pt45s", 45, true},
		{"PT", 0, false},
		{"90", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseISODuration(tt.in)
		if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseISODuration(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseClockDuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3:33", 213, true},
		{"1:02:03", 3723, true},
		{"0:05", 5, true},
		{"45", 0, false},
		{"a:b", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseClockDuration(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseClockDuration(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want domain.Platform
		ok   bool
	}{
		{"https://x.com/alice/status/1", domain.PlatformMicroblog, true},
		{"https://mobile.twitter.com/alice", domain.PlatformMicroblog, true},
		{"https://www.tiktok.com/@bob/video/2", domain.PlatformShortVideo, true},
		{"https://www.instagram.com/p/abc/", domain.PlatformPhotoShare, true},
		{"https://m.youtube.com/watch?v=xyz", domain.PlatformLongVideo, true},
		{"https://youtu.be/xyz", domain.PlatformLongVideo, true},
		{"https://example.com/", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectPlatform(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectPlatform(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseOGDescription(t *testing.T) {
	got, ok := ParseOGDescription(`1,234 likes, 56 comments - alice.photos on May 1, 2024: "Sunset over the bay #travel"`)
	if !ok {
		t.Fatal("ParseOGDescription() failed")
	}
	if got.Likes != 1234 || got.Comments != 56 {
		t.Errorf("counts = %d/%d, want 1234/56", got.Likes, got.Comments)
	}
	if got.Handle != "alice.photos" {
		t.Errorf("Handle = %q", got.Handle)
	}
	if got.Caption != "Sunset over the bay #travel" {
		t.Errorf("Caption = %q", got.Caption)
	}
	if got.Date == nil || !got.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", got.Date)
	}

	if _, ok := ParseOGDescription("just a caption"); ok {
		t.Error("ParseOGDescription() accepted free text")
	}
}
