package importer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

func TestCSVParse(t *testing.T) {
	in := "\uFEFFTweet_ID,Full_Text,Screen_Name,Like_Count,Created_At,Media_URLs\n" +
		"1,hello world,@alice,1.2K,2024-05-01,https://img.example/1.jpg|https://img.example/2.jpg\n" +
		",,,,,\n" +
		"2,second post,bob,3,,\n"

	res, err := (&CSV{Platform: domain.PlatformMicroblog}).Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, blank rows are not failures", res.Skipped)
	}
	posts := res.Posts
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}

	p := posts[0]
	if p.ExternalID != "1" || p.Text != "hello world" {
		t.Errorf("post = %+v", p)
	}
	if p.Author.Handle != "alice" || p.Author.DisplayName != "alice" {
		t.Errorf("Author = %+v", p.Author)
	}
	if p.Metrics.Likes != 1200 {
		t.Errorf("Likes = %d, want 1200", p.Metrics.Likes)
	}
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if p.OriginalCreatedAt == nil || !p.OriginalCreatedAt.Equal(want) {
		t.Errorf("OriginalCreatedAt = %v", p.OriginalCreatedAt)
	}
	if len(p.Media) != 2 || p.Media[1].URL != "https://img.example/2.jpg" {
		t.Errorf("Media = %+v", p.Media)
	}

	if posts[1].OriginalCreatedAt != nil {
		t.Errorf("empty date should stay nil, got %v", posts[1].OriginalCreatedAt)
	}
	if posts[1].Platform != domain.PlatformMicroblog {
		t.Errorf("Platform = %q", posts[1].Platform)
	}
}

func TestCSVPlatformColumn(t *testing.T) {
	in := "id,text,platform\nabc,clip,Short-Video\n"
	res, err := (&CSV{}).Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	posts := res.Posts
	if len(posts) != 1 || posts[0].Platform != domain.PlatformShortVideo {
		t.Fatalf("posts = %+v", posts)
	}
}

func TestCSVSkipsBadRows(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantIDs     []string
		wantSkipped int
	}{
		{
			name:        "empty id",
			in:          "id,text\n1,first\n,orphan\n3,third\n",
			wantIDs:     []string{"1", "3"},
			wantSkipped: 1,
		},
		{
			name:        "unknown platform",
			in:          "id,text,platform\n1,x,myspace\n2,y,photo-share\n",
			wantIDs:     []string{"2"},
			wantSkipped: 1,
		},
		{
			name:        "no default platform",
			in:          "id,text\n1,x\n",
			wantSkipped: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&CSV{}).Parse(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			var ids []string
			for _, p := range res.Posts {
				ids = append(ids, p.ExternalID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
			if res.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %d, want %d", res.Skipped, tt.wantSkipped)
			}
		})
	}
}

func TestCSVMalformed(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantMsg string
	}{
		{"empty", "", "empty csv"},
		{"missing id column", "text\nhello\n", "missing id column"},
		{"missing text column", "id\n1\n", "missing text column"},
		{"broken quoting", "id,text\n1,\"open\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&CSV{}).Parse(strings.NewReader(tt.in))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("Parse() error = %v, want ErrMalformed", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}
