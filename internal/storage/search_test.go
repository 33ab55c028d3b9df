package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

func TestSearchFiltersThenScores(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, base)
	ctx := context.Background()

	hello := post("1", "hello world")
	hello.CapturedAt = base
	goodbye := post("2", "goodbye world")
	goodbye.CapturedAt = base.Add(time.Hour)
	video := post("3", "hello from video land")
	video.Platform = domain.PlatformLongVideo
	video.CapturedAt = base.Add(2 * time.Hour)

	for _, p := range []*domain.CanonicalPost{hello, goodbye, video} {
		if _, err := e.Insert(ctx, p); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	res, err := e.Search(ctx, SearchRequest{Query: "hello"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := hitIDs(res.Items); !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Errorf("Search(hello) = %v, want [3 1]", got)
	}

	res, _ = e.Search(ctx, SearchRequest{
		Query:   "hello",
		Filters: domain.FilterSpec{Platform: domain.PlatformMicroblog},
	})
	if got := hitIDs(res.Items); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("filtered Search(hello) = %v, want [1]", got)
	}
	if res.Items[0].Score != 0 {
		t.Errorf("exact match score = %f, want 0", res.Items[0].Score)
	}

	res, _ = e.Search(ctx, SearchRequest{})
	if got := hitIDs(res.Items); !reflect.DeepEqual(got, []string{"3", "2", "1"}) {
		t.Errorf("empty Search() = %v, want recency order [3 2 1]", got)
	}
}

func TestFilterAndSemantics(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	ctx := context.Background()

	bare := post("1", "no media")
	withMedia := post("2", "has media")
	withMedia.Media = []domain.Media{{Kind: domain.MediaImage, URL: "https://img.example/a.jpg"}}

	_, _ = e.Insert(ctx, bare)
	_, _ = e.Insert(ctx, withMedia)

	yes := true
	got, err := e.Filter(ctx, domain.FilterSpec{Platform: domain.PlatformMicroblog, HasMedia: &yes})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "2" {
		t.Errorf("Filter() = %v, want [2]", externalIDs(got))
	}
}

func TestSearchPagination(t *testing.T) {
	e, _ := newTestEngine(t, time.Now())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, _ = e.Insert(ctx, post(id, "golang"))
	}

	res, _ := e.Search(ctx, SearchRequest{Query: "golang", Page: 2, PageSize: 2})
	if res.Total != 3 || res.TotalPages != 2 || len(res.Items) != 1 {
		t.Errorf("Search page 2 = total %d pages %d items %d", res.Total, res.TotalPages, len(res.Items))
	}
}

func hitIDs(hits []domain.ScoredRecord) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.ExternalID
	}
	return out
}
