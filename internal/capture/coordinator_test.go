package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/extract"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/storage"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

const timeline = `<html><head><title>Home / X</title></head><body><main>
<article data-testid="tweet" id="t1">
  <div data-testid="User-Name"><a href="/carol"><span>Carol</span></a><a href="/carol"><span>@carol</span></a><a href="/carol/status/1111"><time datetime="2024-04-01T08:00:00.000Z">Apr 1</time></a></div>
  <div data-testid="tweetText"><span>first post</span></div>
  <div role="group"><button data-testid="like" aria-label="3 Likes. Like" id="like1"></button></div>
</article>
<article data-testid="tweet" id="t2">
  <div data-testid="User-Name"><a href="/alice"><span>Alice</span></a><a href="/alice"><span>@alice</span></a><a href="/alice/status/2222"><time datetime="2024-05-13T12:43:51.000Z">May 13</time></a></div>
  <div data-testid="tweetText"><span>second post</span></div>
  <div role="group"><button data-testid="like" aria-label="30 Likes. Like" id="like2"><div><svg id="icon2"></svg></div></button></div>
</article>
<div id="float"><button data-testid="bookmark" id="floating"></button></div>
</main></body></html>`

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newSender(t *testing.T) (transport.Sender, *storage.Engine) {
	t.Helper()
	log := logger.New("error", false)
	e := storage.New(index.NewMemoryIndex(), log)
	return transport.Local{Dispatcher: transport.NewDispatcher(transport.Deps{Engine: e}, log)}, e
}

func newCoordinator(sender transport.Sender, opts ...Option) *Coordinator {
	opts = append([]Option{WithSettle(0), WithClock(func() time.Time { return now })}, opts...)
	return New(extract.Microblog{}, sender, logger.New("error", false), opts...)
}

func mustPage(t *testing.T, src string) *extract.Page {
	t.Helper()
	p, err := extract.ParsePage("https://x.com/home", src)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	return p
}

func TestHandleClickSavesOnce(t *testing.T) {
	sender, e := newSender(t)
	c := newCoordinator(sender)
	page := mustPage(t, timeline)
	ctx := context.Background()

	out := c.HandleClick(ctx, page, page.Doc.Find("#icon2"))
	if out.Status != StatusSaved || out.Action != extract.ActionLike {
		t.Fatalf("first click = %+v", out)
	}
	if out.Record == nil || out.Record.ExternalID != "2222" || out.Record.Author.Handle != "alice" {
		t.Fatalf("Record = %+v", out.Record)
	}
	if !out.Record.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want %v", out.Record.CapturedAt, now)
	}

	if again := c.HandleClick(ctx, page, page.Doc.Find("#like2")); again.Status != StatusSuppressed {
		t.Errorf("second click = %+v, want suppressed", again)
	}

	// A second coordinator has its own recent set, so storage dedups.
	other := newCoordinator(sender)
	if dup := other.HandleClick(ctx, page, page.Doc.Find("#like2")); dup.Status != StatusDuplicate || dup.Record != nil {
		t.Errorf("other coordinator = %+v, want duplicate", dup)
	}

	all, _ := e.All(ctx)
	if len(all) != 1 {
		t.Errorf("stored %d records, want 1", len(all))
	}
}

func TestHandleClickIgnoresOtherElements(t *testing.T) {
	sender, _ := newSender(t)
	c := newCoordinator(sender)
	page := mustPage(t, timeline)

	for _, sel := range []string{`#t1 [data-testid="tweetText"] span`, "main", "#nothing"} {
		if out := c.HandleClick(context.Background(), page, page.Doc.Find(sel)); out.Status != StatusIgnored {
			t.Errorf("click on %s = %+v, want ignored", sel, out)
		}
	}
}

func TestHandleMutation(t *testing.T) {
	sender, _ := newSender(t)
	c := newCoordinator(sender)
	page := mustPage(t, timeline)
	ctx := context.Background()
	target := page.Doc.Find("#like1")

	tests := []struct {
		name string
		m    Mutation
		want Status
	}{
		{"unrelated attribute", Mutation{Target: target, Attr: "class", OldValue: "a", NewValue: "b"}, StatusIgnored},
		{"unsave", Mutation{Target: target, Attr: "data-testid", OldValue: "unlike", NewValue: "like"}, StatusIgnored},
		{"no target", Mutation{Attr: "data-testid", OldValue: "like", NewValue: "unlike"}, StatusIgnored},
		{"like", Mutation{Target: target, Attr: "data-testid", OldValue: "like", NewValue: "unlike"}, StatusSaved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.HandleMutation(ctx, page, tt.m)
			if out.Status != tt.want {
				t.Fatalf("Status = %s, want %s (%s)", out.Status, tt.want, out.Message)
			}
			if tt.want == StatusSaved && out.Record.ExternalID != "1111" {
				t.Errorf("captured %s, want 1111", out.Record.ExternalID)
			}
		})
	}
}

func TestHoverBreaksTies(t *testing.T) {
	sender, _ := newSender(t)
	c := newCoordinator(sender)
	page := mustPage(t, timeline)

	c.TrackHover(page.Doc.Find(`#t1 [data-testid="tweetText"]`))
	out := c.HandleClick(context.Background(), page, page.Doc.Find("#floating"))
	if out.Status != StatusSaved || out.Action != extract.ActionBookmark {
		t.Fatalf("click = %+v", out)
	}
	if out.Record.ExternalID != "1111" {
		t.Errorf("captured %s, want the hovered post 1111", out.Record.ExternalID)
	}

	// Hover from another snapshot is not trusted.
	stale := mustPage(t, timeline)
	c.TrackHover(stale.Doc.Find(`#t2 [data-testid="tweetText"]`))
	if got := c.container(page, page.Doc.Find("#floating")); !isRoot(page, got) {
		t.Error("hover from another document was used")
	}
}

func TestSettleDelayHonoursContext(t *testing.T) {
	sender, e := newSender(t)
	c := newCoordinator(sender, WithSettle(time.Hour))
	page := mustPage(t, timeline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.HandleClick(ctx, page, page.Doc.Find("#like2"))
	if out.Status != StatusFailed || out.Message != "Capture cancelled" {
		t.Fatalf("out = %+v", out)
	}
	if all, _ := e.All(context.Background()); len(all) != 0 {
		t.Errorf("stored %d records during a cancelled capture", len(all))
	}
}

type brokenSender struct{}

func (brokenSender) Send(context.Context, transport.Request) (transport.Response, error) {
	return transport.Response{}, errors.New("connection refused")
}

func TestDeliveryFailure(t *testing.T) {
	c := newCoordinator(brokenSender{})
	page := mustPage(t, timeline)

	out := c.HandleClick(context.Background(), page, page.Doc.Find("#like2"))
	if out.Status != StatusFailed {
		t.Fatalf("out = %+v, want failed", out)
	}
}

// flakySender fails its first call with resp/err, then delivers through next.
type flakySender struct {
	next  transport.Sender
	resp  transport.Response
	err   error
	calls int
}

func (f *flakySender) Send(ctx context.Context, req transport.Request) (transport.Response, error) {
	f.calls++
	if f.calls == 1 {
		return f.resp, f.err
	}
	return f.next.Send(ctx, req)
}

func TestRetryAfterFailedDelivery(t *testing.T) {
	tests := []struct {
		name string
		resp transport.Response
		err  error
	}{
		{name: "transport error", err: errors.New("connection refused")},
		{name: "error response", resp: transport.Fail(errors.New("store unavailable"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, e := newSender(t)
			sender := &flakySender{next: next, resp: tt.resp, err: tt.err}
			c := newCoordinator(sender)
			page := mustPage(t, timeline)
			ctx := context.Background()

			if out := c.HandleClick(ctx, page, page.Doc.Find("#like2")); out.Status != StatusFailed {
				t.Fatalf("first click = %+v, want failed", out)
			}
			if c.Recent().Len() != 0 {
				t.Errorf("failed capture still claimed in the recent set")
			}
			if out := c.HandleClick(ctx, page, page.Doc.Find("#like2")); out.Status != StatusSaved {
				t.Fatalf("retry = %+v, want saved", out)
			}
			if all, _ := e.All(ctx); len(all) != 1 {
				t.Errorf("stored %d records, want 1", len(all))
			}
		})
	}
}

func TestRouterSnapshot(t *testing.T) {
	sender, _ := newSender(t)
	enabled := map[domain.Platform]bool{domain.PlatformMicroblog: true}
	r := NewRouter(extract.DefaultRegistry(), sender,
		func(_ context.Context, p domain.Platform) bool { return enabled[p] },
		logger.New("error", false), WithSettle(0))
	ctx := context.Background()

	marked := `<html><body><article data-testid="tweet">
  <div data-testid="User-Name"><a href="/alice"><span>Alice</span></a><a href="/alice/status/3333"><time datetime="2024-05-13T12:43:51.000Z">May 13</time></a></div>
  <div data-testid="tweetText">snapshot post</div>
  <button data-testid="like"><svg data-stash-target="1"></svg></button>
</article></body></html>`

	out := r.HandleSnapshot(ctx, Snapshot{URL: "https://x.com/home", HTML: marked, Event: EventClick})
	if out.Status != StatusSaved || out.Record.ExternalID != "3333" {
		t.Fatalf("snapshot = %+v", out)
	}

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"unknown site", Snapshot{URL: "https://example.com", HTML: marked}},
		{"disabled platform", Snapshot{URL: "https://www.tiktok.com/foryou", HTML: marked}},
		{"no target", Snapshot{URL: "https://x.com/home", HTML: timeline}},
		{"unknown event", Snapshot{URL: "https://x.com/home", HTML: marked, Event: "scroll"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out := r.HandleSnapshot(ctx, tt.snap); out.Status != StatusIgnored {
				t.Errorf("out = %+v, want ignored", out)
			}
		})
	}

	mutated := `<html><body><article data-testid="tweet">
  <div data-testid="User-Name"><a href="/bob"><span>Bob</span></a><a href="/bob/status/4444"><time datetime="2024-05-13T12:43:51.000Z">May 13</time></a></div>
  <div data-testid="tweetText">toggled post</div>
  <button data-testid="unbookmark" data-stash-target="1"></button>
</article></body></html>`
	out = r.HandleSnapshot(ctx, Snapshot{
		Platform: domain.PlatformMicroblog, URL: "https://x.com/home", HTML: mutated,
		Event: EventMutation, Attr: "data-testid", OldValue: "bookmark", NewValue: "removeBookmark",
	})
	if out.Status != StatusSaved || out.Action != extract.ActionBookmark || out.Record.ExternalID != "4444" {
		t.Errorf("mutation snapshot = %+v", out)
	}
}
