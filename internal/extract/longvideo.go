package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

var (
	lvWatchRe   = regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`)
	lvShortsRe  = regexp.MustCompile(`/(?:shorts|embed|live)/([A-Za-z0-9_-]{6,})`)
	lvShortURL  = regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`)
	lvChannelRe = regexp.MustCompile(`/(@[^/?#]+|channel/[^/?#]+|c/[^/?#]+|user/[^/?#]+)`)
)

// LongVideo reads watch pages and feed tiles of long-form video sites.
type LongVideo struct{}

func (LongVideo) Platform() domain.Platform { return domain.PlatformLongVideo }

func (LongVideo) Container(page *Page, clicked *goquery.Selection) *goquery.Selection {
	return FindContainer(page, clicked, ContainerRules{
		Structural: []string{
			"ytd-rich-item-renderer",
			"ytd-video-renderer",
			"ytd-reel-item-renderer",
			"ytd-watch-flexy",
		},
		MaxDepth:   20,
		Media:      "img, video, yt-image",
		AuthorLink: `a[href^="/@"], a[href*="/channel/"], ytd-channel-name a`,
	})
}

func (LongVideo) Extract(c *Context) (*domain.CanonicalPost, error) {
	post := &domain.CanonicalPost{}

	post.ExternalID, _ = First(c,
		Attr("ytd-watch-flexy[video-id]", "video-id"),
		onSelf("ytd-watch-flexy", "video-id"),
		watchOnly(Match(PageURL(), lvWatchRe, 1)),
		MatchAll(`a#video-title-link, a#thumbnail, a[href*="watch?v="]`, "href", lvWatchRe, 1),
		MatchAll(`a[href*="/shorts/"]`, "href", lvShortsRe, 1),
		watchOnly(Meta("identifier")),
		watchOnly(Meta("videoId")),
		Match(Canonical(), lvWatchRe, 1),
		Match(PageURL(), lvWatchRe, 1),
		Match(PageURL(), lvShortsRe, 1),
		Match(PageURL(), lvShortURL, 1),
	)

	title := FirstOr(c, "",
		Text("#video-title"),
		Text("h1.ytd-watch-metadata"),
		Text("h1 yt-formatted-string"),
		Text("h1"),
		watchOnly(Meta("og:title")),
		Map(watchOnly(Title()), func(t string) (string, bool) {
			t = strings.TrimSuffix(t, " - YouTube")
			return t, t != ""
		}),
	)
	desc := FirstOr(c, "",
		Block("#description-inline-expander yt-attributed-string"),
		Block("#description yt-formatted-string"),
		Block("#description-text"),
	)
	if desc == "" && isWatchPage(c) {
		desc = FirstOr(c, "", Meta("og:description"), Meta("description"))
	}
	post.Text = strings.TrimSpace(strings.Join(nonEmpty(title, desc), "\n\n"))

	channelHref := FirstOr(c, "", Attr("ytd-channel-name a", "href"), Attr("#channel-name a", "href"), Attr(`a[href^="/@"]`, "href"))
	post.Author = domain.Author{
		DisplayName: FirstOr(c, "",
			Text("ytd-channel-name a"),
			Text("#channel-name a"),
			Text("ytd-channel-name"),
			OnPage(Attr(`span[itemprop="author"] link[itemprop="name"]`, "content")),
		),
		AvatarURL: c.Page.Resolve(FirstOr(c, "", Attr("#owner #avatar img", "src"), Attr("#avatar-link img", "src"), Attr("#avatar img", "src"))),
	}
	if m := lvChannelRe.FindStringSubmatch(channelHref); m != nil {
		post.Author.Handle = strings.TrimPrefix(m[1], "@")
	}
	if post.Author.Handle == "" {
		post.Author.Handle = post.Author.DisplayName
	}
	if c.Container.Find(`ytd-channel-name ytd-badge-supported-renderer, .badge-style-type-verified`).Length() > 0 {
		post.Author.Verified = domain.VerifiedStandard
	}

	post.Metrics = domain.Metrics{
		Likes: metricFrom(c,
			Attr("like-button-view-model button", "aria-label"),
			Attr(`#top-level-buttons-computed button[aria-label*="like"]`, "aria-label"),
			Text("like-button-view-model"),
		),
		Views: metricFrom(c,
			Text("#metadata-line span"),
			Text("#info span"),
			Text("span.view-count"),
			watchOnly(Meta("interactionCount")),
		),
		Replies: metricFrom(c, Text("ytd-comments-header-renderer #count")),
	}

	if ts, ok := First(c, watchOnly(Meta("uploadDate")), watchOnly(Meta("datePublished"))); ok {
		if t, ok := parseTime(ts); ok {
			post.OriginalCreatedAt = &t
		}
	}

	post.Media = longVideoMedia(c, post.ExternalID)

	switch {
	case post.ExternalID != "":
		post.SourceURL = "https://www.youtube.com/watch?v=" + post.ExternalID
	default:
		post.SourceURL = FirstOr(c, "", Canonical(), PageURL())
	}
	return post, nil
}

func longVideoMedia(c *Context, id string) []domain.Media {
	thumb := FirstOr(c, "",
		Attr("ytd-thumbnail img", "src"),
		Attr("#thumbnail img", "src"),
	)
	watch := isWatchPage(c)
	if thumb == "" && watch {
		thumb = FirstOr(c, "", Meta("og:image"))
	}
	if thumb == "" && id != "" {
		thumb = "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
	}
	if thumb == "" {
		return nil
	}

	media := domain.Media{Kind: domain.MediaVideo, ThumbnailURL: c.Page.Resolve(thumb)}
	if id != "" {
		media.URL = "https://www.youtube.com/watch?v=" + id
	}

	if iso, ok := Meta("duration")(c); ok && watch {
		if secs, ok := ParseISODuration(iso); ok {
			media.DurationSeconds = &secs
		}
	}
	if media.DurationSeconds == nil {
		if clock, ok := First(c, Text("ytd-thumbnail-overlay-time-status-renderer #text"), Text(".ytp-time-duration")); ok {
			if secs, ok := ParseClockDuration(clock); ok {
				media.DurationSeconds = &secs
			}
		}
	}
	return []domain.Media{media}
}

// isWatchPage reports whether page-level metadata describes the container.
func isWatchPage(c *Context) bool {
	return c.IsWholePage() || c.Container.Is("ytd-watch-flexy")
}

// watchOnly limits a page-level resolver to watch pages.
func watchOnly(r Resolver[string]) Resolver[string] {
	return func(c *Context) (string, bool) {
		if !isWatchPage(c) {
			return "", false
		}
		return r(c)
	}
}

// onSelf reads attr from the container itself when it matches sel.
func onSelf(sel, attr string) Resolver[string] {
	return func(c *Context) (string, bool) {
		if !c.Container.Is(sel) {
			return "", false
		}
		v, _ := c.Container.Attr(attr)
		v = strings.TrimSpace(v)
		return v, v != ""
	}
}

func nonEmpty(ss ...string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (LongVideo) SaveAction(control *goquery.Selection) (Action, bool) {
	label, _ := control.Attr("aria-label")
	label = strings.ToLower(label)
	switch {
	case strings.HasPrefix(label, "like this video"):
		return ActionLike, true
	case strings.HasPrefix(label, "save"):
		return ActionBookmark, true
	}
	return "", false
}

func (l LongVideo) ToggleAction(target *goquery.Selection, attr, oldValue, newValue string) (Action, bool) {
	if attr != "aria-pressed" || oldValue == "true" || newValue != "true" {
		return "", false
	}
	return l.SaveAction(target)
}
