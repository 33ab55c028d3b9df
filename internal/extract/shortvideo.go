package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

var (
	svVideoRe  = regexp.MustCompile(`/@([^/?#]+)/video/(\d+)`)
	svHandleRe = regexp.MustCompile(`/@([^/?#]+)`)
)

// ShortVideo reads vertical video feeds and single video pages.
type ShortVideo struct{}

func (ShortVideo) Platform() domain.Platform { return domain.PlatformShortVideo }

func (ShortVideo) Container(page *Page, clicked *goquery.Selection) *goquery.Selection {
	return FindContainer(page, clicked, ContainerRules{
		Structural: []string{
			`[data-e2e="recommend-list-item-container"]`,
			`[data-e2e="feed-video"]`,
			`[class*="DivItemContainer"]`,
		},
		MaxDepth:   20,
		Media:      "video",
		AuthorLink: `a[href*="/@"]`,
	})
}

func e2e(name string) string { return `[data-e2e="` + name + `"]` }

func (ShortVideo) Extract(c *Context) (*domain.CanonicalPost, error) {
	post := &domain.CanonicalPost{}

	post.ExternalID, _ = First(c,
		MatchAll(`a[href*="/video/"]`, "href", svVideoRe, 2),
		Attr(`[data-video-id]`, "data-video-id"),
		Match(Canonical(), svVideoRe, 2),
		Match(PageURL(), svVideoRe, 2),
	)

	handle, _ := First(c,
		Text(e2e("video-author-uniqueid")),
		Text(e2e("browse-username")),
		MatchAll(`a[href*="/@"]`, "href", svHandleRe, 1),
		ClassContains("AuthorTitle", ""),
		Match(Canonical(), svHandleRe, 1),
		Match(PageURL(), svHandleRe, 1),
	)
	post.Author = domain.Author{
		Handle:      strings.TrimPrefix(handle, "@"),
		DisplayName: FirstOr(c, "", Text(e2e("video-author-nickname")), Text(e2e("browser-nickname")), ClassContains("AuthorName", "")),
		AvatarURL:   c.Page.Resolve(FirstOr(c, "", Attr(e2e("video-avatar")+" img", "src"), Attr(`[class*="Avatar"] img`, "src"))),
	}
	if post.Author.DisplayName == "" {
		post.Author.DisplayName = post.Author.Handle
	}

	post.Text = FirstOr(c, "",
		Block(e2e("video-desc")+", "+e2e("browse-video-desc")),
		ClassContains("DivDescription", ""),
	)
	if post.Text == "" && c.IsWholePage() {
		post.Text = FirstOr(c, "", Meta("og:description"), Meta("description"))
	}

	post.Metrics = domain.Metrics{
		Likes:     metricFrom(c, Text(e2e("like-count")), Text(e2e("browse-like-count"))),
		Replies:   metricFrom(c, Text(e2e("comment-count")), Text(e2e("browse-comment-count"))),
		Reshares:  metricFrom(c, Text(e2e("share-count"))),
		Bookmarks: metricFrom(c, Text(e2e("undefined-count")), Text(e2e("favorite-count"))),
		Views:     metricFrom(c, Text(e2e("video-views"))),
	}

	if t, ok := SnowflakeTime(domain.PlatformShortVideo, post.ExternalID); ok {
		post.OriginalCreatedAt = &t
	}

	video := c.Container.Find("video").First()
	if video.Length() > 0 {
		fallback := ""
		if post.ExternalID != "" && post.Author.Handle != "" {
			fallback = videoURL(post.Author.Handle, post.ExternalID)
		}
		post.Media = MediaCollector{}.Videos(c, video, fallback)
		if d, ok := First(c, Text(`[class*="SeekBarTimeContainer"]`), Text(e2e("video-duration"))); ok {
			// "0:12 / 0:45": the total is the last clock
			parts := strings.Split(d, "/")
			if secs, ok := ParseClockDuration(strings.TrimSpace(parts[len(parts)-1])); ok && len(post.Media) > 0 {
				post.Media[0].DurationSeconds = &secs
			}
		}
	} else if img, ok := Meta("og:image")(c); ok && c.IsWholePage() {
		post.Media = []domain.Media{{Kind: domain.MediaVideo, URL: FirstOr(c, "", Canonical(), PageURL()), ThumbnailURL: img}}
	}

	if post.ExternalID != "" && post.Author.Handle != "" {
		post.SourceURL = videoURL(post.Author.Handle, post.ExternalID)
	} else {
		post.SourceURL = FirstOr(c, "", Canonical(), PageURL())
	}
	return post, nil
}

func videoURL(handle, id string) string {
	return "https://www.tiktok.com/@" + handle + "/video/" + id
}

func (ShortVideo) SaveAction(control *goquery.Selection) (Action, bool) {
	v, _ := control.Attr("data-e2e")
	switch v {
	case "like-icon", "browse-like-icon":
		return ActionLike, true
	case "favorite-icon", "undefined-icon", "browse-favorite-icon":
		return ActionBookmark, true
	case "share-repost", "repost-icon":
		return ActionRepost, true
	}
	return "", false
}

func (s ShortVideo) ToggleAction(target *goquery.Selection, attr, oldValue, newValue string) (Action, bool) {
	if attr != "aria-pressed" || oldValue == "true" || newValue != "true" {
		return "", false
	}
	return s.SaveAction(target)
}
