package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

var (
	psShortcodeRe = regexp.MustCompile(`/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

	// "1,234 likes, 56 comments - alice on May 1, 2024: "caption""
	psOGDescRe = regexp.MustCompile(`(?s)^\s*([\d.,]+[KMBkmb]?)\s+likes?,\s*([\d.,]+[KMBkmb]?)\s+comments?\s*-\s*([A-Za-z0-9._]+)\s+on\s+([^:]+?):\s*"?(.*?)"?\s*$`)
)

// OGDescription is the structured summary photo-share pages publish.
type OGDescription struct {
	Likes    int64
	Comments int64
	Handle   string
	Date     *time.Time
	Caption  string
}

// ParseOGDescription reads an og:description of the form
// `N likes, M comments - handle on date: "caption"`.
func ParseOGDescription(s string) (OGDescription, bool) {
	m := psOGDescRe.FindStringSubmatch(s)
	if m == nil {
		return OGDescription{}, false
	}
	d := OGDescription{
		Likes:    domain.ParseMetric(m[1]),
		Comments: domain.ParseMetric(m[2]),
		Handle:   m[3],
		Caption:  strings.TrimSpace(m[5]),
	}
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(m[4])); err == nil {
			d.Date = &t
			break
		}
	}
	return d, true
}

// PhotoShare reads image-first posts and reels.
type PhotoShare struct{}

func (PhotoShare) Platform() domain.Platform { return domain.PlatformPhotoShare }

func (PhotoShare) Container(page *Page, clicked *goquery.Selection) *goquery.Selection {
	return FindContainer(page, clicked, ContainerRules{
		Structural: []string{"article", `div[role="dialog"]`},
		MaxDepth:   15,
		Media:      "img, video",
		AuthorLink: `header a[href^="/"]`,
	})
}

func (PhotoShare) Extract(c *Context) (*domain.CanonicalPost, error) {
	post := &domain.CanonicalPost{}
	header := c.Container.Find("header").First()

	post.ExternalID, _ = First(c,
		MatchAll(`a[href*="/p/"], a[href*="/reel/"]`, "href", psShortcodeRe, 1),
		Match(Canonical(), psShortcodeRe, 1),
		Match(PageURL(), psShortcodeRe, 1),
		Match(Meta("og:url"), psShortcodeRe, 1),
	)

	var og OGDescription
	var hasOG bool
	if c.IsWholePage() {
		if desc, ok := Meta("og:description")(c); ok {
			og, hasOG = ParseOGDescription(desc)
		}
	}

	handle, _ := First(c.Within(header),
		Map(Attr(`a[href^="/"]`, "href"), func(href string) (string, bool) {
			h := handleFromPath(href)
			return h, h != "" && h != "p" && h != "reel"
		}),
		Text("a"),
	)
	if handle == "" && hasOG {
		handle = og.Handle
	}
	post.Author = domain.Author{
		Handle:      handle,
		DisplayName: handle,
		AvatarURL:   c.Page.Resolve(FirstOr(c.Within(header), "", Attr("img", "src"))),
	}
	if header.Find(`svg[aria-label="Verified"]`).Length() > 0 {
		post.Author.Verified = domain.VerifiedStandard
	}

	post.Text = FirstOr(c, "", Block("h1"), ClassContains("Caption", ""))
	if post.Text == "" && hasOG {
		post.Text = og.Caption
	}

	if ts, ok := Attr("time[datetime]", "datetime")(c); ok {
		if t, ok := parseTime(ts); ok {
			post.OriginalCreatedAt = &t
		}
	}
	if post.OriginalCreatedAt == nil && hasOG {
		post.OriginalCreatedAt = og.Date
	}

	post.Metrics.Likes = metricFrom(c,
		Text(`a[href$="/liked_by/"]`),
		Text(`a[href*="liked_by"]`),
		Text(`section span[class*="Likes"]`),
	)
	if post.Metrics.Likes == 0 && hasOG {
		post.Metrics.Likes = og.Likes
	}
	if hasOG {
		post.Metrics.Replies = og.Comments
	}

	collector := MediaCollector{Exclude: []*goquery.Selection{header}}
	post.Media = collector.Videos(c, c.Container.Find("video"), "")
	if imgs := collector.Images(c, c.Container.Find("img")); len(imgs) > 0 {
		// the first non-avatar image is the post itself
		post.Media = append(post.Media, imgs[0])
	}
	if len(post.Media) == 0 && c.IsWholePage() {
		if img, ok := Meta("og:image")(c); ok {
			post.Media = []domain.Media{{Kind: domain.MediaImage, URL: img, ThumbnailURL: img}}
		}
	}

	if post.ExternalID != "" {
		post.SourceURL = "https://www.instagram.com/p/" + post.ExternalID + "/"
	} else {
		post.SourceURL = FirstOr(c, "", Canonical(), PageURL())
	}
	return post, nil
}

func (PhotoShare) SaveAction(control *goquery.Selection) (Action, bool) {
	label := svgLabel(control)
	switch label {
	case "Like":
		return ActionLike, true
	case "Save":
		return ActionBookmark, true
	}
	return "", false
}

func (PhotoShare) ToggleAction(_ *goquery.Selection, attr, oldValue, newValue string) (Action, bool) {
	if attr != "aria-label" {
		return "", false
	}
	switch {
	case oldValue == "Like" && newValue == "Unlike":
		return ActionLike, true
	case oldValue == "Save" && newValue == "Remove":
		return ActionBookmark, true
	}
	return "", false
}

// svgLabel returns the aria-label of control, or of the svg it wraps.
func svgLabel(control *goquery.Selection) string {
	if goquery.NodeName(control) == "svg" {
		v, _ := control.Attr("aria-label")
		return v
	}
	v, _ := control.Find("svg[aria-label]").First().Attr("aria-label")
	return v
}
