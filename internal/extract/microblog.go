package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

var (
	statusRe      = regexp.MustCompile(`/status(?:es)?/(\d+)`)
	groupMetricRe = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?\s*[kmb]?)\s+(repl(?:y|ies)|reposts?|retweets?|likes?|bookmarks?|views?)`)
)

const (
	mbUserName  = `[data-testid="User-Name"]`
	mbText      = `[data-testid="tweetText"]`
	mbQuote     = `div[role="link"]`
	mbPhoto     = `[data-testid="tweetPhoto"] img`
	mbVideo     = `[data-testid="videoPlayer"] video`
	mbAvatar    = `[data-testid="Tweet-User-Avatar"] img`
	mbCard      = `[data-testid="card.wrapper"]`
	mbActionBar = `[role="group"]`
)

// Microblog reads short text posts with reposts, quotes and link cards.
type Microblog struct{}

func (Microblog) Platform() domain.Platform { return domain.PlatformMicroblog }

func (Microblog) Container(page *Page, clicked *goquery.Selection) *goquery.Selection {
	return FindContainer(page, clicked, ContainerRules{
		Structural: []string{`article[data-testid="tweet"]`, `article[role="article"]`},
		MaxDepth:   15,
		Media:      "img, video",
		AuthorLink: mbUserName + " a",
	})
}

func (m Microblog) Extract(c *Context) (*domain.CanonicalPost, error) {
	quote := m.quoteRegion(c)
	post := &domain.CanonicalPost{}

	post.ExternalID, _ = First(c,
		MatchAll(`a:has(time)`, "href", statusRe, 1),
		MatchAll(`a[href*="/status/"]`, "href", statusRe, 1),
		Match(Canonical(), statusRe, 1),
		Match(PageURL(), statusRe, 1),
	)

	post.Author = m.author(c, quote)
	post.Text = blockText(outside(c.Container.Find(mbText), quote))
	if post.Text == "" && c.IsWholePage() {
		post.Text = FirstOr(c, "", Meta("og:description"))
	}

	if ts, ok := Attr("time[datetime]", "datetime")(c); ok {
		if t, ok := parseTime(ts); ok {
			post.OriginalCreatedAt = &t
		}
	}
	if post.OriginalCreatedAt == nil {
		if t, ok := SnowflakeTime(domain.PlatformMicroblog, post.ExternalID); ok {
			post.OriginalCreatedAt = &t
		}
	}

	post.Metrics = m.metrics(c)

	collector := MediaCollector{Exclude: []*goquery.Selection{c.Container.Find(`[data-testid="Tweet-User-Avatar"]`)}}
	post.Media = append(post.Media, collector.Images(c, outside(c.Container.Find(mbPhoto), quote))...)
	post.Media = append(post.Media, collector.Videos(c, outside(c.Container.Find(mbVideo), quote), "")...)

	post.LinkCard = m.card(c)
	if quote.Length() > 0 {
		post.QuotedPost = m.quoted(c.Within(quote))
	}

	post.ReplyToHandle, post.IsReply = m.replyTo(c, quote)

	if id := post.ExternalID; id != "" && post.Author.Handle != "" {
		post.SourceURL = "https://x.com/" + post.Author.Handle + "/status/" + id
	} else {
		post.SourceURL = FirstOr(c, "", Canonical(), PageURL())
	}
	return post, nil
}

func (Microblog) quoteRegion(c *Context) *goquery.Selection {
	var quote *goquery.Selection
	c.Container.Find(mbQuote).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find(mbUserName).Length() > 0 {
			quote = s
			return false
		}
		return true
	})
	if quote == nil {
		return c.Container.Slice(0, 0)
	}
	return quote
}

func (Microblog) author(c *Context, quote *goquery.Selection) domain.Author {
	a := domain.Author{Verified: domain.VerifiedNone}
	name := outside(c.Container.Find(mbUserName), quote).First()
	if name.Length() == 0 {
		return a
	}

	name.Find(`a[href^="/"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if h := handleFromPath(href); h != "" {
			a.Handle = h
			return false
		}
		return true
	})
	name.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := cleanText(s.Text())
		if strings.HasPrefix(t, "@") {
			if a.Handle == "" {
				a.Handle = strings.TrimPrefix(t, "@")
			}
			return true
		}
		if a.DisplayName == "" && t != "" && t != "·" {
			a.DisplayName = t
		}
		return true
	})

	a.Verified = verifiedTier(name)
	if src, ok := Attr(mbAvatar, "src")(c); ok {
		a.AvatarURL = c.Page.Resolve(src)
	}
	return a
}

func verifiedTier(name *goquery.Selection) domain.VerifiedTier {
	badge := name.Find(`[data-testid="icon-verified"], svg[aria-label*="erified"]`).First()
	if badge.Length() == 0 {
		return domain.VerifiedNone
	}
	label, _ := badge.Attr("aria-label")
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "government"):
		return domain.VerifiedGovernment
	case strings.Contains(label, "organization"), strings.Contains(label, "business"):
		return domain.VerifiedBusiness
	}
	return domain.VerifiedStandard
}

func (Microblog) metrics(c *Context) domain.Metrics {
	counter := func(sel string) int64 {
		return metricFrom(c, Attr(sel, "aria-label"), Text(sel))
	}
	m := domain.Metrics{
		Replies:   counter(`[data-testid="reply"]`),
		Reshares:  counter(`[data-testid="retweet"], [data-testid="unretweet"]`),
		Likes:     counter(`[data-testid="like"], [data-testid="unlike"]`),
		Views:     counter(`a[href$="/analytics"]`),
		Bookmarks: counter(`[data-testid="bookmark"], [data-testid="removeBookmark"]`),
	}

	// The action bar often carries every counter in a single label.
	label, ok := Attr(mbActionBar, "aria-label")(c)
	if !ok {
		return m
	}
	for _, g := range groupMetricRe.FindAllStringSubmatch(label, -1) {
		n := domain.ParseMetric(g[1])
		word := strings.ToLower(g[2])
		switch {
		case strings.HasPrefix(word, "repl") && m.Replies == 0:
			m.Replies = n
		case (strings.HasPrefix(word, "repost") || strings.HasPrefix(word, "retweet")) && m.Reshares == 0:
			m.Reshares = n
		case strings.HasPrefix(word, "like") && m.Likes == 0:
			m.Likes = n
		case strings.HasPrefix(word, "bookmark") && m.Bookmarks == 0:
			m.Bookmarks = n
		case strings.HasPrefix(word, "view") && m.Views == 0:
			m.Views = n
		}
	}
	return m
}

func (Microblog) card(c *Context) *domain.LinkCard {
	card := c.Container.Find(mbCard).First()
	if card.Length() == 0 {
		return nil
	}
	lc := &domain.LinkCard{}
	if href, ok := card.Find("a[href]").First().Attr("href"); ok {
		lc.URL = c.Page.Resolve(href)
	}
	if src, ok := card.Find("img[src]").First().Attr("src"); ok {
		lc.ImageURL = c.Page.Resolve(src)
	}

	var details []string
	card.Find(`[data-testid$="detail"] span`).Each(func(_ int, s *goquery.Selection) {
		if t := cleanText(s.Text()); t != "" {
			details = append(details, t)
		}
	})
	if len(details) > 0 {
		lc.Domain = strings.TrimPrefix(details[0], "From ")
	}
	if len(details) > 1 {
		lc.Title = details[1]
	}
	if lc.Domain == "" {
		lc.Domain = hostOf(lc.URL)
	}
	if lc.URL == "" && lc.Title == "" {
		return nil
	}
	return lc
}

func (m Microblog) quoted(q *Context) *domain.QuotedPost {
	qp := &domain.QuotedPost{
		Author: m.author(q, q.Container.Slice(0, 0)),
		Text:   blockText(q.Container.Find(mbText)),
	}
	qp.ExternalID, _ = First(q, MatchAll(`a[href*="/status/"]`, "href", statusRe, 1))
	collector := MediaCollector{}
	qp.Media = append(collector.Images(q, q.Container.Find(mbPhoto)), collector.Videos(q, q.Container.Find(mbVideo), "")...)
	return qp
}

func (Microblog) replyTo(c *Context, quote *goquery.Selection) (string, bool) {
	var handle string
	var found bool
	outside(c.Container.Find("div"), quote).Each(func(_ int, s *goquery.Selection) {
		if !strings.HasPrefix(cleanText(s.Text()), "Replying to") {
			return
		}
		found = true
		if href, ok := s.Find(`a[href^="/"]`).First().Attr("href"); ok {
			handle = handleFromPath(href)
		}
	})
	return handle, found
}

func (Microblog) SaveAction(control *goquery.Selection) (Action, bool) {
	switch testID(control) {
	case "retweetConfirm":
		return ActionRepost, true
	case "like":
		return ActionLike, true
	case "bookmark":
		return ActionBookmark, true
	}
	return "", false
}

func (Microblog) ToggleAction(_ *goquery.Selection, attr, oldValue, newValue string) (Action, bool) {
	if attr != "data-testid" {
		return "", false
	}
	switch {
	case oldValue == "like" && newValue == "unlike":
		return ActionLike, true
	case oldValue == "bookmark" && newValue == "removeBookmark":
		return ActionBookmark, true
	case oldValue == "retweet" && newValue == "unretweet":
		return ActionRepost, true
	}
	return "", false
}

func testID(s *goquery.Selection) string {
	if s == nil {
		return ""
	}
	v, _ := s.Attr("data-testid")
	return v
}

// outside drops the elements of sel that sit inside region.
func outside(sel, region *goquery.Selection) *goquery.Selection {
	if region == nil || region.Length() == 0 {
		return sel
	}
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !containsNode(region, s)
	})
}
