package importer

import (
	"io"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/extract"
)

// RSS reads RSS and Atom feeds, typically channel feeds of the supported
// platforms. Item HTML is sanitized and rendered as markdown text.
type RSS struct {
	// Platform is used when neither the item link nor the feed link
	// identifies one.
	Platform domain.Platform

	parser    *gofeed.Parser
	policy    *bluemonday.Policy
	converter *converter.Converter
}

// NewRSS builds an RSS adapter with the default sanitizer and converter.
func NewRSS() *RSS {
	return &RSS{
		parser: gofeed.NewParser(),
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

func (*RSS) Format() string { return "rss" }

// Parse implements Adapter.
func (a *RSS) Parse(r io.Reader) (Result, error) {
	feed, err := a.parser.Parse(r)
	if err != nil {
		return Result{}, malformed("parse feed: %v", err)
	}

	feedHandle := feedAuthor(feed)
	res := Result{Posts: make([]*domain.CanonicalPost, 0, len(feed.Items))}
	for _, item := range feed.Items {
		if item == nil {
			res.Skipped++
			continue
		}
		platform, ok := extract.DetectPlatform(item.Link)
		if !ok {
			platform, ok = extract.DetectPlatform(feed.Link)
		}
		if !ok {
			platform = a.Platform
		}
		id := itemID(item)
		if !platform.Valid() || id == "" {
			res.Skipped++
			continue
		}

		p := &domain.CanonicalPost{
			ExternalID: id,
			Platform:   platform,
			SourceURL:  item.Link,
			Author:     itemAuthor(item, feedHandle),
			Text:       a.itemText(item),
		}
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			p.OriginalCreatedAt = &t
		} else if item.UpdatedParsed != nil {
			t := item.UpdatedParsed.UTC()
			p.OriginalCreatedAt = &t
		}
		p.Media = itemMedia(item, platform)
		p.Metrics.Views = ytStatistic(item, "views")
		res.Posts = append(res.Posts, p)
	}
	return res, nil
}

func (a *RSS) itemText(item *gofeed.Item) string {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	if strings.TrimSpace(body) == "" {
		body = extValue(item, "media", "group", "description")
	}

	text := a.render(body, item.Link)
	title := strings.TrimSpace(item.Title)
	switch {
	case title == "":
		return text
	case text == "" || strings.HasPrefix(text, title):
		return title
	default:
		return title + "\n\n" + text
	}
}

// render sanitizes HTML then converts it to markdown. Plain text passes
// through untouched.
func (a *RSS) render(body, link string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	clean := a.policy.Sanitize(body)
	origin := ""
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	md, err := a.converter.ConvertString(clean, converter.WithDomain(origin))
	if err != nil || strings.TrimSpace(md) == "" {
		return strings.TrimSpace(clean)
	}
	return strings.TrimSpace(md)
}

func itemID(item *gofeed.Item) string {
	if v := extValue(item, "yt", "videoId", ""); v != "" {
		return v
	}
	if g := strings.TrimSpace(item.GUID); g != "" {
		if strings.HasPrefix(g, "yt:video:") {
			return strings.TrimPrefix(g, "yt:video:")
		}
		return g
	}
	return strings.TrimSpace(item.Link)
}

func feedAuthor(feed *gofeed.Feed) domain.Author {
	a := domain.Author{}
	if len(feed.Authors) > 0 && feed.Authors[0] != nil {
		a.DisplayName = strings.TrimSpace(feed.Authors[0].Name)
	}
	if a.DisplayName == "" {
		a.DisplayName = strings.TrimSpace(feed.Title)
	}
	if u, err := url.Parse(feed.Link); err == nil {
		if seg := strings.Trim(u.Path, "/"); strings.HasPrefix(seg, "@") {
			a.Handle = strings.TrimPrefix(strings.SplitN(seg, "/", 2)[0], "@")
		}
	}
	if a.Handle == "" {
		a.Handle = a.DisplayName
	}
	return a
}

func itemAuthor(item *gofeed.Item, fallback domain.Author) domain.Author {
	if len(item.Authors) == 0 || item.Authors[0] == nil || strings.TrimSpace(item.Authors[0].Name) == "" {
		return fallback
	}
	name := strings.TrimSpace(item.Authors[0].Name)
	a := domain.Author{Handle: fallback.Handle, DisplayName: name}
	if a.Handle == "" || a.Handle == fallback.DisplayName {
		a.Handle = name
	}
	return a
}

func itemMedia(item *gofeed.Item, platform domain.Platform) []domain.Media {
	var out []domain.Media
	thumb := extAttr(item, "media", "group", "thumbnail", "url")
	if thumb == "" && item.Image != nil {
		thumb = item.Image.URL
	}

	kind := domain.MediaImage
	if platform == domain.PlatformLongVideo || platform == domain.PlatformShortVideo {
		kind = domain.MediaVideo
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		k := domain.MediaImage
		if strings.HasPrefix(enc.Type, "video/") {
			k = domain.MediaVideo
		}
		out = append(out, domain.Media{Kind: k, URL: enc.URL, ThumbnailURL: firstNonEmpty(thumb, enc.URL)})
	}
	if len(out) == 0 && thumb != "" {
		u := thumb
		if kind == domain.MediaVideo {
			u = item.Link
		}
		out = append(out, domain.Media{Kind: kind, URL: u, ThumbnailURL: thumb})
	}
	return out
}

// ytStatistic reads media:community/media:statistics counters.
func ytStatistic(item *gofeed.Item, attr string) int64 {
	group := extChild(item, "media", "group")
	if group == nil {
		return 0
	}
	for _, c := range group.Children["community"] {
		for _, s := range c.Children["statistics"] {
			if v := s.Attrs[attr]; v != "" {
				return domain.ParseMetric(v)
			}
		}
	}
	return 0
}

func extChild(item *gofeed.Item, ns, name string) *ext.Extension {
	if item.Extensions == nil {
		return nil
	}
	list := item.Extensions[ns][name]
	if len(list) == 0 {
		return nil
	}
	return &list[0]
}

// extValue returns the text of ns:name, or of its child when child is set.
func extValue(item *gofeed.Item, ns, name, child string) string {
	e := extChild(item, ns, name)
	if e == nil {
		return ""
	}
	if child == "" {
		return strings.TrimSpace(e.Value)
	}
	if cs := e.Children[child]; len(cs) > 0 {
		return strings.TrimSpace(cs[0].Value)
	}
	return ""
}

func extAttr(item *gofeed.Item, ns, name, child, attr string) string {
	e := extChild(item, ns, name)
	if e == nil {
		return ""
	}
	if cs := e.Children[child]; len(cs) > 0 {
		return strings.TrimSpace(cs[0].Attrs[attr])
	}
	return ""
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
