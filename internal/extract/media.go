package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// FrameGrabber produces a still frame for a video element that has no
// poster. It fails when the video surface cannot be read.
type FrameGrabber interface {
	GrabFrame(video *goquery.Selection) (string, error)
}

// ErrTaintedFrame is returned when the video surface is cross-origin.
var ErrTaintedFrame = errors.New("video frame is not readable")

// AttrFrameGrabber reads a frame the capture client already drew into
// an attribute of the video element (a data: URL).
type AttrFrameGrabber struct {
	Attr        string // defaults to data-stash-frame
	TaintedAttr string // defaults to data-stash-tainted
}

// GrabFrame implements FrameGrabber.
func (g AttrFrameGrabber) GrabFrame(video *goquery.Selection) (string, error) {
	attr, tainted := g.Attr, g.TaintedAttr
	if attr == "" {
		attr = "data-stash-frame"
	}
	if tainted == "" {
		tainted = "data-stash-tainted"
	}
	if _, ok := video.Attr(tainted); ok {
		return "", ErrTaintedFrame
	}
	if v, ok := video.Attr(attr); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	return "", errors.New("no frame captured")
}

var sizeMarkerRe = regexp.MustCompile(`[sp](\d{2,3})x(\d{2,3})`)

const avatarMaxSide = 150

// MediaCollector gathers attachments in display order.
type MediaCollector struct {
	// Exclude holds regions whose images are never post media,
	// such as the author header.
	Exclude []*goquery.Selection
}

// Videos collects every video inside sel. The thumbnail comes from the
// poster, then a grabbed frame, then og:image.
func (m MediaCollector) Videos(c *Context, sel *goquery.Selection, fallbackURL string) []domain.Media {
	out := []domain.Media{}
	sel.Each(func(_ int, v *goquery.Selection) {
		src := videoSource(v)
		if src == "" || strings.HasPrefix(src, "blob:") {
			src = fallbackURL
		}
		media := domain.Media{
			Kind:         domain.MediaVideo,
			URL:          c.Page.Resolve(src),
			ThumbnailURL: c.Page.Resolve(m.thumbnail(c, v)),
		}
		if isGIF(v) {
			media.Kind = domain.MediaGIF
		}
		out = append(out, media)
	})
	return out
}

func (m MediaCollector) thumbnail(c *Context, v *goquery.Selection) string {
	if poster, ok := v.Attr("poster"); ok && strings.TrimSpace(poster) != "" {
		return poster
	}
	if c.Frames != nil {
		if frame, err := c.Frames.GrabFrame(v); err == nil && frame != "" {
			return frame
		}
	}
	og, _ := Meta("og:image")(c)
	return og
}

// Images collects post images inside sel, dropping avatars.
func (m MediaCollector) Images(c *Context, sel *goquery.Selection) []domain.Media {
	out := []domain.Media{}
	seen := map[string]bool{}
	sel.Each(func(_ int, img *goquery.Selection) {
		if m.isAvatar(img) {
			return
		}
		src := imageSource(img)
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		alt, _ := img.Attr("alt")
		out = append(out, domain.Media{
			Kind:         domain.MediaImage,
			URL:          c.Page.Resolve(src),
			ThumbnailURL: c.Page.Resolve(src),
			AltText:      strings.TrimSpace(alt),
		})
	})
	return out
}

// isAvatar flags profile pictures: small fixed sizes, profile alt text,
// size markers in the URL, or images inside an excluded region.
func (m MediaCollector) isAvatar(img *goquery.Selection) bool {
	for _, region := range m.Exclude {
		if region != nil && containsNode(region, img) {
			return true
		}
	}

	alt, _ := img.Attr("alt")
	alt = strings.ToLower(alt)
	if strings.Contains(alt, "profile picture") || strings.Contains(alt, "avatar") {
		return true
	}

	if w, ok := intAttr(img, "width"); ok && w <= avatarMaxSide {
		if h, ok := intAttr(img, "height"); !ok || h <= avatarMaxSide {
			return true
		}
	}

	src := imageSource(img)
	if strings.Contains(src, "profile_images") || strings.Contains(src, "/avatar") {
		return true
	}
	if mm := sizeMarkerRe.FindStringSubmatch(src); mm != nil {
		w, _ := strconv.Atoi(mm[1])
		h, _ := strconv.Atoi(mm[2])
		if w <= avatarMaxSide && h <= avatarMaxSide {
			return true
		}
	}
	return false
}

func videoSource(v *goquery.Selection) string {
	if src, ok := v.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	src, _ := v.Find("source[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func imageSource(img *goquery.Selection) string {
	if src, ok := img.Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	if srcset, ok := img.Attr("srcset"); ok {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if f := strings.Fields(first); len(f) > 0 {
			return f[0]
		}
	}
	return ""
}

func isGIF(v *goquery.Selection) bool {
	if _, ok := v.Attr("data-gif"); ok {
		return true
	}
	src := videoSource(v)
	return strings.Contains(src, "tweet_video") || strings.HasSuffix(strings.ToLower(src), ".gif")
}

func intAttr(s *goquery.Selection, name string) (int, bool) {
	v, ok := s.Attr(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0, false
	}
	return n, true
}
