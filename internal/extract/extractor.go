package extract

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// ErrNoPost is returned when nothing resembling a post could be read.
var ErrNoPost = errors.New("no post found")

// Action is the kind of save control the user activated.
type Action string

const (
	ActionRepost   Action = "repost"
	ActionLike     Action = "like"
	ActionBookmark Action = "bookmark"
)

// Extractor reads one platform's markup.
type Extractor interface {
	Platform() domain.Platform

	// Container finds the post region around the clicked control.
	Container(page *Page, clicked *goquery.Selection) *goquery.Selection

	// Extract builds a post from c. It may return partial data.
	Extract(c *Context) (*domain.CanonicalPost, error)

	// SaveAction reports whether control is one of the platform's save
	// buttons and which action it performs.
	SaveAction(control *goquery.Selection) (Action, bool)

	// ToggleAction reports whether an attribute change on target means the
	// post just became saved.
	ToggleAction(target *goquery.Selection, attr, oldValue, newValue string) (Action, bool)
}

// Run calls x.Extract and guarantees that no panic or half-built post
// escapes. The returned post is normalized and stamped with c.Now.
func Run(x Extractor, c *Context) (post *domain.CanonicalPost, err error) {
	defer func() {
		if r := recover(); r != nil {
			post = nil
			err = fmt.Errorf("%w: extractor panic: %v", ErrNoPost, r)
		}
	}()

	post, err = x.Extract(c)
	if err != nil {
		if !errors.Is(err, ErrNoPost) {
			err = fmt.Errorf("%w: %v", ErrNoPost, err)
		}
		return nil, err
	}
	if post == nil {
		return nil, ErrNoPost
	}

	if post.ExternalID == "" && post.Author.Handle == "" && post.Text == "" && len(post.Media) == 0 {
		return nil, fmt.Errorf("%w: empty %s container", ErrNoPost, x.Platform())
	}
	if post.ExternalID == "" {
		post.ExternalID = SyntheticID(x.Platform(), post.Author.Handle, c.Now)
	}

	post.Platform = x.Platform()
	post.CapturedAt = c.Now
	post.Normalize()
	return post, nil
}

// Registry maps each platform to its extractor.
type Registry struct {
	byPlatform map[domain.Platform]Extractor
}

// NewRegistry registers the given extractors; a later one replaces an
// earlier one for the same platform.
func NewRegistry(xs ...Extractor) *Registry {
	r := &Registry{byPlatform: make(map[domain.Platform]Extractor, len(xs))}
	for _, x := range xs {
		r.byPlatform[x.Platform()] = x
	}
	return r
}

// DefaultRegistry holds the four built-in extractors.
func DefaultRegistry() *Registry {
	return NewRegistry(Microblog{}, ShortVideo{}, PhotoShare{}, LongVideo{})
}

// Get returns the extractor for p.
func (r *Registry) Get(p domain.Platform) (Extractor, bool) {
	x, ok := r.byPlatform[p]
	return x, ok
}

// Platforms lists the registered platforms in a stable order.
func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.byPlatform))
	for p := range r.byPlatform {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var platformHosts = map[string]domain.Platform{
	"x.com":         domain.PlatformMicroblog,
	"twitter.com":   domain.PlatformMicroblog,
	"tiktok.com":    domain.PlatformShortVideo,
	"instagram.com": domain.PlatformPhotoShare,
	"youtube.com":   domain.PlatformLongVideo,
	"youtu.be":      domain.PlatformLongVideo,
}

// DetectPlatform maps a page URL to its platform by host.
func DetectPlatform(rawURL string) (domain.Platform, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return "", false
	}
	for {
		if p, ok := platformHosts[host]; ok {
			return p, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return "", false
		}
		host = host[i+1:]
	}
}
