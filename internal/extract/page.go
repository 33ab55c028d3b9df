// Package extract turns a page snapshot into a domain.CanonicalPost.
//
// Every field is resolved through an ordered chain of small resolvers:
// structural markers first, class-name heuristics next, page metadata
// after that and, for identity only, a synthetic fallback.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed snapshot of the page the user acted on.
type Page struct {
	Doc *goquery.Document
	URL *url.URL
}

// ParsePage parses raw HTML captured at rawURL.
func ParsePage(rawURL, html string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Url = u
	return &Page{Doc: doc, URL: u}, nil
}

// Root returns the whole document as a selection.
func (p *Page) Root() *goquery.Selection {
	if body := p.Doc.Find("body"); body.Length() > 0 {
		return body.First()
	}
	return p.Doc.Selection
}

// Resolve makes ref absolute against the page URL. Empty stays empty.
func (p *Page) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || p.URL == nil {
		return ref
	}
	if strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "blob:") {
		return ref
	}
	u, err := p.URL.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// Context is everything an extractor may look at for one capture.
type Context struct {
	Page *Page

	// Container is the region believed to hold the acted-upon post.
	// It is the whole document when nothing narrower was found.
	Container *goquery.Selection

	// Clicked is the save control, when the capture came from a click.
	Clicked *goquery.Selection

	// Now is the capture time.
	Now time.Time

	// Frames grabs a still frame from a video without a poster. May be nil.
	Frames FrameGrabber
}

// NewContext builds a context; a nil container falls back to the document.
func NewContext(page *Page, container, clicked *goquery.Selection, now time.Time) *Context {
	if container == nil || container.Length() == 0 {
		container = page.Root()
	}
	return &Context{
		Page:      page,
		Container: container,
		Clicked:   clicked,
		Now:       now,
	}
}

// IsWholePage reports whether the container is the document itself.
func (c *Context) IsWholePage() bool {
	root := c.Page.Root()
	return c.Container.Length() == 0 || (root.Length() > 0 && c.Container.Get(0) == root.Get(0))
}

// Within returns a copy of c scoped to another container.
func (c *Context) Within(sel *goquery.Selection) *Context {
	cp := *c
	cp.Container = sel
	return &cp
}
