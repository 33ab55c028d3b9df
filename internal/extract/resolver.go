package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Resolver produces one field value from a context, or reports failure.
// Resolvers are pure and never panic on missing nodes.
type Resolver[T any] func(*Context) (T, bool)

// First runs resolvers in order and returns the first success.
func First[T any](c *Context, resolvers ...Resolver[T]) (T, bool) {
	for _, r := range resolvers {
		if r == nil {
			continue
		}
		if v, ok := r(c); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FirstOr is First with a fallback value.
func FirstOr[T any](c *Context, fallback T, resolvers ...Resolver[T]) T {
	if v, ok := First(c, resolvers...); ok {
		return v
	}
	return fallback
}

// Attr reads attr from the first element matching sel inside the container.
func Attr(sel, attr string) Resolver[string] {
	return func(c *Context) (string, bool) {
		var out string
		c.Container.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				out = strings.TrimSpace(v)
				return false
			}
			return true
		})
		return out, out != ""
	}
}

// Text reads the collapsed text of the first non-empty element matching sel.
func Text(sel string) Resolver[string] {
	return func(c *Context) (string, bool) {
		var out string
		c.Container.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := cleanText(s.Text()); t != "" {
				out = t
				return false
			}
			return true
		})
		return out, out != ""
	}
}

// Block reads the first element matching sel keeping its line breaks.
func Block(sel string) Resolver[string] {
	return func(c *Context) (string, bool) {
		t := blockText(c.Container.Find(sel))
		return t, t != ""
	}
}

// ClassContains matches elements whose class attribute contains substr.
// With an empty attr it returns the element text.
func ClassContains(substr, attr string) Resolver[string] {
	sel := `[class*="` + substr + `"]`
	if attr == "" {
		return Text(sel)
	}
	return Attr(sel, attr)
}

// Meta reads a page-level <meta> by property or name, ignoring the container.
func Meta(name string) Resolver[string] {
	return func(c *Context) (string, bool) {
		for _, sel := range []string{
			`meta[property="` + name + `"]`,
			`meta[name="` + name + `"]`,
			`meta[itemprop="` + name + `"]`,
		} {
			if v, ok := c.Page.Doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
}

// Canonical reads <link rel="canonical">.
func Canonical() Resolver[string] {
	return func(c *Context) (string, bool) {
		v, ok := c.Page.Doc.Find(`link[rel="canonical"]`).First().Attr("href")
		v = strings.TrimSpace(v)
		return c.Page.Resolve(v), ok && v != ""
	}
}

// Title reads the document <title>.
func Title() Resolver[string] {
	return func(c *Context) (string, bool) {
		t := cleanText(c.Page.Doc.Find("title").First().Text())
		return t, t != ""
	}
}

// PageURL returns the snapshot URL.
func PageURL() Resolver[string] {
	return func(c *Context) (string, bool) {
		if c.Page.URL == nil {
			return "", false
		}
		s := c.Page.URL.String()
		return s, s != ""
	}
}

// OnPage evaluates r against the whole document instead of the container.
func OnPage[T any](r Resolver[T]) Resolver[T] {
	return func(c *Context) (T, bool) {
		return r(c.Within(c.Page.Root()))
	}
}

// Match applies re to the value of r and returns the given group.
func Match(r Resolver[string], re *regexp.Regexp, group int) Resolver[string] {
	return func(c *Context) (string, bool) {
		v, ok := r(c)
		if !ok {
			return "", false
		}
		m := re.FindStringSubmatch(v)
		if m == nil || group >= len(m) || m[group] == "" {
			return "", false
		}
		return m[group], true
	}
}

// MatchAll tries re against every matching attribute value in the
// container, in document order, and returns the first captured group.
func MatchAll(sel, attr string, re *regexp.Regexp, group int) Resolver[string] {
	return func(c *Context) (string, bool) {
		var out string
		c.Container.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(attr)
			if m := re.FindStringSubmatch(v); m != nil && group < len(m) && m[group] != "" {
				out = m[group]
				return false
			}
			return true
		})
		return out, out != ""
	}
}

// Map transforms the value of r; a false from fn counts as failure.
func Map[T, U any](r Resolver[T], fn func(T) (U, bool)) Resolver[U] {
	return func(c *Context) (U, bool) {
		v, ok := r(c)
		if !ok {
			var zero U
			return zero, false
		}
		return fn(v)
	}
}

// Exists reports whether sel matches inside the container.
func Exists(sel string) Resolver[bool] {
	return func(c *Context) (bool, bool) {
		return true, c.Container.Find(sel).Length() > 0
	}
}
