package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

var (
	spaceRe  = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankRe  = regexp.MustCompile(`\n\s*\n+`)
	numberRe = regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d+)?\s*[kmb]?\b`)
)

// cleanText collapses runs of spaces and blank lines.
func cleanText(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// blockText renders a selection's text keeping <br> and block breaks.
func blockText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, n *goquery.Selection) {
			node := n.Get(0)
			switch {
			case goquery.NodeName(n) == "#text":
				b.WriteString(node.Data)
			case goquery.NodeName(n) == "br":
				b.WriteString("\n")
			case goquery.NodeName(n) == "img":
				// emoji are rendered as images with the glyph in alt
				if alt, ok := n.Attr("alt"); ok {
					b.WriteString(alt)
				}
			default:
				block := isBlock(goquery.NodeName(n))
				if block {
					b.WriteString("\n")
				}
				walk(n)
				if block {
					b.WriteString("\n")
				}
			}
		})
	}
	walk(s.First())
	return cleanText(b.String())
}

func isBlock(name string) bool {
	switch name {
	case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "section", "article", "blockquote":
		return true
	}
	return false
}

// metricIn finds the first number in a label such as
// "like this video along with 1,234 other people".
func metricIn(s string) (int64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	return domain.ParseMetric(m), true
}

// metricFrom resolves a counter from the first candidate that yields a number.
func metricFrom(c *Context, resolvers ...Resolver[string]) int64 {
	for _, r := range resolvers {
		v, ok := r(c)
		if !ok {
			continue
		}
		if n, ok := metricIn(v); ok {
			return n
		}
	}
	return 0
}

// hostOf returns the host of raw without a leading www.
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func handleFromPath(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return strings.TrimPrefix(path, "@")
}
