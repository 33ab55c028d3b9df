package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// ContainerRules describe how to find the post around a clicked control.
type ContainerRules struct {
	// Structural are closest-ancestor queries, tried in order.
	Structural []string

	// MaxDepth bounds the ancestor walk.
	MaxDepth int

	// Media and AuthorLink are the two signatures a post container
	// carries during the ancestor walk.
	Media      string
	AuthorLink string
}

// FindContainer walks from the clicked element to the post it belongs to.
// It falls back to the whole document (single post page).
func FindContainer(page *Page, clicked *goquery.Selection, rules ContainerRules) *goquery.Selection {
	if clicked == nil || clicked.Length() == 0 {
		return page.Root()
	}

	for _, sel := range rules.Structural {
		if c := clicked.Closest(sel); c.Length() > 0 {
			return c.First()
		}
	}

	if rules.Media != "" && rules.AuthorLink != "" {
		cur := clicked.Parent()
		for depth := 0; depth < rules.MaxDepth && cur.Length() > 0; depth++ {
			if goquery.NodeName(cur) == "body" {
				break
			}
			if cur.Find(rules.Media).Length() > 0 && cur.Find(rules.AuthorLink).Length() > 0 {
				return cur
			}
			cur = cur.Parent()
		}
	}

	return page.Root()
}

// containsNode reports whether outer contains inner (or is inner).
func containsNode(outer, inner *goquery.Selection) bool {
	if outer.Length() == 0 || inner.Length() == 0 {
		return false
	}
	target := inner.Get(0)
	for n := target; n != nil; n = n.Parent {
		if n == outer.Get(0) {
			return true
		}
	}
	return false
}
