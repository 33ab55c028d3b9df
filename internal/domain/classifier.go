package domain

import (
	"regexp"
	"strings"
	"sync"
)

var keywordCache sync.Map // keyword -> *regexp.Regexp

// SuggestTags returns the names of the categories whose keywords appear
// in text, in category order. Matching is case-insensitive and bounded
// by word edges, so "ai" does not match "maintain".
func SuggestTags(text string, categories []Category) []string {
	out := []string{}
	if strings.TrimSpace(text) == "" {
		return out
	}

	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.Name == "" || seen[strings.ToLower(c.Name)] {
			continue
		}
		for _, kw := range c.Keywords {
			if keywordMatches(text, kw) {
				seen[strings.ToLower(c.Name)] = true
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

func keywordMatches(text, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	return keywordPattern(keyword).MatchString(text)
}

func keywordPattern(keyword string) *regexp.Regexp {
	key := strings.ToLower(keyword)
	if re, ok := keywordCache.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	// \b is ASCII-only in RE2, so word edges are spelled out explicitly.
	re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(key) + `(?:$|[^\p{L}\p{N}_])`)
	keywordCache.Store(key, re)
	return re
}
