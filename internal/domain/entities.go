package domain

import (
	"regexp"
	"strings"
)

var (
	urlRe     = regexp.MustCompile(`https?://[^\s<>"]+`)
	hashtagRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_&/])#([\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])@([A-Za-z0-9_.]+)`)
)

// ExtractEntities derives links, hashtags and mentions from a post body.
// Hashtags and mentions are returned without their sigil, deduplicated
// case-insensitively in first-seen order.
func ExtractEntities(text string) Entities {
	ents := Entities{
		URLs:     []URLEntity{},
		Hashtags: []string{},
		Mentions: []string{},
	}
	if text == "" {
		return ents
	}

	for _, raw := range urlRe.FindAllString(text, -1) {
		u := strings.TrimRight(raw, ".,;:!?)]}'")
		if u == "" {
			continue
		}
		ents.URLs = append(ents.URLs, URLEntity{URL: u, DisplayText: displayURL(u)})
	}

	// URLs can carry fragments and userinfo that look like tags.
	stripped := urlRe.ReplaceAllString(text, " ")

	ents.Hashtags = uniqueFold(submatches(hashtagRe, stripped))
	mentions := submatches(mentionRe, stripped)
	for i, m := range mentions {
		mentions[i] = strings.TrimRight(m, ".")
	}
	ents.Mentions = uniqueFold(mentions)

	return ents
}

func displayURL(u string) string {
	d := strings.TrimPrefix(u, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if r := []rune(d); len(r) > 30 {
		d = string(r[:29]) + "…"
	}
	return d
}

func submatches(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func uniqueFold(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
