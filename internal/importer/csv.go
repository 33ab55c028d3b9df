package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// CSV reads spreadsheet exports. The header row is required and must
// name an id column and a text column; the aliases below are accepted.
type CSV struct {
	// Platform is used for rows without a platform column.
	Platform domain.Platform
}

func (*CSV) Format() string { return "csv" }

var csvAliases = map[string][]string{
	"id":          {"id", "externalid", "external_id", "tweet_id", "post_id", "video_id"},
	"text":        {"text", "full_text", "content", "caption", "body", "description"},
	"platform":    {"platform", "source"},
	"handle":      {"handle", "author", "username", "screen_name", "user"},
	"displayName": {"displayname", "display_name", "name", "author_name"},
	"url":         {"url", "link", "source_url", "sourceurl", "permalink"},
	"createdAt":   {"created_at", "createdat", "date", "timestamp", "published"},
	"likes":       {"likes", "like_count", "favorite_count"},
	"reshares":    {"reshares", "retweets", "retweet_count", "reposts", "shares"},
	"replies":     {"replies", "reply_count", "comments"},
	"views":       {"views", "view_count", "plays"},
	"media":       {"media", "media_urls", "image", "image_url"},
}

var listSplitRe = regexp.MustCompile(`[|;\s]+`)

// Parse implements Adapter.
func (c *CSV) Parse(r io.Reader) (Result, error) {
	cr := csv.NewReader(stripBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, malformed("empty csv")
	}
	if err != nil {
		return Result{}, malformed("read header: %v", err)
	}
	cols := mapColumns(header)
	if _, ok := cols["id"]; !ok {
		return Result{}, malformed("missing id column")
	}
	if _, ok := cols["text"]; !ok {
		return Result{}, malformed("missing text column")
	}

	var res Result
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Result{}, malformed("line %d: %v", line, err)
		}
		if isBlankRow(rec) {
			continue
		}
		p, err := c.row(cols, rec)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Posts = append(res.Posts, p)
	}
	return res, nil
}

func (c *CSV) row(cols map[string]int, rec []string) (*domain.CanonicalPost, error) {
	get := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	id := get("id")
	if id == "" {
		return nil, errors.New("empty id")
	}

	platform := c.Platform
	if v := get("platform"); v != "" {
		platform = domain.Platform(strings.ToLower(v))
	}
	if !platform.Valid() {
		return nil, errors.New("unknown platform " + string(platform))
	}

	handle := strings.TrimPrefix(get("handle"), "@")
	p := &domain.CanonicalPost{
		ExternalID: id,
		Platform:   platform,
		SourceURL:  get("url"),
		Author: domain.Author{
			Handle:      handle,
			DisplayName: get("displayName"),
		},
		Text: get("text"),
		Metrics: domain.Metrics{
			Likes:    domain.ParseMetric(get("likes")),
			Reshares: domain.ParseMetric(get("reshares")),
			Replies:  domain.ParseMetric(get("replies")),
			Views:    domain.ParseMetric(get("views")),
		},
		OriginalCreatedAt: parseDate(get("createdAt")),
	}
	if p.Author.DisplayName == "" {
		p.Author.DisplayName = handle
	}
	for _, u := range splitList(get("media")) {
		p.Media = append(p.Media, domain.Media{Kind: domain.MediaImage, URL: u, ThumbnailURL: u})
	}
	return p, nil
}

func mapColumns(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := map[string]int{}
	for key, aliases := range csvAliases {
		for _, a := range aliases {
			if i, ok := byName[a]; ok {
				cols[key] = i
				break
			}
		}
	}
	return cols
}

func splitList(s string) []string {
	var out []string
	for _, part := range listSplitRe.Split(strings.TrimSpace(s), -1) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isBlankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	ch, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if ch != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
