package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/storage"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// Search runs a ranked search.
// Query: q, page, pageSize, platform, tag (repeatable or comma separated),
// author, from, to, hasMedia.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := searchRequest(r)
		if err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, transport.Search{SearchRequest: req})
	}
}

func searchRequest(r *http.Request) (storage.SearchRequest, error) {
	q := r.URL.Query()
	req := storage.SearchRequest{Query: strings.TrimSpace(q.Get("q"))}

	var err error
	if req.Page, err = queryInt(r, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = queryInt(r, "pageSize"); err != nil {
		return req, err
	}

	f := &req.Filters
	if p := q.Get("platform"); p != "" {
		f.Platform = domain.Platform(strings.ToLower(p))
		if !f.Platform.Valid() {
			return req, fmt.Errorf("unknown platform %q: %w", p, domain.ErrInvalidRequest)
		}
	}
	for _, v := range q["tag"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	f.Author = strings.TrimSpace(q.Get("author"))
	if f.HasMedia, err = queryBool(r, "hasMedia"); err != nil {
		return req, err
	}
	if f.DateFrom, err = queryDate(q.Get("from"), false); err != nil {
		return req, err
	}
	if f.DateTo, err = queryDate(q.Get("to"), true); err != nil {
		return req, err
	}
	return req, nil
}

// queryDate accepts RFC 3339 or a bare date. A bare upper bound covers
// the whole day.
func queryDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", v, domain.ErrInvalidRequest)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
