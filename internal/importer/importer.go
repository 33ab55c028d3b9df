// Package importer turns third-party exports and feeds into posts the
// storage engine can insert.
package importer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// ErrMalformed is returned when the structure of an input cannot be read:
// an undecodable document or feed, or a missing required column. A bad
// entry inside an otherwise readable file is skipped and counted instead.
var ErrMalformed = errors.New("malformed import")

// Result holds the posts parsed from one input and the number of entries
// that were dropped.
type Result struct {
	Posts   []*domain.CanonicalPost
	Skipped int
}

// Adapter parses one input format.
type Adapter interface {
	Format() string
	Parse(r io.Reader) (Result, error)
}

// Registry maps format names to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry registers adapters by their Format name.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[strings.ToLower(a.Format())] = a
	}
	return r
}

// DefaultRegistry holds the archive, csv and rss adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&Archive{},
		&CSV{Platform: domain.PlatformMicroblog},
		NewRSS(),
	)
}

// Get returns the adapter for format.
func (r *Registry) Get(format string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unknown import format %q: %w", format, domain.ErrInvalidRequest)
	}
	return a, nil
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.adapters))
	for f := range r.adapters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Parse looks up format and parses r with it.
func (r *Registry) Parse(format string, in io.Reader) (Result, error) {
	a, err := r.Get(format)
	if err != nil {
		return Result{}, err
	}
	return a.Parse(in)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RubyDate,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
