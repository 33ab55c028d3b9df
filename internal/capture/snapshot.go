package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/extract"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// Snapshot markers set by the capture client on the serialised page.
const (
	TargetAttr = "data-stash-target"
	HoverAttr  = "data-stash-hover"
)

// Event kinds of a Snapshot.
const (
	EventClick    = "click"
	EventMutation = "mutation"
)

// Snapshot is what a capture client sends: the page HTML at the time of
// the action, with the acted-upon element marked by TargetAttr.
type Snapshot struct {
	Platform domain.Platform `json:"platform,omitempty"`
	URL      string          `json:"url"`
	HTML     string          `json:"html"`
	Event    string          `json:"event"`
	Attr     string          `json:"attr,omitempty"`
	OldValue string          `json:"oldValue,omitempty"`
	NewValue string          `json:"newValue,omitempty"`
}

// HandleSnapshot parses snap and routes it to HandleClick or HandleMutation.
func (c *Coordinator) HandleSnapshot(ctx context.Context, snap Snapshot) Outcome {
	page, err := extract.ParsePage(snap.URL, snap.HTML)
	if err != nil {
		return failed("", err)
	}

	target := page.Doc.Find("[" + TargetAttr + "]").First()
	if target.Length() == 0 {
		return Outcome{Status: StatusIgnored, Message: "snapshot has no target element"}
	}
	if hover := page.Doc.Find("[" + HoverAttr + "]").First(); hover.Length() > 0 {
		c.TrackHover(hover)
	}

	switch strings.ToLower(snap.Event) {
	case "", EventClick:
		return c.HandleClick(ctx, page, target)
	case EventMutation:
		return c.HandleMutation(ctx, page, Mutation{
			Target:   target,
			Attr:     snap.Attr,
			OldValue: snap.OldValue,
			NewValue: snap.NewValue,
		})
	default:
		return Outcome{Status: StatusIgnored, Message: fmt.Sprintf("unknown event %q", snap.Event)}
	}
}

// EnabledFunc reports whether capture is switched on for a platform.
type EnabledFunc func(ctx context.Context, p domain.Platform) bool

// Router owns one coordinator per platform.
type Router struct {
	coordinators map[domain.Platform]*Coordinator
	enabled      EnabledFunc
	logger       logger.Logger
}

// NewRouter builds a coordinator for every extractor in reg. A nil
// enabled func captures on every platform.
func NewRouter(reg *extract.Registry, sender transport.Sender, enabled EnabledFunc, log logger.Logger, opts ...Option) *Router {
	r := &Router{
		coordinators: make(map[domain.Platform]*Coordinator),
		enabled:      enabled,
		logger:       log,
	}
	for _, p := range reg.Platforms() {
		x, _ := reg.Get(p)
		r.coordinators[p] = New(x, sender, log, opts...)
	}
	return r
}

// Coordinator returns the coordinator of p.
func (r *Router) Coordinator(p domain.Platform) (*Coordinator, bool) {
	c, ok := r.coordinators[p]
	return c, ok
}

// HandleSnapshot picks the coordinator from snap.Platform, or from the
// page URL when the platform is not given.
func (r *Router) HandleSnapshot(ctx context.Context, snap Snapshot) Outcome {
	p := snap.Platform
	if p == "" {
		detected, ok := extract.DetectPlatform(snap.URL)
		if !ok {
			return Outcome{Status: StatusIgnored, Message: "unsupported site"}
		}
		p = detected
	}
	c, ok := r.coordinators[p]
	if !ok {
		return Outcome{Status: StatusIgnored, Message: fmt.Sprintf("unsupported platform %q", p)}
	}
	if r.enabled != nil && !r.enabled(ctx, p) {
		return Outcome{Status: StatusIgnored, Message: "capture is disabled for this platform"}
	}
	return c.HandleSnapshot(ctx, snap)
}
