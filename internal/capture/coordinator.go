// Package capture turns save actions observed on a page into stored
// records: it finds the save control, waits for the page to settle, runs
// the platform extractor and sends the post to storage once.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/extract"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// Status is the result of one capture attempt.
type Status string

const (
	StatusSaved      Status = "saved"
	StatusDuplicate  Status = "duplicate"
	StatusSuppressed Status = "suppressed"
	StatusFailed     Status = "failed"
	StatusIgnored    Status = "ignored"
)

// Outcome is what the user sees as a transient notification.
type Outcome struct {
	Status  Status               `json:"status"`
	Action  extract.Action       `json:"action,omitempty"`
	Message string               `json:"message,omitempty"`
	Record  *domain.StoredRecord `json:"record,omitempty"`
}

// Mutation is an attribute change observed on a page element.
type Mutation struct {
	Target   *goquery.Selection
	Attr     string
	OldValue string
	NewValue string
}

const (
	DefaultSettle          = 300 * time.Millisecond
	DefaultMaxControlDepth = 6
)

// Coordinator handles the save actions of one platform. It owns its
// recent set, so coordinators never share suppression state.
type Coordinator struct {
	x      extract.Extractor
	sender transport.Sender
	logger logger.Logger

	recent   *RecentSet
	settle   time.Duration
	maxDepth int
	now      func() time.Time
	frames   extract.FrameGrabber

	mu    sync.Mutex
	hover *goquery.Selection
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithSettle sets the delay between detecting an action and reading the page.
func WithSettle(d time.Duration) Option { return func(c *Coordinator) { c.settle = d } }

// WithWindow sets the duplicate suppression window.
func WithWindow(d time.Duration) Option {
	return func(c *Coordinator) { c.recent = NewRecentSet(d, c.now) }
}

// WithClock replaces time.Now for capture stamps and the recent set.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
		c.recent.now = now
	}
}

// WithFrameGrabber replaces the still-frame source for posterless videos.
func WithFrameGrabber(g extract.FrameGrabber) Option { return func(c *Coordinator) { c.frames = g } }

// New builds a coordinator for x that sends through sender.
func New(x extract.Extractor, sender transport.Sender, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		x:        x,
		sender:   sender,
		logger:   logger.With(log, logger.String("platform", string(x.Platform()))),
		settle:   DefaultSettle,
		maxDepth: DefaultMaxControlDepth,
		now:      time.Now,
		frames:   extract.AttrFrameGrabber{},
	}
	c.recent = NewRecentSet(DefaultWindow, c.now)
	for _, o := range opts {
		o(c)
	}
	return c
}

// Platform returns the platform this coordinator serves.
func (c *Coordinator) Platform() domain.Platform { return c.x.Platform() }

// Recent exposes the suppression set.
func (c *Coordinator) Recent() *RecentSet { return c.recent }

// TrackHover remembers the element under the pointer. It breaks ties
// when a clicked control cannot be tied to a single post.
func (c *Coordinator) TrackHover(sel *goquery.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hover = sel
}

// HandleClick captures the post around target when target sits inside a
// save control.
func (c *Coordinator) HandleClick(ctx context.Context, page *extract.Page, target *goquery.Selection) Outcome {
	control, action, ok := c.findControl(target)
	if !ok {
		return Outcome{Status: StatusIgnored}
	}
	return c.capture(ctx, page, control, action)
}

// HandleMutation captures the post around m.Target when the attribute
// change means the post just became saved.
func (c *Coordinator) HandleMutation(ctx context.Context, page *extract.Page, m Mutation) Outcome {
	if m.Target == nil || m.Target.Length() == 0 {
		return Outcome{Status: StatusIgnored}
	}
	action, ok := c.x.ToggleAction(m.Target, m.Attr, m.OldValue, m.NewValue)
	if !ok {
		return Outcome{Status: StatusIgnored}
	}
	return c.capture(ctx, page, m.Target, action)
}

func (c *Coordinator) findControl(target *goquery.Selection) (*goquery.Selection, extract.Action, bool) {
	cur := target
	for depth := 0; depth <= c.maxDepth && cur != nil && cur.Length() > 0; depth++ {
		if action, ok := c.x.SaveAction(cur); ok {
			return cur, action, true
		}
		cur = cur.Parent()
	}
	return nil, "", false
}

func (c *Coordinator) capture(ctx context.Context, page *extract.Page, control *goquery.Selection, action extract.Action) Outcome {
	if err := c.wait(ctx); err != nil {
		return failed(action, err)
	}

	ectx := extract.NewContext(page, c.container(page, control), control, c.now())
	ectx.Frames = c.frames

	post, err := extract.Run(c.x, ectx)
	if err != nil {
		c.logger.Debug("extraction failed", logger.String("action", string(action)), logger.Error(err))
		return failed(action, err)
	}

	key := domain.DedupKey(post.Platform, post.ExternalID)
	if !c.recent.Claim(key) {
		c.logger.Debug("capture suppressed", logger.String("external_id", post.ExternalID))
		return Outcome{Status: StatusSuppressed, Action: action}
	}

	// A capture that never reached the store must be retryable at once.
	resp, err := c.sender.Send(ctx, transport.SavePost{Post: post})
	if err != nil {
		c.recent.Release(key)
		c.logger.Warn("capture not delivered", logger.String("external_id", post.ExternalID), logger.Error(err))
		return failed(action, err)
	}
	var res transport.SaveResult
	if err := resp.Decode(&res); err != nil {
		c.recent.Release(key)
		return failed(action, err)
	}
	if res.Duplicate {
		return Outcome{Status: StatusDuplicate, Action: action, Message: "Already in your stash"}
	}

	c.logger.Info("post captured",
		logger.String("action", string(action)),
		logger.String("external_id", post.ExternalID))
	return Outcome{Status: StatusSaved, Action: action, Message: "Saved to stash", Record: res.Record}
}

// wait is the settle delay. It gives the page time to re-render after
// the click before the DOM is read.
func (c *Coordinator) wait(ctx context.Context) error {
	if c.settle <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Coordinator) container(page *extract.Page, control *goquery.Selection) *goquery.Selection {
	found := c.x.Container(page, control)
	if !isRoot(page, found) {
		return found
	}

	c.mu.Lock()
	hover := c.hover
	c.mu.Unlock()
	if hover == nil || hover.Length() == 0 || !inDocument(page, hover) {
		return found
	}
	if viaHover := c.x.Container(page, hover); !isRoot(page, viaHover) {
		return viaHover
	}
	return found
}

func isRoot(page *extract.Page, sel *goquery.Selection) bool {
	root := page.Root()
	return sel == nil || sel.Length() == 0 || (root.Length() > 0 && sel.Get(0) == root.Get(0))
}

func inDocument(page *extract.Page, sel *goquery.Selection) bool {
	var top *html.Node
	for n := sel.Get(0); n != nil; n = n.Parent {
		top = n
	}
	return len(page.Doc.Nodes) > 0 && top == page.Doc.Nodes[0]
}

func failed(action extract.Action, err error) Outcome {
	msg := "Could not save this post"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		msg = "Capture cancelled"
	case errors.Is(err, extract.ErrNoPost):
		msg = "No post found here"
	case err != nil:
		msg = fmt.Sprintf("Could not save this post: %v", err)
	}
	return Outcome{Status: StatusFailed, Action: action, Message: msg}
}
