package transport

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/importer"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

// Handler serves one request kind.
type Handler func(ctx context.Context, req Request) (any, error)

// Deps are the services the handlers run against.
type Deps struct {
	Engine    *storage.Engine
	Importers *importer.Registry
	// Fetcher downloads feeds for IMPORT_FILE requests carrying a URL.
	// Nil disables that path.
	Fetcher *importer.Fetcher
	Clock   domain.Clock
}

// Dispatcher routes requests to their handler.
type Dispatcher struct {
	handlers map[Kind]Handler
	logger   logger.Logger
}

// NewDispatcher registers a handler for every request kind.
func NewDispatcher(deps Deps, log logger.Logger) *Dispatcher {
	if deps.Importers == nil {
		deps.Importers = importer.DefaultRegistry()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	d := &Dispatcher{handlers: make(map[Kind]Handler), logger: log}
	registerHandlers(d, deps)
	return d
}

func on[T Request](d *Dispatcher, fn func(context.Context, T) (any, error)) {
	var zero T
	d.handlers[zero.Kind()] = func(ctx context.Context, req Request) (any, error) {
		typed, ok := req.(T)
		if !ok {
			return nil, fmt.Errorf("handler for %s got %T: %w", zero.Kind(), req, domain.ErrInvalidRequest)
		}
		return fn(ctx, typed)
	}
}

// Handles reports whether kind has a handler.
func (d *Dispatcher) Handles(kind Kind) bool {
	_, ok := d.handlers[kind]
	return ok
}

// Kinds lists the registered kinds, sorted.
func (d *Dispatcher) Kinds() []Kind {
	out := make([]Kind, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch runs the handler for req. It never panics: handler panics and
// errors both come back as a failed Response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	if req == nil {
		return Fail(fmt.Errorf("nil request: %w", domain.ErrInvalidRequest))
	}
	kind := req.Kind()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic",
				logger.String("kind", string(kind)),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			resp = Fail(fmt.Errorf("internal error handling %s", kind))
		}
	}()

	h, ok := d.handlers[kind]
	if !ok {
		return Fail(fmt.Errorf("no handler for %s: %w", kind, domain.ErrInvalidRequest))
	}

	data, err := h(ctx, req)
	if err != nil {
		if CodeOf(err) == CodeInternal {
			d.logger.Error("request failed", logger.String("kind", string(kind)), logger.Error(err))
		} else {
			d.logger.Debug("request rejected", logger.String("kind", string(kind)), logger.Error(err))
		}
		return Fail(err)
	}
	return OK(data)
}

// Send lets a Dispatcher act as its own in-process Sender.
func (d *Dispatcher) Send(ctx context.Context, req Request) (Response, error) {
	return d.Dispatch(ctx, req), nil
}
