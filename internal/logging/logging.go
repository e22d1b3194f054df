// Package logging provides the process-wide structured logger. Packages
// log through slog.Default() (or a component-scoped logger obtained via
// For) before Init ever runs; once Init installs the configured handler,
// every previously-created logger picks it up retroactively because they
// all wrap the same switchableHandler.
//
// Adapted from the teacher's internal/logging package: same
// switchable-handler trick, this domain's log keys.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Structured log field keys used across the render pipeline.
const (
	KeyComponent     = "component"
	KeyConsumer      = "consumer"
	KeyWindowHandle  = "windowHandle"
	KeySessionToken  = "sessionToken"
	KeyDurationMs    = "durationMs"
	KeyError         = "error"
)

type switchableHandler struct {
	state  *switchableState
	attrs  []slog.Attr
	groups []string
}

type switchableState struct {
	current atomic.Value // slog.Handler
}

func newSwitchableHandler(h slog.Handler) *switchableHandler {
	state := &switchableState{}
	state.current.Store(h)
	return &switchableHandler{state: state}
}

func (h *switchableHandler) set(handler slog.Handler) {
	h.state.current.Store(handler)
}

func (h *switchableHandler) base() slog.Handler {
	return h.state.current.Load().(slog.Handler)
}

func (h *switchableHandler) materialize() slog.Handler {
	handler := h.base()
	for _, group := range h.groups {
		handler = handler.WithGroup(group)
	}
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	return handler
}

func (h *switchableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.materialize().Enabled(ctx, level)
}

func (h *switchableHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.materialize().Handle(ctx, record)
}

func (h *switchableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	groups := make([]string, len(h.groups))
	copy(groups, h.groups)
	return &switchableHandler{state: h.state, attrs: merged, groups: groups}
}

func (h *switchableHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, len(h.groups)+1)
	copy(groups, h.groups)
	groups[len(h.groups)] = name
	attrs := make([]slog.Attr, len(h.attrs))
	copy(attrs, h.attrs)
	return &switchableHandler{state: h.state, attrs: attrs, groups: groups}
}

var root = newSwitchableHandler(slog.NewTextHandler(os.Stderr, nil))

func init() {
	slog.SetDefault(slog.New(root))
}

// Options configures Init.
type Options struct {
	Level  slog.Level
	JSON   bool
	Output io.Writer
}

// Init installs the configured handler into every logger created before
// this call — they all resolve through root, so they need no recreation.
func Init(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	root.set(handler)
}

// For returns a logger scoped to the given component name, e.g.
// logging.For("overlay"). The component field survives Init being called
// later, since the returned logger's handler is root (or a WithAttrs
// wrapper of it).
func For(component string) *slog.Logger {
	return slog.New(root).With(KeyComponent, component)
}
