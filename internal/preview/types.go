// Package preview implements PreviewRenderer (spec.md 4.5): a small,
// always-on-top window showing the target's full logical frame with a
// viewport rectangle overlay, draggable to pan the target window.
package preview

import (
	"context"
	"errors"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/target"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

// ErrAlreadyRunning is returned by Start when a session is already active.
var ErrAlreadyRunning = errors.New("preview: already running")

// ErrNotRunning is returned by operations that require an active session.
var ErrNotRunning = errors.New("preview: not running")

// ErrUnsupportedPlatform is returned by the non-Windows build.
var ErrUnsupportedPlatform = errors.New("preview: unsupported platform")

// DragMode is the pointer-interaction state machine, per spec.md 4.5.
type DragMode int

const (
	DragNone DragMode = iota
	// DragTitleBar: the user is moving the whole preview window (its
	// normal chrome drag), independent of the viewport.
	DragTitleBar
	// DragViewport: the pointer went down inside the viewport rectangle;
	// subsequent moves pan the target window to follow the cursor.
	DragViewport
	// DragRecenter: the pointer went down outside the viewport; the first
	// move recenters the viewport under the cursor, then behaves like
	// DragViewport for the rest of the gesture.
	DragRecenter
)

// zoomRequestedSize applies spec.md 4.5's wheel-zoom step (±10% per notch,
// multiplicative rather than additive so repeated notches converge
// geometrically instead of drifting) to a requested ideal preview size.
func zoomRequestedSize(current float64, delta int16) float64 {
	const zoomStep = 0.10
	if delta > 0 {
		return current * (1 + zoomStep)
	}
	return current * (1 - zoomStep)
}

// Config parameterizes a preview session.
type Config struct {
	RequestedIdealSize float64 // larger of the two client-area dimensions, pre-clamp
	Aspect             float64 // target aspect ratio
	Screen             geometry.Size
}

// Renderer is the PreviewRenderer component.
type Renderer interface {
	Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg Config) error
	Resize(cfg Config) error
	Stop()
	Running() bool
}

// deps bundles platform services, mirroring internal/overlay's pattern so
// both renderers share the same fake-substitution story in tests.
type deps struct {
	gfx graphics.Context
	ctl windowctl.Controller
}
