// Package overlay implements OverlayRenderer (spec.md 4.4): a fullscreen,
// click-through, oversized window that composites the captured frame and
// pans the target window to follow the cursor, which it polls rather than
// hooks.
package overlay

import (
	"context"
	"errors"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/target"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

// State is the OverlayRenderer lifecycle, per spec.md 4.4.
type State int

const (
	Stopped State = iota
	Starting
	Running
	TearingDown
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case TearingDown:
		return "tearing_down"
	default:
		return "stopped"
	}
}

// ErrAlreadyRunning is returned by Start when the overlay is Starting or
// Running, or TearingDown after its deferred cleanup has already begun.
var ErrAlreadyRunning = errors.New("overlay: already running")

// ErrNotRunning is returned by operations that require Running state.
var ErrNotRunning = errors.New("overlay: not running")

// ErrUnsupportedPlatform is returned by the non-Windows build.
var ErrUnsupportedPlatform = errors.New("overlay: unsupported platform")

// Config parameterizes an overlay session.
type Config struct {
	// LogicalSize is the target window's current logical (ratio-derived)
	// size L, used to compute the overlay's fit-to-screen size O and the
	// pan range, per spec.md 4.4.
	LogicalSize geometry.Size
	Screen      geometry.Size
}

// Renderer is the OverlayRenderer component.
type Renderer interface {
	// Start transitions Stopped -> Starting -> Running, subscribing src to
	// win and creating the oversized compositor window. From TearingDown,
	// while the deferred cleanup is still pending, it cancels the cleanup
	// and returns to Running on the existing device and window. Otherwise
	// returns ErrAlreadyRunning if not currently Stopped.
	Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg Config) error

	// Resize recomputes the overlay's fit-to-screen size and pan range for
	// a new logical size (e.g. after ApplyRatio/ApplyResolution while
	// running), without tearing down the capture session.
	Resize(cfg Config) error

	// Stop transitions Running -> TearingDown -> Stopped, releasing all
	// goroutines and GPU resources. Idempotent.
	Stop()

	// State reports the current lifecycle state.
	State() State
}

// deps bundles the platform services a Renderer needs, so tests can
// substitute fakes for windowctl.Controller and graphics.Context.
type deps struct {
	gfx graphics.Context
	ctl windowctl.Controller
}
