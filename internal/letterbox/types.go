// Package letterbox implements LetterboxWindow (spec.md 4.6): a
// fullscreen black backdrop shown behind an oversized target window when
// it overflows the screen in exactly one axis, so the visible sliver of
// desktop behind it doesn't show through. Subsumed whenever Overlay is
// active; that invariant is enforced by CoordinationHub, never here.
package letterbox

import (
	"errors"

	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/target"
)

// ErrAlreadyRunning is returned by Start when a session is already active.
var ErrAlreadyRunning = errors.New("letterbox: already running")

// ErrNotRunning is returned by operations that require an active session.
var ErrNotRunning = errors.New("letterbox: not running")

// ErrUnsupportedPlatform is returned by the non-Windows build.
var ErrUnsupportedPlatform = errors.New("letterbox: unsupported platform")

// Config parameterizes a letterbox session.
type Config struct {
	Screen geometry.Size
}

// Renderer is the LetterboxWindow component.
type Renderer interface {
	// Start creates the backdrop window and the target event-hook thread.
	// The backdrop's own visibility tracks win's rect against cfg.Screen —
	// shown only while exactly one axis overflows.
	Start(win *target.Window, cfg Config) error

	// Resize recomputes visibility and backdrop extent for a new screen
	// size, without tearing down the event hook.
	Resize(cfg Config) error

	// Stop tears down the backdrop window and event hook. Idempotent.
	Stop()

	// Running reports whether a session is active.
	Running() bool
}

// ShouldShow implements spec.md 4.6's visibility rule: the backdrop is
// shown only when the target overflows the screen in exactly one axis,
// and never while the target is minimized.
func ShouldShow(targetRect geometry.Rect, screen geometry.Size, minimized bool) bool {
	if minimized {
		return false
	}
	overflowsW := targetRect.W > float64(screen.W)
	overflowsH := targetRect.H > float64(screen.H)
	return overflowsW != overflowsH
}
