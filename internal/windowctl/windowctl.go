// Package windowctl implements WindowControl (spec.md 4.3): all mutating
// operations on the target window — resize, reposition, border-style
// toggling, and taskbar z-order — plus the name-based lookup the core's
// Non-goals carve out as in-scope ("no window discovery" beyond a simple
// by-title find; handles otherwise come in from the UI layer already
// resolved).
package windowctl

import (
	"errors"

	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/target"
)

// ErrUnsupportedPlatform is returned by the non-Windows build.
var ErrUnsupportedPlatform = errors.New("windowctl: unsupported platform")

// ErrResizeFailed corresponds to spec.md's ResizeFailed error kind.
var ErrResizeFailed = errors.New("windowctl: resize failed")

// Controller is the WindowControl component.
type Controller interface {
	// FindTargetWindow resolves a window by its exact title, returning
	// target.ErrInvalidHandle-compatible nil handle semantics: a zero
	// Handle and a nil error when nothing matches (callers turn that into
	// the WINDOW_NOT_FOUND notification, not an error return).
	FindTargetWindow(title string) (target.Handle, error)

	// Resize mutates w to the given client size, switching to a borderless
	// popup style first if the size would otherwise exceed the screen.
	// Positions the window so its client-area center lands on the screen
	// center (intentionally allowing negative origin). lowerTaskbar pushes
	// the system taskbar to the bottom of the z-order.
	Resize(w *target.Window, size geometry.Size, lowerTaskbar bool) error

	// Reset restores w to the primary screen's resolution at ratio 1 and
	// restores its original decoration and taskbar z-order.
	Reset(w *target.Window) error

	// ToggleBorderless flips w between its overlapped and popup style.
	ToggleBorderless(w *target.Window) error

	// ScreenSize returns the primary monitor's size, used by geometry
	// computations and by Resize/Reset centering.
	ScreenSize() (geometry.Size, error)
}
