// Package target defines the TargetWindow entity shared by windowctl,
// capture, overlay, and preview: the opaque OS window handle the user
// selected, plus the cached geometry and style bits every other component
// reads. Per spec.md's data model, the handle is revalidated at every
// entry point — operations on an invalid handle fail-safe, never crash.
package target

import (
	"errors"
	"sync"

	"github.com/ChanIok/spinningmomo/internal/geometry"
)

// ErrInvalidHandle is returned by any operation on a TargetWindow whose
// handle no longer refers to a live top-level window.
var ErrInvalidHandle = errors.New("target: window handle is no longer valid")

// Handle is an opaque OS window identifier, externally supplied (this
// package never performs window discovery).
type Handle uintptr

// Valid reports whether h is non-zero. It does not check liveness —
// liveness can only be confirmed by a platform call, see windowctl's
// revalidate.
func (h Handle) Valid() bool { return h != 0 }

// Window is the TargetWindow entity: (handle, cached_rect, cached_size,
// borderless_flag) from spec.md section 3, plus the bookkeeping needed to
// restore the window's exact prior decoration and taskbar state on reset
// (SPEC_FULL.md's original_source-derived supplement).
type Window struct {
	mu sync.RWMutex

	handle     Handle
	rect       geometry.Rect
	size       geometry.Size
	borderless bool

	// savedStyle holds the GWL_STYLE value captured before this package
	// first mutated it, so toggle_borderless/reset can restore the exact
	// prior decoration instead of assuming WS_OVERLAPPEDWINDOW.
	savedStyle     uint32
	hasSavedStyle  bool
	taskbarLowered bool
}

// New wraps an externally-supplied handle. The caller is responsible for
// having found or selected this window; target never searches for one.
func New(h Handle) *Window {
	return &Window{handle: h}
}

// Handle returns the wrapped OS handle.
func (w *Window) Handle() Handle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.handle
}

// Rect returns the last-cached window rectangle.
func (w *Window) Rect() geometry.Rect {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rect
}

// Size returns the last-cached window size.
func (w *Window) Size() geometry.Size {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// Borderless reports the last-known decoration state.
func (w *Window) Borderless() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.borderless
}

// SetCached updates the cached rect/size, e.g. after a successful resize or
// after observing an external move (the user dragging the window).
func (w *Window) SetCached(rect geometry.Rect, size geometry.Size) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rect = rect
	w.size = size
}

// SetBorderless records the current decoration state.
func (w *Window) SetBorderless(b bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.borderless = b
}

// SaveStyleOnce captures style on first call only, so repeated resizes
// don't overwrite the original decoration with an already-stripped one.
func (w *Window) SaveStyleOnce(style uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasSavedStyle {
		w.savedStyle = style
		w.hasSavedStyle = true
	}
}

// SavedStyle returns the captured pre-mutation style and whether one was
// ever saved.
func (w *Window) SavedStyle() (style uint32, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.savedStyle, w.hasSavedStyle
}

// TaskbarLowered reports whether this package lowered the system taskbar
// for this window and has not yet restored it.
func (w *Window) TaskbarLowered() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.taskbarLowered
}

// SetTaskbarLowered records the taskbar z-order state.
func (w *Window) SetTaskbarLowered(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.taskbarLowered = v
}
