// Package screenshot implements ScreenshotEncoder (spec.md 4.7): a
// one-shot GPU texture readback to a PNG or JPEG file, driven by its own
// short-lived FrameSource session so it never disturbs whatever Overlay
// or Preview session is already running against the same target.
package screenshot

import (
	"context"
	"errors"

	"github.com/ChanIok/spinningmomo/internal/target"
)

// ErrWindowMinimized is returned (and reported via the Outcome passed to
// the completion callback) when the target is iconified. Per spec.md's
// scenario E6, this is surfaced to the notification sink as
// WINDOW_NOT_FOUND, matching the source's treatment of "minimized" as
// "not found" for screenshot purposes.
var ErrWindowMinimized = errors.New("screenshot: target window is minimized")

// ErrUnsupportedPlatform is returned by the non-Windows build.
var ErrUnsupportedPlatform = errors.New("screenshot: unsupported platform")

// Format selects the output encoding.
type Format int

const (
	PNG Format = iota
	JPEG
)

// jpegQuality is the fixed quality spec.md 4.7 specifies for JPEG output.
const jpegQuality = 85

// Config parameterizes a single capture.
type Config struct {
	Format    Format
	OutputDir string
}

// Outcome is delivered exactly once to Capture's completion callback.
type Outcome struct {
	Success bool
	Path    string
	Err     error
}

// Encoder is the ScreenshotEncoder component.
type Encoder interface {
	// Capture obtains exactly one frame from a dedicated FrameSource
	// session, copies it to a CPU-readable staging texture, and encodes it
	// to disk, invoking cb exactly once with the result. Never affects
	// ConsumerSet state.
	Capture(ctx context.Context, win *target.Window, cfg Config, cb func(Outcome))
}
