// Package capture implements FrameSource (spec.md 4.2): a per-window GPU
// frame producer built on the Windows.Graphics.Capture API, subscribing to
// a target window by handle rather than the whole desktop.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/target"
)

// ErrUnsupportedPlatform is returned by the capture session on non-Windows
// builds.
var ErrUnsupportedPlatform = errors.New("capture: unsupported platform")

// ErrWindowNotCapturable is returned by ResizeIfChanged when no capture
// session is active to resize.
var ErrWindowNotCapturable = errors.New("capture: window not capturable")

// CaptureConfig parameterizes a capture session.
type CaptureConfig struct {
	// IncludeCursor mirrors GraphicsCaptureSession.IsCursorCaptureEnabled.
	IncludeCursor bool
	// YieldOnMinimize is carried with the session's configuration; the
	// Windows session does not read it, so frame delivery is not changed
	// while the window is minimized.
	YieldOnMinimize bool
}

// CapturedFrame is one GPU-resident frame delivered to a consumer. The
// Texture handle is an ID3D11Texture2D valid only until Release is called;
// consumers that need to keep pixels past that point must copy while
// Release has not yet been invoked.
type CapturedFrame struct {
	Texture  uintptr
	Size     geometry.Size
	Token    uuid.UUID // CaptureSession.Token this frame belongs to
	Sequence uint64
	Produced time.Time
	Release  func()
}

// CaptureSession identifies one subscription to a window. The Token
// disambiguates frames delivered after a resize recreated the underlying
// frame pool, per spec.md's "stale frame" edge case.
type CaptureSession struct {
	Token  uuid.UUID
	Window target.Handle
}

// FrameSource is the per-window GPU frame producer (spec.md 4.2).
type FrameSource interface {
	// Start subscribes to w and begins delivering frames to onFrame on an
	// internal goroutine until ctx is canceled or Stop is called. onFrame
	// must not block significantly; it is called from the frame-pool's
	// delivery goroutine.
	Start(ctx context.Context, w *target.Window, cfg CaptureConfig, onFrame func(CapturedFrame)) (CaptureSession, error)

	// ResizeIfChanged recreates the frame pool's buffers when the
	// window's client size no longer matches the pool's buffer size.
	// A no-op when sizes already match.
	ResizeIfChanged(newSize geometry.Size) error

	// Stop ends delivery and releases the frame pool and capture item.
	// Idempotent.
	Stop()
}
