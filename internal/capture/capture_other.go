//go:build !windows

package capture

import (
	"context"

	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/target"
)

type unsupportedSource struct{}

// New returns a FrameSource stub on platforms without Windows.Graphics.Capture.
func New(gfx graphics.Context) FrameSource {
	return unsupportedSource{}
}

func (unsupportedSource) Start(ctx context.Context, w *target.Window, cfg CaptureConfig, onFrame func(CapturedFrame)) (CaptureSession, error) {
	return CaptureSession{}, ErrUnsupportedPlatform
}

func (unsupportedSource) ResizeIfChanged(newSize geometry.Size) error {
	return ErrUnsupportedPlatform
}

func (unsupportedSource) Stop() {}
