//go:build !windows

package overlay

import (
	"context"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/target"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

type unsupportedRenderer struct{}

// New returns a Renderer stub on platforms without a compositor backend.
func New(gfx graphics.Context, ctl windowctl.Controller) Renderer {
	return unsupportedRenderer{}
}

func (unsupportedRenderer) Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg Config) error {
	return ErrUnsupportedPlatform
}

func (unsupportedRenderer) Resize(cfg Config) error { return ErrUnsupportedPlatform }
func (unsupportedRenderer) Stop()                   {}
func (unsupportedRenderer) State() State            { return Stopped }
