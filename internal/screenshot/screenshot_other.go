//go:build !windows

package screenshot

import (
	"context"

	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/target"
)

type unsupportedEncoder struct{}

// New returns a stub Encoder on platforms without a GPU capture pipeline.
func New(gfx graphics.Context) Encoder { return unsupportedEncoder{} }

func (unsupportedEncoder) Capture(ctx context.Context, win *target.Window, cfg Config, cb func(Outcome)) {
	cb(Outcome{Err: ErrUnsupportedPlatform})
}
