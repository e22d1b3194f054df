//go:build !windows

package letterbox

import "github.com/ChanIok/spinningmomo/internal/target"

type unsupportedRenderer struct{}

// New returns the default Renderer implementation.
func New() Renderer { return unsupportedRenderer{} }

func (unsupportedRenderer) Start(win *target.Window, cfg Config) error {
	return ErrUnsupportedPlatform
}

func (unsupportedRenderer) Resize(cfg Config) error { return ErrUnsupportedPlatform }

func (unsupportedRenderer) Stop() {}

func (unsupportedRenderer) Running() bool { return false }
