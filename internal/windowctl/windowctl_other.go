//go:build !windows

package windowctl

import (
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/target"
)

// New returns a Controller stub on non-Windows platforms.
func New() Controller { return &unsupportedController{} }

type unsupportedController struct{}

func (c *unsupportedController) FindTargetWindow(title string) (target.Handle, error) {
	return 0, ErrUnsupportedPlatform
}

func (c *unsupportedController) Resize(w *target.Window, size geometry.Size, lowerTaskbar bool) error {
	return ErrUnsupportedPlatform
}

func (c *unsupportedController) Reset(w *target.Window) error {
	return ErrUnsupportedPlatform
}

func (c *unsupportedController) ToggleBorderless(w *target.Window) error {
	return ErrUnsupportedPlatform
}

func (c *unsupportedController) ScreenSize() (geometry.Size, error) {
	return geometry.Size{}, ErrUnsupportedPlatform
}
