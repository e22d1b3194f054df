package letterbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChanIok/spinningmomo/internal/geometry"
)

func TestShouldShow_BothAxesOverflow_NotShown(t *testing.T) {
	screen := geometry.Size{W: 1920, H: 1080}
	rect := geometry.Rect{W: 7680, H: 4320}
	assert.False(t, ShouldShow(rect, screen, false))
}

func TestShouldShow_OneAxisOverflows_Shown(t *testing.T) {
	screen := geometry.Size{W: 1920, H: 1080}
	rect := geometry.Rect{W: 3000, H: 1080}
	assert.True(t, ShouldShow(rect, screen, false))
}

func TestShouldShow_FitsEntirely_NotShown(t *testing.T) {
	screen := geometry.Size{W: 1920, H: 1080}
	rect := geometry.Rect{W: 1280, H: 720}
	assert.False(t, ShouldShow(rect, screen, false))
}

func TestShouldShow_MinimizedNeverShown(t *testing.T) {
	screen := geometry.Size{W: 1920, H: 1080}
	rect := geometry.Rect{W: 3000, H: 1080}
	assert.False(t, ShouldShow(rect, screen, true))
}
