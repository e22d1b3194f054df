package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDragMode_ZeroValueIsDragNone(t *testing.T) {
	var m DragMode
	assert.Equal(t, DragNone, m)
}

func TestZoomRequestedSize_WheelZoomIn(t *testing.T) {
	// E4: ideal_size 540 zoomed in one notch (delta > 0) must land on 594,
	// a 10% multiplicative step, not the fixed-pixel-additive step this
	// replaced.
	assert.InDelta(t, 594.0, zoomRequestedSize(540, 120), 1e-9)
}

func TestZoomRequestedSize_WheelZoomOut(t *testing.T) {
	assert.InDelta(t, 486.0, zoomRequestedSize(540, -120), 1e-9)
}

func TestDragMode_DistinctValues(t *testing.T) {
	modes := []DragMode{DragNone, DragTitleBar, DragViewport, DragRecenter}
	seen := make(map[DragMode]bool, len(modes))
	for _, m := range modes {
		assert.False(t, seen[m], "duplicate DragMode value %v", m)
		seen[m] = true
	}
}
