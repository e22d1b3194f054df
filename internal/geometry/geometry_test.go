package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 1: resolution-computation round trip.
func TestComputeByPixelBudget_RoundTrip(t *testing.T) {
	ratios := []float64{0.1, 0.5, 1, 16.0 / 9.0, 21.0 / 9.0, 2, 5, 10}
	budgets := []uint64{1e5, 5e5, 1e6, 1e7, 1e8}

	for _, ratio := range ratios {
		for _, budget := range budgets {
			res := ComputeByPixelBudget(budget, ratio)
			got := uint64(res.Width) * uint64(res.Height)
			require.GreaterOrEqualf(t, got, budget,
				"ratio=%v budget=%v -> %dx%d (%d px)", ratio, budget, res.Width, res.Height, got)

			minDim := math.Min(float64(res.Width), float64(res.Height))
			diff := math.Abs(float64(res.Width)/float64(res.Height) - ratio)
			assert.LessOrEqualf(t, diff, 1/minDim,
				"ratio=%v budget=%v -> %dx%d ratio diff %v exceeds 1/min(w,h)=%v",
				ratio, budget, res.Width, res.Height, diff, 1/minDim)
		}
	}
}

// Property 2: resolution-by-screen fit.
func TestComputeByScreen_Fits(t *testing.T) {
	screens := []Size{{1920, 1080}, {2560, 1440}, {3840, 2160}, {1280, 720}}
	ratios := []float64{0.1, 0.5, 1, 16.0 / 9.0, 21.0 / 9.0, 32.0 / 9.0, 10}

	for _, screen := range screens {
		for _, ratio := range ratios {
			res := ComputeByScreen(ratio, screen)
			require.LessOrEqual(t, int(res.Width), screen.W)
			require.LessOrEqual(t, int(res.Height), screen.H)
			tight := int(res.Width) == screen.W || int(res.Height) == screen.H
			assert.Truef(t, tight, "ratio=%v screen=%+v -> %dx%d not tight in either dimension",
				ratio, screen, res.Width, res.Height)
		}
	}
}

// Scenario E1 — oversize + overlay fit-to-height.
func TestScenarioE1_OverlayFit(t *testing.T) {
	screen := Size{1920, 1080}
	ratio := 16.0 / 9.0

	res := ComputeByPixelBudget(33_177_600, ratio)
	assert.Equal(t, uint32(7680), res.Width)
	assert.Equal(t, uint32(4320), res.Height)

	logical := Size{W: int(res.Width), H: int(res.Height)}
	overlay := OverlayFitSize(logical, screen)
	assert.Equal(t, Size{W: 1920, H: 1080}, overlay)

	x, y := CenterOn(logical, screen)
	assert.Less(t, x, 0)
	assert.Less(t, y, 0)
}

// Scenario E2 — ratio without resolution budget, fit-to-width.
func TestScenarioE2_ComputeByScreen(t *testing.T) {
	screen := Size{1920, 1080}
	res := ComputeByScreen(21.0/9.0, screen)
	assert.Equal(t, uint32(1920), res.Width)
	assert.Equal(t, uint32(823), res.Height)
}

// Scenario E3 — preview viewport math.
func TestScenarioE3_Viewport(t *testing.T) {
	screen := Size{1920, 1080}
	preview := Size{400, 225}
	target := Rect{X: -960, Y: -540, W: 3840, H: 2160}

	v, fits := Viewport(preview, target, screen)
	assert.False(t, fits)
	assert.InDelta(t, 100, v.X, 0.01)
	assert.InDelta(t, 56.25, v.Y, 0.01)
	assert.InDelta(t, 200, v.W, 0.01)
	assert.InDelta(t, 112.5, v.H, 0.01)
}

func TestViewport_FitsWhenWithinScreen(t *testing.T) {
	screen := Size{1920, 1080}
	target := Rect{X: 100, Y: 100, W: 800, H: 600}
	_, fits := Viewport(Size{400, 225}, target, screen)
	assert.True(t, fits)
}

func TestIdealPreviewSize_Clamped(t *testing.T) {
	screen := Size{1920, 1080}
	assert.Equal(t, 108.0, IdealPreviewSize(10, screen)) // screenMin/10 = 108
	assert.Equal(t, 1920.0, IdealPreviewSize(5000, screen))
	assert.Equal(t, 500.0, IdealPreviewSize(500, screen))
}

func TestPreviewClientSize(t *testing.T) {
	wide := PreviewClientSize(400, 16.0/9.0)
	assert.Equal(t, 400, wide.W)
	assert.Equal(t, 225, wide.H)

	tall := PreviewClientSize(400, 9.0/16.0)
	assert.Equal(t, 225, tall.W)
	assert.Equal(t, 400, tall.H)
}

func TestNewAspectRatio_RejectsNonPositive(t *testing.T) {
	_, err := NewAspectRatio("bad", 0)
	assert.Error(t, err)
	_, err = NewAspectRatio("bad", -1)
	assert.Error(t, err)
	ratio, err := NewAspectRatio("16:9", 16.0/9.0)
	require.NoError(t, err)
	assert.Equal(t, "16:9", ratio.Name)
}
