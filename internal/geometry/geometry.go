// Package geometry computes the derived resolutions and rectangles shared
// by WindowControl, OverlayRenderer, and PreviewRenderer: target window
// sizes from an aspect ratio and pixel budget, overlay fit-to-screen sizes,
// and preview viewport rectangles.
package geometry

import (
	"fmt"
	"math"
)

// Size is a width/height pair in pixels.
type Size struct {
	W, H int
}

// Point is a 2D coordinate, used both in screen space and in normalized
// [0,1]^2 relative space depending on context.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle with a top-left origin and a size.
// Origin may be negative (a window centered beyond the screen).
type Rect struct {
	X, Y, W, H float64
}

// Resolution is a concrete pixel resolution with its derived pixel count.
type Resolution struct {
	Width       uint32
	Height      uint32
	TotalPixels uint64
}

// NewResolution constructs a Resolution, computing TotalPixels at
// construction per the data-model invariant.
func NewResolution(width, height uint32) Resolution {
	return Resolution{
		Width:       width,
		Height:      height,
		TotalPixels: uint64(width) * uint64(height),
	}
}

// AspectRatio is a named width/height ratio, strictly positive.
type AspectRatio struct {
	Name  string
	Ratio float64
}

// NewAspectRatio validates ratio > 0 before constructing.
func NewAspectRatio(name string, ratio float64) (AspectRatio, error) {
	if ratio <= 0 {
		return AspectRatio{}, fmt.Errorf("geometry: aspect ratio must be positive, got %v", ratio)
	}
	return AspectRatio{Name: name, Ratio: ratio}, nil
}

// ComputeByPixelBudget derives a (w, h) near the given ratio whose product
// is at least totalPixels, per spec.md's TargetGeometry formula:
//
//	w = round(sqrt(total_pixels * ratio)); h = round(w / ratio)
//	bump w by 1 if w*h < total_pixels
func ComputeByPixelBudget(totalPixels uint64, ratio float64) Resolution {
	w := math.Round(math.Sqrt(float64(totalPixels) * ratio))
	h := math.Round(w / ratio)
	if w*h < float64(totalPixels) {
		w++
	}
	return NewResolution(uint32(w), uint32(h))
}

// ComputeByScreen derives the largest (w, h) at the given ratio that fits
// the screen in at least one dimension — used when no pixel budget is
// configured (resolution index 0 means "default, derive from screen").
func ComputeByScreen(ratio float64, screen Size) Resolution {
	// Fit to width first; if that overflows height, fit to height instead.
	w := float64(screen.W)
	h := w / ratio
	if h > float64(screen.H) {
		h = float64(screen.H)
		w = h * ratio
	}
	return NewResolution(uint32(math.Round(w)), uint32(math.Round(h)))
}

// ComputeTargetGeometry implements the full TargetGeometry derivation:
// pixelBudget == 0 means "use ComputeByScreen", otherwise ComputeByPixelBudget.
func ComputeTargetGeometry(ratio float64, pixelBudget uint64, screen Size) Resolution {
	if pixelBudget == 0 {
		return ComputeByScreen(ratio, screen)
	}
	return ComputeByPixelBudget(pixelBudget, ratio)
}

// OverlayFitSize computes the overlay window size O for a logical target
// size L on screen S, per spec.md 4.4:
//
//	fit-to-height when L.w*S.h <= S.w*L.h, else fit-to-width.
func OverlayFitSize(logical, screen Size) Size {
	lw, lh := float64(logical.W), float64(logical.H)
	sw, sh := float64(screen.W), float64(screen.H)

	if lw*sh <= sw*lh {
		// fit-to-height
		h := sh
		w := sh * lw / lh
		return Size{W: int(math.Round(w)), H: int(math.Round(h))}
	}
	// fit-to-width
	w := sw
	h := sw * lh / lw
	return Size{W: int(math.Round(w)), H: int(math.Round(h))}
}

// CenterOn returns the top-left origin that centers a window of size `win`
// on a screen of size `screen`. The result may be negative (intentional —
// the window can extend off-screen).
func CenterOn(win, screen Size) (x, y int) {
	x = (screen.W - win.W) / 2
	y = (screen.H - win.H) / 2
	return x, y
}

// Viewport computes the PreviewRenderer's viewport rectangle in
// preview-local coordinates, per spec.md 4.5:
//
//	scale = P / G.size
//	viewport.tl = (-G.tl / G.size) * P
//	viewport.size = S * scale
//
// fits reports whether G already fits entirely within S (in which case the
// viewport is not meaningful and should be hidden by the caller).
func Viewport(previewSize Size, targetRect Rect, screen Size) (v Rect, fits bool) {
	scaleX := float64(previewSize.W) / targetRect.W
	scaleY := float64(previewSize.H) / targetRect.H

	v = Rect{
		X: (-targetRect.X / targetRect.W) * float64(previewSize.W),
		Y: (-targetRect.Y / targetRect.H) * float64(previewSize.H),
		W: float64(screen.W) * scaleX,
		H: float64(screen.H) * scaleY,
	}

	fits = targetRect.X >= 0 && targetRect.Y >= 0 &&
		targetRect.X+targetRect.W <= float64(screen.W) &&
		targetRect.Y+targetRect.H <= float64(screen.H)
	return v, fits
}

// IdealPreviewSize clamps a requested preview "ideal size" (the larger of
// its two client-area dimensions) into [screenMin/10, screenMax].
func IdealPreviewSize(requested float64, screen Size) float64 {
	min := float64(minInt(screen.W, screen.H)) / 10
	max := float64(maxInt(screen.W, screen.H))
	if requested < min {
		return min
	}
	if requested > max {
		return max
	}
	return requested
}

// PreviewClientSize derives the preview window's client area from an ideal
// size and the target aspect ratio, per spec.md 4.5: the larger side is
// round(ideal) — (round(ideal), round(ideal/aspect)) when aspect >= 1,
// (round(ideal*aspect), round(ideal)) when aspect < 1.
func PreviewClientSize(ideal, aspect float64) Size {
	if aspect >= 1 {
		return Size{W: int(math.Round(ideal)), H: int(math.Round(ideal / aspect))}
	}
	return Size{W: int(math.Round(ideal * aspect)), H: int(math.Round(ideal))}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
