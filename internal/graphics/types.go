// Package graphics owns the single D3D11 device and immediate context
// shared by capture, overlay, preview, and screenshot. It is the sole
// producer of GPU handles in the process; every other package borrows a
// reference rather than creating its own device.
package graphics

import "errors"

// ErrUnsupportedPlatform is returned by the non-Windows build of this
// package. The render pipeline this repo implements is Windows-only (DXGI
// Desktop Duplication / Windows.Graphics.Capture have no analog elsewhere);
// the stub exists only so the module builds on other platforms.
var ErrUnsupportedPlatform = errors.New("graphics: unsupported platform")

// DeviceHandle is an opaque, reference-counted handle to the shared D3D11
// device and immediate context. Call Release when done; the underlying
// device is torn down when the last handle is released.
type DeviceHandle interface {
	// Device returns the raw ID3D11Device COM pointer for packages that need
	// to create their own textures/views against it.
	Device() uintptr
	// Context returns the raw ID3D11DeviceContext COM pointer. Callers must
	// not use it concurrently with another holder's Context() calls without
	// their own mutex — the immediate context is not thread-safe.
	Context() uintptr
	// Release drops this holder's reference. Must be called from the same
	// logical owner that acquired the handle — never from a frame-arrived
	// callback, per spec.md 4.1.
	Release()
}

// Context is the GraphicsContext component: acquire() / release_all() in
// spec.md 4.1, expressed as an explicit Go API.
type Context interface {
	// Acquire lazily creates the device on first call and returns a new
	// reference-counted handle on every call thereafter.
	Acquire() (DeviceHandle, error)
}
