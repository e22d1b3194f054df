//go:build windows

package windowctl

import (
	"fmt"
	"log/slog"
	"syscall"
	"unsafe"

	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/target"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")

	procFindWindowW         = user32.NewProc("FindWindowW")
	procIsWindow            = user32.NewProc("IsWindow")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
	procGetClientRect       = user32.NewProc("GetClientRect")
	procAdjustWindowRectEx  = user32.NewProc("AdjustWindowRectEx")
	procSetWindowPos        = user32.NewProc("SetWindowPos")
	procGetWindowLongPtrW   = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW   = user32.NewProc("SetWindowLongPtrW")
	procGetSystemMetrics    = user32.NewProc("GetSystemMetrics")
)

const (
	gwlStyle   = -16
	gwlExStyle = -20

	wsOverlappedWindow = 0x00CF0000
	wsPopup            = 0x80000000
	wsCaption          = 0x00C00000
	wsThickFrame       = 0x00040000

	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010
	swpFrameChanged = 0x0020

	hwndBottom = 1
	hwndTop    = 0

	smCXScreen = 0
	smCYScreen = 1
)

type win32Rect struct {
	Left, Top, Right, Bottom int32
}

// winController is the Windows implementation of Controller.
type winController struct{}

// New returns the default WindowControl implementation.
func New() Controller { return &winController{} }

func (c *winController) FindTargetWindow(title string) (target.Handle, error) {
	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return 0, fmt.Errorf("windowctl: invalid title %q: %w", title, err)
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(titlePtr)))
	return target.Handle(hwnd), nil
}

// revalidate implements spec.md's "the handle is revalidated at every entry
// point" invariant: operations on an invalid handle fail-safe, never crash.
func revalidate(h target.Handle) bool {
	if !h.Valid() {
		return false
	}
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}

func getWindowRect(h target.Handle) (win32Rect, bool) {
	var r win32Rect
	ret, _, _ := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	return r, ret != 0
}

func getStyle(h target.Handle, idx int) uint32 {
	ret, _, _ := procGetWindowLongPtrW.Call(uintptr(h), uintptr(idx))
	return uint32(ret)
}

func setStyle(h target.Handle, idx int, style uint32) {
	procSetWindowLongPtrW.Call(uintptr(h), uintptr(idx), uintptr(style))
}

func (c *winController) ScreenSize() (geometry.Size, error) {
	w, _, _ := procGetSystemMetrics.Call(smCXScreen)
	h, _, _ := procGetSystemMetrics.Call(smCYScreen)
	if w == 0 || h == 0 {
		return geometry.Size{}, fmt.Errorf("windowctl: GetSystemMetrics returned zero screen size")
	}
	return geometry.Size{W: int(w), H: int(h)}, nil
}

// Resize implements spec.md 4.3. Idempotent on size: calling with the same
// (w,h) is a no-op on size but still re-centers, matching the source's
// "always reposition" behavior.
func (c *winController) Resize(w *target.Window, size geometry.Size, lowerTaskbar bool) error {
	h := w.Handle()
	if !revalidate(h) {
		return fmt.Errorf("windowctl: %w", target.ErrInvalidHandle)
	}

	screen, err := c.ScreenSize()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}

	style := getStyle(h, gwlStyle)
	w.SaveStyleOnce(style)

	exceedsScreen := size.W > screen.W || size.H > screen.H
	if style&wsOverlappedWindow == wsOverlappedWindow && exceedsScreen {
		newStyle := (style &^ uint32(wsOverlappedWindow)) | wsPopup
		setStyle(h, gwlStyle, newStyle)
		w.SetBorderless(true)
		style = newStyle
	}

	// AdjustWindowRectEx converts the desired client size into the window
	// rect that produces it, given the current (possibly just-stripped)
	// style.
	rect := win32Rect{Right: int32(size.W), Bottom: int32(size.H)}
	exStyle := getStyle(h, gwlExStyle)
	ret, _, _ := procAdjustWindowRectEx.Call(
		uintptr(unsafe.Pointer(&rect)), uintptr(style), 0, uintptr(exStyle),
	)
	if ret == 0 {
		return fmt.Errorf("%w: AdjustWindowRectEx failed", ErrResizeFailed)
	}
	winW := int(rect.Right - rect.Left)
	winH := int(rect.Bottom - rect.Top)

	x, y := geometry.CenterOn(geometry.Size{W: winW, H: winH}, screen)

	ret, _, _ = procSetWindowPos.Call(
		uintptr(h), 0,
		uintptr(int32(x)), uintptr(int32(y)),
		uintptr(winW), uintptr(winH),
		swpNoZOrder|swpFrameChanged,
	)
	if ret == 0 {
		return fmt.Errorf("%w: SetWindowPos failed", ErrResizeFailed)
	}

	w.SetCached(geometry.Rect{X: float64(x), Y: float64(y), W: float64(winW), H: float64(winH)}, size)

	if lowerTaskbar {
		lowerSystemTaskbar()
		w.SetTaskbarLowered(true)
	} else if w.TaskbarLowered() {
		restoreSystemTaskbar()
		w.SetTaskbarLowered(false)
	}

	slog.Info("windowctl: resized target window", "width", size.W, "height", size.H, "x", x, "y", y, "borderless", w.Borderless())
	return nil
}

// Reset implements spec.md 4.3: revert to screen-size resolution at ratio 1,
// restoring the window's original decoration.
func (c *winController) Reset(w *target.Window) error {
	h := w.Handle()
	if !revalidate(h) {
		return fmt.Errorf("windowctl: %w", target.ErrInvalidHandle)
	}

	screen, err := c.ScreenSize()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}

	if saved, ok := w.SavedStyle(); ok {
		setStyle(h, gwlStyle, saved)
	}
	w.SetBorderless(false)

	if err := c.Resize(w, screen, false); err != nil {
		return err
	}

	if w.TaskbarLowered() {
		restoreSystemTaskbar()
		w.SetTaskbarLowered(false)
	}
	return nil
}

func (c *winController) ToggleBorderless(w *target.Window) error {
	h := w.Handle()
	if !revalidate(h) {
		return fmt.Errorf("windowctl: %w", target.ErrInvalidHandle)
	}
	style := getStyle(h, gwlStyle)
	if style&wsPopup != 0 {
		style = (style &^ uint32(wsPopup)) | wsOverlappedWindow
		w.SetBorderless(false)
	} else {
		style = (style &^ uint32(wsOverlappedWindow)) | wsPopup
		w.SetBorderless(true)
	}
	setStyle(h, gwlStyle, style)
	procSetWindowPos.Call(uintptr(h), 0, 0, 0, 0, 0, swpNoZOrder|swpNoActivate|swpFrameChanged|0x0001|0x0002)
	return nil
}

// lowerSystemTaskbar pushes the Shell_TrayWnd window to the bottom of the
// z-order so the oversized/borderless target window is not occluded by it.
func lowerSystemTaskbar() {
	classPtr, _ := syscall.UTF16PtrFromString("Shell_TrayWnd")
	tray, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(classPtr)), 0)
	if tray == 0 {
		return
	}
	procSetWindowPos.Call(tray, hwndBottom, 0, 0, 0, 0, swpNoActivate|0x0001|0x0002)
}

// restoreSystemTaskbar raises the taskbar back to its normal topmost slot.
func restoreSystemTaskbar() {
	classPtr, _ := syscall.UTF16PtrFromString("Shell_TrayWnd")
	tray, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(classPtr)), 0)
	if tray == 0 {
		return
	}
	const hwndTopmost = ^uintptr(0) // -1
	procSetWindowPos.Call(tray, hwndTopmost, 0, 0, 0, 0, swpNoActivate|0x0001|0x0002)
}
