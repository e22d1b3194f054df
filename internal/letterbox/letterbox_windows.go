//go:build windows

package letterbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/ChanIok/spinningmomo/internal/logging"
	"github.com/ChanIok/spinningmomo/internal/target"
)

var (
	user32    = syscall.NewLazyDLL("user32.dll")
	gdi32     = syscall.NewLazyDLL("gdi32.dll")

	procRegisterClassExW  = user32.NewProc("RegisterClassExW")
	procCreateWindowExW   = user32.NewProc("CreateWindowExW")
	procDestroyWindow     = user32.NewProc("DestroyWindow")
	procDefWindowProcW    = user32.NewProc("DefWindowProcW")
	procShowWindow        = user32.NewProc("ShowWindow")
	procSetWindowPos      = user32.NewProc("SetWindowPos")
	procGetMessageW       = user32.NewProc("GetMessageW")
	procTranslateMessage  = user32.NewProc("TranslateMessage")
	procDispatchMessageW  = user32.NewProc("DispatchMessageW")
	procPostQuitMessage   = user32.NewProc("PostQuitMessage")
	procPostMessageW      = user32.NewProc("PostMessageW")
	procIsIconic          = user32.NewProc("IsIconic")
	procSetWinEventHook   = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent    = user32.NewProc("UnhookWinEvent")

	procCreateSolidBrush = gdi32.NewProc("CreateSolidBrush")
)

const (
	wsPopup      = 0x80000000
	wsExTopmost  = 0x00000008
	wsExToolwin  = 0x00000080

	swShowNoActivate = 4
	swHide           = 0

	swpNoActivate = 0x0010

	wmDestroy = 0x0002
	wmQuit    = 0x0012

	wmAppEvent = 0x8000 + 1 // WM_APP + 1: posted by the event-hook callback

	eventSystemForeground   = 0x0003
	eventSystemMinimizeStart = 0x0016
	eventSystemMinimizeEnd  = 0x0017
	eventObjectDestroy      = 0x8001
	winEventOutOfContext    = 0x0000
	objIDWindow             = 0
)

type msgT struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      [2]int32
}

// winRenderer implements Renderer: a single goroutine owns a fullscreen
// black message window, installs a WinEventHook watching the target, and
// pumps both, per spec.md 4.6's "event-hook thread ... schedules
// show/hide/teardown on its message window".
type winRenderer struct {
	running atomic.Bool

	mu     sync.Mutex
	hwnd   uintptr
	hook   uintptr
	win    *target.Window
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns the default Renderer implementation.
func New() Renderer { return &winRenderer{} }

func (r *winRenderer) Running() bool { return r.running.Load() }

func (r *winRenderer) Start(win *target.Window, cfg Config) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.win = win
	r.cfg = cfg
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	ready := make(chan error, 1)
	go r.pumpLoop(ctx, win, ready)

	if err := <-ready; err != nil {
		r.running.Store(false)
		return fmt.Errorf("letterbox: %w", err)
	}
	logging.For("letterbox").Info("letterbox started")
	return nil
}

func (r *winRenderer) pumpLoop(ctx context.Context, win *target.Window, ready chan<- error) {
	defer close(r.done)

	wndProc := syscall.NewCallback(func(h uintptr, msg uint32, wParam, lParam uintptr) uintptr {
		switch msg {
		case wmAppEvent:
			r.updateVisibility()
			return 0
		case wmDestroy:
			procPostQuitMessage.Call(0)
			return 0
		}
		ret, _, _ := procDefWindowProcW.Call(h, uintptr(msg), wParam, lParam)
		return ret
	})

	hwnd, err := createBackdropWindow(wndProc)
	if err != nil {
		ready <- err
		return
	}

	targetPID := processIDOf(win.Handle())
	hook, _, _ := procSetWinEventHook.Call(
		uintptr(eventSystemForeground), uintptr(eventObjectDestroy),
		0, winEventHookCallback(hwnd, win),
		uintptr(targetPID), 0, uintptr(winEventOutOfContext),
	)

	r.mu.Lock()
	r.hwnd = hwnd
	r.hook = hook
	r.mu.Unlock()

	ready <- nil
	r.updateVisibility()

	for {
		select {
		case <-ctx.Done():
			r.teardown()
			return
		default:
		}
		var m msgT
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			r.teardown()
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		if m.message == wmQuit {
			r.teardown()
			return
		}
	}
}

// winEventHookCallback returns a WINEVENTPROC that posts a single
// coalescible message to the backdrop window rather than doing any work
// itself — the actual show/hide/teardown logic always runs serialized on
// the pump goroutine.
func winEventHookCallback(hwnd uintptr, win *target.Window) uintptr {
	return syscall.NewCallback(func(hookHandle uintptr, event uint32, eventHwnd uintptr, idObject, idChild int32, idEventThread, eventTime uint32) uintptr {
		if idObject != objIDWindow {
			return 0
		}
		switch event {
		case eventObjectDestroy:
			if eventHwnd == uintptr(win.Handle()) {
				procPostMessageW.Call(hwnd, wmDestroy, 0, 0)
			}
		case eventSystemForeground, eventSystemMinimizeStart, eventSystemMinimizeEnd:
			procPostMessageW.Call(hwnd, wmAppEvent, 0, 0)
		}
		return 0
	})
}

// updateVisibility implements spec.md 4.6: shown only when the target
// overflows the screen in exactly one axis, and hidden while minimized.
func (r *winRenderer) updateVisibility() {
	r.mu.Lock()
	hwnd, win, screen := r.hwnd, r.win, r.cfg.Screen
	r.mu.Unlock()
	if hwnd == 0 || win == nil {
		return
	}

	minimized, _, _ := procIsIconic.Call(uintptr(win.Handle()))
	visible := ShouldShow(win.Rect(), screen, minimized != 0)

	if visible {
		procSetWindowPos.Call(hwnd, uintptr(win.Handle()), 0, 0, uintptr(screen.W), uintptr(screen.H), swpNoActivate)
		procShowWindow.Call(hwnd, swShowNoActivate)
	} else {
		procShowWindow.Call(hwnd, swHide)
	}
}

func (r *winRenderer) Resize(cfg Config) error {
	if !r.running.Load() {
		return ErrNotRunning
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	r.updateVisibility()
	return nil
}

func (r *winRenderer) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.mu.Lock()
	hwnd := r.hwnd
	r.mu.Unlock()
	if hwnd != 0 {
		procPostMessageW.Call(hwnd, wmDestroy, 0, 0)
	}
	if r.done != nil {
		<-r.done
	}
	logging.For("letterbox").Info("letterbox stopped")
}

// teardown runs on the pump goroutine only.
func (r *winRenderer) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hook != 0 {
		procUnhookWinEvent.Call(r.hook)
		r.hook = 0
	}
	if r.hwnd != 0 {
		procDestroyWindow.Call(r.hwnd)
		r.hwnd = 0
	}
}

func createBackdropWindow(wndProc uintptr) (uintptr, error) {
	className, _ := syscall.UTF16PtrFromString("SpinningMomoLetterbox")
	brush, _, _ := procCreateSolidBrush.Call(0) // black

	type wndClassEx struct {
		size       uint32
		style      uint32
		wndProc    uintptr
		clsExtra   int32
		wndExtra   int32
		instance   uintptr
		icon       uintptr
		cursor     uintptr
		background uintptr
		menuName   *uint16
		className  *uint16
		iconSm     uintptr
	}
	wc := wndClassEx{size: uint32(unsafe.Sizeof(wndClassEx{})), wndProc: wndProc, className: className, background: brush}
	procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))

	hwnd, _, err := procCreateWindowExW.Call(
		uintptr(wsExTopmost|wsExToolwin),
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		uintptr(wsPopup),
		0, 0, 1, 1,
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW failed: %v", err)
	}
	return hwnd, nil
}

func processIDOf(h target.Handle) uint32 {
	procGetWindowThreadProcessId := user32.NewProc("GetWindowThreadProcessId")
	var pid uint32
	procGetWindowThreadProcessId.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	return pid
}
