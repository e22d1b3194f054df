//go:build windows

package preview

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/comutil"
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/logging"
	"github.com/ChanIok/spinningmomo/internal/target"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

var (
	user32  = syscall.NewLazyDLL("user32.dll")
	d3dcDLL = syscall.NewLazyDLL("d3dcompiler_47.dll")

	procRegisterClassExW = user32.NewProc("RegisterClassExW")
	procCreateWindowExW  = user32.NewProc("CreateWindowExW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procDefWindowProcW   = user32.NewProc("DefWindowProcW")
	procShowWindow       = user32.NewProc("ShowWindow")
	procGetMessageW      = user32.NewProc("GetMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
	procPostQuitMessage  = user32.NewProc("PostQuitMessage")
	procSetWindowPos     = user32.NewProc("SetWindowPos")
	procGetWindowRect    = user32.NewProc("GetWindowRect")

	procD3DCompile = d3dcDLL.NewProc("D3DCompile")
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

const (
	wsOverlappedWindow = 0x00CF0000
	wsExTopmost        = 0x00000008

	swShow = 5

	wmDestroy     = 0x0002
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmMouseMove   = 0x0200
	wmMouseWheel  = 0x020A
	wmQuit        = 0x0012

	swpNoActivate = 0x0010

	dxgiFormatB8G8R8A8 = 87

	d3d11DeviceCreateBuffer              = 3
	d3d11DeviceCreateShaderResourceView  = 7
	d3d11DeviceCreateInputLayout         = 11
	d3d11DeviceCreateVertexShader        = 12
	d3d11DeviceCreatePixelShader         = 15
	d3d11DeviceCreateSamplerState        = 23

	ctxPSSetShaderResources   = 8
	ctxPSSetShader            = 9
	ctxPSSetSamplers          = 10
	ctxVSSetShader            = 11
	ctxDraw                   = 13
	ctxMap                    = 14
	ctxUnmap                  = 15
	ctxIASetInputLayout       = 17
	ctxIASetVertexBuffers     = 18
	ctxIASetPrimitiveTopology = 24
	ctxOMSetRenderTargets     = 33

	d3dPrimitiveTopologyLineStrip     = 3
	d3dPrimitiveTopologyTriangleStrip = 5

	d3d11UsageDynamic    = 2
	d3d11BindVertexBuffer = 0x1
	d3d11CPUAccessWrite  = 0x10000
	d3d11MapWriteDiscard = 4

	vtblBlobGetBufferPointer = 3
	vtblBlobGetBufferSize    = 4
)

// fullscreenQuadVS/PS are the same shader pair as internal/overlay's —
// sample a BGRA texture through a linear-clamp sampler across a
// procedurally generated fullscreen triangle strip, no input layout needed.
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

// viewportLineVS/PS draw the 5-vertex accent-colored line strip marking the
// on-screen-visible slice of the target window, per spec.md 4.5.
const viewportLineVS = `
struct VSIn { float2 pos : POSITION; float4 color : COLOR; };
struct VSOut { float4 pos : SV_POSITION; float4 color : COLOR; };
VSOut main(VSIn i) {
  VSOut o;
  o.pos = float4(i.pos, 0, 1);
  o.color = i.color;
  return o;
}`

const viewportLinePS = `
float4 main(float4 pos : SV_POSITION, float4 color : COLOR) : SV_TARGET {
  return color;
}`

// viewportAccentColor is spec.md 4.5's rgb(255,160,80) in [0,1] RGBA.
var viewportAccentColor = [4]float32{255.0 / 255, 160.0 / 255, 80.0 / 255, 1}

// viewportJitter is the half-pixel jitter spec.md 4.5 applies on alternating
// axes across the five redraws of the viewport outline, emulating a thicker
// line on hardware that strictly rasterizes 1px-wide lines.
var viewportJitter = [5][2]float32{
	{0, 0},
	{0.5, 0},
	{-0.5, 0},
	{0, 0.5},
	{0, -0.5},
}

type lineVertex struct {
	X, Y  float32
	Color [4]float32
}

// winRenderer implements Renderer: a second, independent swapchain window
// much like internal/overlay's, but client-area-scaled instead of
// fullscreen, plus a pointer state machine driving the target window's
// position, per spec.md 4.5.
type winRenderer struct {
	deps

	running atomic.Bool

	mu     sync.Mutex
	device graphics.DeviceHandle
	ctxPtr uintptr // ID3D11DeviceContext, cached from device
	hwnd   uintptr
	swap   uintptr
	rtv    uintptr
	win    *target.Window
	src    capture.FrameSource
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}

	// Textured-quad pipeline drawing the captured frame scaled to the
	// preview's client area.
	vs, ps, sampler uintptr
	srv             uintptr

	// Colored-line pipeline drawing the viewport-outline rectangle.
	lineVS, linePS uintptr
	lineLayout     uintptr
	lineVBuf       uintptr

	dragMode   DragMode
	dragAnchor geometry.Point
}

// New returns the default Renderer implementation.
func New(gfx graphics.Context, ctl windowctl.Controller) Renderer {
	return &winRenderer{deps: deps{gfx: gfx, ctl: ctl}}
}

func (r *winRenderer) Running() bool { return r.running.Load() }

func (r *winRenderer) Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg Config) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	log := logging.For("preview")

	handle, err := r.gfx.Acquire()
	if err != nil {
		r.running.Store(false)
		return fmt.Errorf("preview: acquire device: %w", err)
	}

	size := clientSizeFor(cfg)
	hwnd, err := createPreviewWindow(size)
	if err != nil {
		handle.Release()
		r.running.Store(false)
		return fmt.Errorf("preview: %w", err)
	}

	swap, rtv, err := createSwapChain(handle.Device(), hwnd, size)
	if err != nil {
		procDestroyWindow.Call(hwnd)
		handle.Release()
		r.running.Store(false)
		return fmt.Errorf("preview: %w", err)
	}

	vs, ps, sampler, err := compileQuadPipeline(handle.Device())
	if err != nil {
		comutil.Release(rtv)
		comutil.Release(swap)
		procDestroyWindow.Call(hwnd)
		handle.Release()
		r.running.Store(false)
		return fmt.Errorf("preview: %w", err)
	}
	lineVS, linePS, lineLayout, lineVBuf, err := compileLinePipeline(handle.Device())
	if err != nil {
		comutil.Release(sampler)
		comutil.Release(ps)
		comutil.Release(vs)
		comutil.Release(rtv)
		comutil.Release(swap)
		procDestroyWindow.Call(hwnd)
		handle.Release()
		r.running.Store(false)
		return fmt.Errorf("preview: %w", err)
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
	r.lineVS = lineVS
	r.linePS = linePS
	r.lineLayout = lineLayout
	r.lineVBuf = lineVBuf
	r.win = win
	r.src = src
	r.cfg = cfg
	r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	// The cursor is left out of the capture, as on the overlay and
	// screenshot paths; the preview's miniature is rendered from the raw
	// captured texture so the chrome window's own cursor never gets drawn
	// into someone else's frame.
	_, err = src.Start(runCtx, win, capture.CaptureConfig{IncludeCursor: false, YieldOnMinimize: true}, r.onFrame)
	if err != nil {
		cancel()
		r.teardown()
		r.running.Store(false)
		return fmt.Errorf("preview: start capture: %w", err)
	}

	go r.pumpLoop(runCtx, hwnd)

	log.Info("preview running", logging.KeyWindowHandle, uint64(win.Handle()))
	return nil
}

func (r *winRenderer) onFrame(frame capture.CapturedFrame) {
	defer frame.Release()
	if !r.running.Load() {
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

	// The captured frame is drawn scaled to fill the preview's client area
	// (the same fullscreen-quad pass the overlay uses), then the viewport rectangle marking the
	// target's on-screen-visible slice is drawn on top as a 5-vertex line
	// strip, per spec.md 4.5.
	drawFullscreenQuad(r.ctxPtr, r.rtv, r.vs, r.ps, r.sampler, r.srv)

	if win := r.win; win != nil {
		previewSize := clientSizeFor(r.cfg)
		if vp, fits := geometry.Viewport(previewSize, win.Rect(), r.cfg.Screen); !fits {
			drawViewportOutline(r.ctxPtr, r.rtv, r.lineVS, r.linePS, r.lineLayout, r.lineVBuf, vp, previewSize)
		}
	}

	presentSwapChain(r.swap)
}

// pumpLoop owns the message loop and the pointer state machine described
// in spec.md 4.5: title-bar drag moves the window itself (left to
// DefWindowProc), a click inside the viewport starts DragViewport, a
// click outside it starts DragRecenter (first move snaps the viewport
// under the cursor, then behaves like DragViewport).
func (r *winRenderer) pumpLoop(ctx context.Context, hwnd uintptr) {
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
		switch m.message {
		case wmLButtonDown:
			r.onPointerDown(pointFromLParam(m.lParam))
		case wmMouseMove:
			r.onPointerMove(pointFromLParam(m.lParam))
		case wmLButtonUp:
			r.onPointerUp()
		case wmMouseWheel:
			// WM_MOUSEWHEEL's lParam carries the cursor position in screen
			// coordinates (unlike WM_MOUSEMOVE/WM_LBUTTONDOWN, whose lParam
			// is client-relative), so it's decoded the same way but kept in
			// screen space rather than translated into a geometry.Point via
			// pointFromLParam.
			cursor := geometry.Point{
				X: float64(int16(m.lParam & 0xFFFF)),
				Y: float64(int16(m.lParam >> 16)),
			}
			r.onWheel(int16(m.wParam>>16), cursor)
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		if m.message == wmQuit {
			return
		}
	}
}

func pointFromLParam(lParam uintptr) geometry.Point {
	x := int16(lParam & 0xFFFF)
	y := int16(lParam >> 16)
	return geometry.Point{X: float64(x), Y: float64(y)}
}

func (r *winRenderer) onPointerDown(p geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	win := r.win
	if win == nil {
		return
	}
	previewSize := clientSizeFor(r.cfg)
	vp, fits := geometry.Viewport(previewSize, win.Rect(), r.cfg.Screen)
	if fits {
		return
	}
	inside := p.X >= vp.X && p.X <= vp.X+vp.W && p.Y >= vp.Y && p.Y <= vp.Y+vp.H
	if inside {
		r.dragMode = DragViewport
	} else {
		r.dragMode = DragRecenter
	}
	r.dragAnchor = p
}

// onPointerMove pans the target window so the viewport follows the
// pointer, per spec.md 4.5's independent-axis centering: only the axis
// the pointer actually moved along this event is repositioned, so a
// purely-vertical drag doesn't introduce horizontal jitter. DragRecenter
// snaps the viewport under the cursor on the first move, then continues
// as DragViewport for the rest of the gesture.
func (r *winRenderer) onPointerMove(p geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mode := r.dragMode
	win := r.win
	if mode == DragNone || win == nil {
		return
	}
	if mode == DragRecenter {
		r.dragMode = DragViewport
	}

	previewSize := clientSizeFor(r.cfg)
	rect := win.Rect()
	screen := r.cfg.Screen

	dx := p.X - r.dragAnchor.X
	dy := p.Y - r.dragAnchor.Y
	if mode == DragRecenter {
		// Move by the offset between the cursor and the viewport's center,
		// so the viewport ends up centered under the cursor.
		vp, _ := geometry.Viewport(previewSize, rect, screen)
		dx = p.X - (vp.X + vp.W/2)
		dy = p.Y - (vp.Y + vp.H/2)
	}
	r.dragAnchor = p

	// One preview pixel spans G.size/P target pixels.
	scaleX := rect.W / float64(previewSize.W)
	scaleY := rect.H / float64(previewSize.H)

	newX := rect.X
	newY := rect.Y
	if dx != 0 {
		newX = clampAxis(rect.X-dx*scaleX, rect.W, float64(screen.W))
	}
	if dy != 0 {
		newY = clampAxis(rect.Y-dy*scaleY, rect.H, float64(screen.H))
	}

	moveTargetWindow(win.Handle(), int(newX), int(newY))
	win.SetCached(geometry.Rect{X: newX, Y: newY, W: rect.W, H: rect.H}, geometry.Size{W: int(rect.W), H: int(rect.H)})
}

// clampAxis keeps a window edge from leaving the range that still lets
// some part of the window remain reachable by panning: the target never
// needs to travel further than just off each screen edge.
func clampAxis(pos, extent, screenExtent float64) float64 {
	if pos > 0 {
		return 0
	}
	if pos < screenExtent-extent {
		return screenExtent - extent
	}
	return pos
}

func moveTargetWindow(h target.Handle, x, y int) {
	procSetWindowPos.Call(uintptr(h), 0, uintptr(int32(x)), uintptr(int32(y)), 0, 0, swpNoActivate|0x0001|0x0004)
}

func (r *winRenderer) onPointerUp() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dragMode = DragNone
}

// onWheel adjusts the ideal preview size by spec.md 4.5's ±10%
// multiplicative wheel-zoom step (reclamped every step per
// geometry.IdealPreviewSize's invariant), then resizes the window while
// keeping the point under the cursor stationary on screen: the window's
// origin shifts by the same fraction the cursor sits at within the old
// client rect, scaled to the new size.
func (r *winRenderer) onWheel(delta int16, cursor geometry.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldSize := clientSizeFor(r.cfg)
	r.cfg.RequestedIdealSize = zoomRequestedSize(r.cfg.RequestedIdealSize, delta)
	newSize := clientSizeFor(r.cfg)

	var rect winRect
	procGetWindowRect.Call(r.hwnd, uintptr(unsafe.Pointer(&rect)))

	ow, oh := float64(oldSize.W), float64(oldSize.H)
	if ow <= 0 {
		ow = 1
	}
	if oh <= 0 {
		oh = 1
	}
	fracX := (cursor.X - float64(rect.Left)) / ow
	fracY := (cursor.Y - float64(rect.Top)) / oh

	newX := int32(cursor.X - fracX*float64(newSize.W))
	newY := int32(cursor.Y - fracY*float64(newSize.H))

	procSetWindowPos.Call(r.hwnd, 0,
		uintptr(newX), uintptr(newY),
		uintptr(newSize.W), uintptr(newSize.H),
		swpNoActivate)
}

func (r *winRenderer) Resize(cfg Config) error {
	if !r.running.Load() {
		return ErrNotRunning
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	size := clientSizeFor(cfg)

	if r.rtv != 0 {
		comutil.Release(r.rtv)
		r.rtv = 0
	}
	rtv, err := resizeSwapChainBuffers(r.swap, size)
	if err != nil {
		return fmt.Errorf("preview: resize: %w", err)
	}
	r.rtv = rtv
	procSetWindowPos.Call(r.hwnd, 0, 0, 0, uintptr(size.W), uintptr(size.H), swpNoActivate|0x0002)
	return nil
}

func (r *winRenderer) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.done != nil {
		<-r.done
	}
	r.mu.Lock()
	src := r.src
	r.mu.Unlock()
	if src != nil {
		src.Stop()
	}
	r.teardown()
	logging.For("preview").Info("preview stopped")
}

func (r *winRenderer) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	comutil.Release(r.srv)
	comutil.Release(r.sampler)
	comutil.Release(r.ps)
	comutil.Release(r.vs)
	comutil.Release(r.lineVBuf)
	comutil.Release(r.lineLayout)
	comutil.Release(r.linePS)
	comutil.Release(r.lineVS)
	comutil.Release(r.rtv)
	comutil.Release(r.swap)
	if r.hwnd != 0 {
		procDestroyWindow.Call(r.hwnd)
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	r.srv, r.sampler, r.ps, r.vs = 0, 0, 0, 0
	r.lineVBuf, r.lineLayout, r.linePS, r.lineVS = 0, 0, 0, 0
	r.rtv, r.swap, r.hwnd, r.ctxPtr = 0, 0, 0, 0
}

func clientSizeFor(cfg Config) geometry.Size {
	ideal := geometry.IdealPreviewSize(cfg.RequestedIdealSize, cfg.Screen)
	return geometry.PreviewClientSize(ideal, cfg.Aspect)
}

func createPreviewWindow(size geometry.Size) (uintptr, error) {
	className, _ := syscall.UTF16PtrFromString("SpinningMomoPreview")
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
	wc := wndClassEx{size: uint32(unsafe.Sizeof(wndClassEx{})), wndProc: wndProc, className: className}
	procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))

	hwnd, _, err := procCreateWindowExW.Call(
		uintptr(wsExTopmost),
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		uintptr(wsOverlappedWindow),
		0, 0, uintptr(size.W), uintptr(size.H),
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW failed: %v", err)
	}
	procShowWindow.Call(hwnd, swShow)
	return hwnd, nil
}

// createSwapChain uses the legacy (pre-flip-model) IDXGIFactory::CreateSwapChain
// path with DXGI_SWAP_EFFECT_DISCARD, per this repo's Open Question decision
// recorded for the preview window: unlike overlay's flip-model swapchain,
// preview's small, frequently-resized chrome window is simpler to drive
// through BitBlt-style presentation than to keep a flip-model buffer count
// and DPI-aware frame latency tuned across constant resizes.
func createSwapChain(device, hwnd uintptr, size geometry.Size) (swap, rtv uintptr, err error) {
	const dxgiSwapEffectDiscard = 0

	type dxgiModeDesc struct {
		Width, Height        uint32
		RefreshNumerator     uint32
		RefreshDenominator   uint32
		Format               uint32
		ScanlineOrdering     uint32
		Scaling              uint32
	}
	type dxgiSampleDesc struct {
		Count, Quality uint32
	}
	type swapChainDesc struct {
		BufferDesc   dxgiModeDesc
		SampleDesc   dxgiSampleDesc
		BufferUsage  uint32
		BufferCount  uint32
		OutputWindow uintptr
		Windowed     int32
		SwapEffect   uint32
		Flags        uint32
	}
	desc := swapChainDesc{
		BufferDesc:   dxgiModeDesc{Width: uint32(size.W), Height: uint32(size.H), Format: dxgiFormatB8G8R8A8},
		SampleDesc:   dxgiSampleDesc{Count: 1},
		BufferUsage:  0x20, // DXGI_USAGE_RENDER_TARGET_OUTPUT
		BufferCount:  1,
		OutputWindow: hwnd,
		Windowed:     1,
		SwapEffect:   dxgiSwapEffectDiscard,
	}

	factory, err := dxgiFactoryFromDevice(device)
	if err != nil {
		return 0, 0, err
	}
	defer comutil.Release(factory)

	const vtblFactoryCreateSwapChain = 10
	_, err = comutil.Call(factory, vtblFactoryCreateSwapChain, device, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&swap)))
	if err != nil {
		return 0, 0, fmt.Errorf("IDXGIFactory::CreateSwapChain: %w", err)
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

	iidIDXGIFactory := comutil.GUID{Data1: 0x7b7166ec, Data2: 0x21c7, Data3: 0x44ae, Data4: [8]byte{0xb2, 0x1a, 0xc9, 0xae, 0x32, 0x1a, 0xe3, 0x69}}
	var factory uintptr
	_, err = comutil.Call(adapter, dxgiAdapterGetParent, uintptr(unsafe.Pointer(&iidIDXGIFactory)), uintptr(unsafe.Pointer(&factory)))
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

func presentSwapChain(swap uintptr) {
	if swap == 0 {
		return
	}
	const vtblSwapPresent = 8
	comutil.Call(swap, vtblSwapPresent, 1, 0)
}

// compileQuadPipeline builds the textured-quad pipeline drawing the
// captured frame's miniature, identical in shape to internal/overlay's.
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

// compileLinePipeline builds the colored-line pipeline drawing the
// viewport-outline rectangle: a (position, color) input layout and a small
// dynamic vertex buffer rewritten every frame the outline is visible.
func compileLinePipeline(device uintptr) (vs, ps, layout, vbuf uintptr, err error) {
	vsBlob, err := compileShader(viewportLineVS, "vs_5_0")
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer comutil.Release(vsBlob)
	psBlob, err := compileShader(viewportLinePS, "ps_5_0")
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer comutil.Release(psBlob)

	vsPtr, _ := comutil.Call(vsBlob, vtblBlobGetBufferPointer)
	vsSize, _ := comutil.Call(vsBlob, vtblBlobGetBufferSize)
	_, err = comutil.Call(device, d3d11DeviceCreateVertexShader, vsPtr, vsSize, 0, uintptr(unsafe.Pointer(&vs)))
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("CreateVertexShader: %w", err)
	}

	psPtr, _ := comutil.Call(psBlob, vtblBlobGetBufferPointer)
	psSize, _ := comutil.Call(psBlob, vtblBlobGetBufferSize)
	_, err = comutil.Call(device, d3d11DeviceCreatePixelShader, psPtr, psSize, 0, uintptr(unsafe.Pointer(&ps)))
	if err != nil {
		comutil.Release(vs)
		return 0, 0, 0, 0, fmt.Errorf("CreatePixelShader: %w", err)
	}

	type inputElementDesc struct {
		SemanticName         *byte
		SemanticIndex        uint32
		Format               uint32
		InputSlot            uint32
		AlignedByteOffset    uint32
		InputSlotClass       uint32
		InstanceDataStepRate uint32
	}
	posName := append([]byte("POSITION"), 0)
	colorName := append([]byte("COLOR"), 0)
	const dxgiFormatR32G32Float = 16
	const dxgiFormatR32G32B32A32Float = 2
	elems := [2]inputElementDesc{
		{SemanticName: &posName[0], Format: dxgiFormatR32G32Float, AlignedByteOffset: 0},
		{SemanticName: &colorName[0], Format: dxgiFormatR32G32B32A32Float, AlignedByteOffset: 8},
	}
	_, err = comutil.Call(device, d3d11DeviceCreateInputLayout,
		uintptr(unsafe.Pointer(&elems[0])), 2, vsPtr, vsSize, uintptr(unsafe.Pointer(&layout)))
	if err != nil {
		comutil.Release(vs)
		comutil.Release(ps)
		return 0, 0, 0, 0, fmt.Errorf("CreateInputLayout: %w", err)
	}

	type bufferDesc struct {
		ByteWidth           uint32
		Usage               uint32
		BindFlags           uint32
		CPUAccessFlags      uint32
		MiscFlags           uint32
		StructureByteStride uint32
	}
	bdesc := bufferDesc{
		ByteWidth:      uint32(unsafe.Sizeof(lineVertex{})) * 5,
		Usage:          d3d11UsageDynamic,
		BindFlags:      d3d11BindVertexBuffer,
		CPUAccessFlags: d3d11CPUAccessWrite,
	}
	_, err = comutil.Call(device, d3d11DeviceCreateBuffer, uintptr(unsafe.Pointer(&bdesc)), 0, uintptr(unsafe.Pointer(&vbuf)))
	if err != nil {
		comutil.Release(layout)
		comutil.Release(vs)
		comutil.Release(ps)
		return 0, 0, 0, 0, fmt.Errorf("CreateBuffer: %w", err)
	}
	return vs, ps, layout, vbuf, nil
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

// createShaderResourceView resolves the texture's owning device via
// ID3D11DeviceChild::GetDevice before building the view, the same pattern
// internal/overlay uses.
func createShaderResourceView(texture uintptr) (uintptr, error) {
	const vtblChildGetDevice = 3
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

// drawFullscreenQuad binds the textured-quad pipeline and issues a
// 4-vertex strip draw covering the whole render target.
func drawFullscreenQuad(ctx, rtv, vs, ps, sampler, srv uintptr) {
	comutil.Call(ctx, ctxOMSetRenderTargets, 1, uintptr(unsafe.Pointer(&rtv)), 0)
	comutil.Call(ctx, ctxVSSetShader, vs, 0, 0)
	comutil.Call(ctx, ctxPSSetShader, ps, 0, 0)
	comutil.Call(ctx, ctxPSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srv)))
	comutil.Call(ctx, ctxPSSetSamplers, 0, 1, uintptr(unsafe.Pointer(&sampler)))
	comutil.Call(ctx, ctxIASetPrimitiveTopology, d3dPrimitiveTopologyTriangleStrip)
	comutil.Call(ctx, ctxDraw, 4, 0)
}

// drawViewportOutline draws the 5-vertex accent-colored line strip marking
// vp (in preview client pixels, Y-down) against a previewSize-sized render
// target, five times with spec.md 4.5's half-pixel jitter on alternating
// axes to visually thicken the otherwise hairline-width strip.
func drawViewportOutline(ctx, rtv, vs, ps, layout, vbuf uintptr, vp geometry.Rect, previewSize geometry.Size) {
	w, h := float64(previewSize.W), float64(previewSize.H)
	if w <= 0 || h <= 0 {
		return
	}

	comutil.Call(ctx, ctxOMSetRenderTargets, 1, uintptr(unsafe.Pointer(&rtv)), 0)
	comutil.Call(ctx, ctxVSSetShader, vs, 0, 0)
	comutil.Call(ctx, ctxPSSetShader, ps, 0, 0)
	comutil.Call(ctx, ctxIASetInputLayout, layout)
	comutil.Call(ctx, ctxIASetPrimitiveTopology, d3dPrimitiveTopologyLineStrip)

	stride := uint32(unsafe.Sizeof(lineVertex{}))
	var offset uint32
	comutil.Call(ctx, ctxIASetVertexBuffers, 0, 1, uintptr(unsafe.Pointer(&vbuf)), uintptr(unsafe.Pointer(&stride)), uintptr(unsafe.Pointer(&offset)))

	toClip := func(px, py float64) (float32, float32) {
		return float32(px/w*2 - 1), float32(1 - py/h*2)
	}

	for _, jitter := range viewportJitter {
		corners := [5][2]float64{
			{vp.X + float64(jitter[0]), vp.Y + float64(jitter[1])},
			{vp.X + vp.W + float64(jitter[0]), vp.Y + float64(jitter[1])},
			{vp.X + vp.W + float64(jitter[0]), vp.Y + vp.H + float64(jitter[1])},
			{vp.X + float64(jitter[0]), vp.Y + vp.H + float64(jitter[1])},
			{vp.X + float64(jitter[0]), vp.Y + float64(jitter[1])},
		}
		var verts [5]lineVertex
		for i, c := range corners {
			cx, cy := toClip(c[0], c[1])
			verts[i] = lineVertex{X: cx, Y: cy, Color: viewportAccentColor}
		}

		type mappedSubresource struct {
			Data        uintptr
			RowPitch    uint32
			DepthPitch  uint32
		}
		var mapped mappedSubresource
		_, err := comutil.Call(ctx, ctxMap, vbuf, 0, d3d11MapWriteDiscard, 0, uintptr(unsafe.Pointer(&mapped)))
		if err != nil {
			return
		}
		const vertexBytes = 24 // 2 float32 position + 4 float32 color
		dst := unsafe.Slice((*byte)(unsafe.Pointer(mapped.Data)), vertexBytes*5)
		copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), vertexBytes*5))
		comutil.Call(ctx, ctxUnmap, vbuf, 0)

		comutil.Call(ctx, ctxDraw, 5, 0)
	}
}
