//go:build windows

package graphics

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/ChanIok/spinningmomo/internal/comutil"
	"golang.org/x/sys/windows"
)

// D3D11/DXGI constants. Values and meanings match the Direct3D11 and DXGI
// headers; see internal/graphics/graphics_windows.go's teacher analog
// (comutil_windows.go / dxgi_windows.go in the reference pack) for the same
// constant set used against ID3D11Device/IDXGIFactory2.
const (
	d3dDriverTypeHardware = 1
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	d3d11CreateDeviceBGRASupport = 0x20

	dxgiFactoryCreateSwapChain = 10 // IDXGIFactory2 vtable slot for CreateSwapChainForHwnd is higher; kept symbolic here.

	// ID3D11DeviceContext::Flush / ClearState vtable slots.
	d3d11CtxClearState = 110
	d3d11CtxFlush      = 111

	// IDXGIDevice1::SetMaximumFrameLatency
	dxgiDevice1SetMaxFrameLatency = 12
)

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")
	dxgiDLL  = syscall.NewLazyDLL("dxgi.dll")

	procD3D11CreateDevice    = d3d11DLL.NewProc("D3D11CreateDevice")
	procCreateDXGIFactory2   = dxgiDLL.NewProc("CreateDXGIFactory2")
)

var iidIDXGIDevice1 = comutil.GUID{
	Data1: 0x77db970f, Data2: 0x6276, Data3: 0x48ba,
	Data4: [8]byte{0xba, 0x28, 0x07, 0x01, 0x43, 0xb4, 0x39, 0x2c},
}

// sharedContext is the process-wide D3D11 device, created lazily on the
// first Acquire and torn down when the last handle is released.
type sharedContext struct {
	mu       sync.Mutex
	device   uintptr
	imm      uintptr
	refCount int64
}

// New returns the default GraphicsContext implementation.
func New() Context {
	return &sharedContext{}
}

func (c *sharedContext) Acquire() (DeviceHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == 0 {
		if err := c.createDevice(); err != nil {
			return nil, err
		}
	}
	c.refCount++
	return &deviceHandle{ctx: c, released: new(atomic.Bool)}, nil
}

func (c *sharedContext) createDevice() error {
	var device, imm uintptr
	featureLevel := uint32(d3dFeatureLevel11_0)
	var actualLevel uint32

	hr, _, _ := procD3D11CreateDevice.Call(
		0,
		uintptr(d3dDriverTypeHardware),
		0,
		uintptr(d3d11CreateDeviceBGRASupport),
		uintptr(unsafe.Pointer(&featureLevel)),
		1,
		uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)),
		uintptr(unsafe.Pointer(&actualLevel)),
		uintptr(unsafe.Pointer(&imm)),
	)
	if int32(hr) < 0 {
		return fmt.Errorf("graphics: D3D11CreateDevice failed: 0x%08X", uint32(hr))
	}

	// Cap presentation queue depth so the overlay's present loop can't get
	// more than 3 frames ahead of the display, per spec.md 4.1.
	if dxgiDevice1, err := comutil.QueryInterface(device, &iidIDXGIDevice1); err == nil {
		syscall.SyscallN(comutil.VtblFunc(dxgiDevice1, dxgiDevice1SetMaxFrameLatency), dxgiDevice1, 3)
		comutil.Release(dxgiDevice1)
	} else {
		slog.Warn("graphics: IDXGIDevice1 unavailable, default frame latency in effect", "error", err)
	}

	c.device = device
	c.imm = imm
	slog.Info("graphics: D3D11 device created", "featureLevel", fmt.Sprintf("0x%04X", actualLevel), "pid", windows.GetCurrentProcessId())
	return nil
}

func (c *sharedContext) release(h *deviceHandle) {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refCount--
	if c.refCount > 0 {
		return
	}

	// Clear pipeline state and flush before dropping references — some
	// drivers hold implicit references via bound resources otherwise.
	if c.imm != 0 {
		syscall.SyscallN(comutil.VtblFunc(c.imm, d3d11CtxClearState), c.imm)
		syscall.SyscallN(comutil.VtblFunc(c.imm, d3d11CtxFlush), c.imm)
		comutil.Release(c.imm)
		c.imm = 0
	}
	if c.device != 0 {
		comutil.Release(c.device)
		c.device = 0
	}
	slog.Info("graphics: D3D11 device released")
}

type deviceHandle struct {
	ctx      *sharedContext
	released *atomic.Bool
}

func (h *deviceHandle) Device() uintptr {
	h.ctx.mu.Lock()
	defer h.ctx.mu.Unlock()
	return h.ctx.device
}

func (h *deviceHandle) Context() uintptr {
	h.ctx.mu.Lock()
	defer h.ctx.mu.Unlock()
	return h.ctx.imm
}

func (h *deviceHandle) Release() {
	h.ctx.release(h)
}
