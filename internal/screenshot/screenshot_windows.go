//go:build windows

package screenshot

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"syscall"
	"time"
	"unsafe"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/comutil"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/logging"
	"github.com/ChanIok/spinningmomo/internal/target"
)

var (
	user32       = syscall.NewLazyDLL("user32.dll")
	procIsIconic = user32.NewProc("IsIconic")
)

const (
	dxgiFormatB8G8R8A8 = 87

	d3d11UsageStaging  = 3
	d3d11CPUAccessRead = 0x20000
	d3d11MapRead       = 1

	d3d11DeviceCreateTexture2D = 5
	ctxMap                     = 14
	ctxUnmap                   = 15
	ctxCopyResource            = 47
)

type dxgiSampleDesc struct{ Count, Quality uint32 }

type texture2DDesc struct {
	Width, Height  uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     dxgiSampleDesc
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type mappedSubresource struct {
	pData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

// winEncoder implements Encoder. newSource is a seam for tests.
type winEncoder struct {
	gfx       graphics.Context
	newSource func(graphics.Context) capture.FrameSource
}

// New returns the default Encoder implementation.
func New(gfx graphics.Context) Encoder {
	return &winEncoder{gfx: gfx, newSource: capture.New}
}

func (e *winEncoder) Capture(ctx context.Context, win *target.Window, cfg Config, cb func(Outcome)) {
	go e.capture(ctx, win, cfg, cb)
}

func (e *winEncoder) capture(ctx context.Context, win *target.Window, cfg Config, cb func(Outcome)) {
	minimized, _, _ := procIsIconic.Call(uintptr(win.Handle()))
	if minimized != 0 {
		cb(Outcome{Err: ErrWindowMinimized})
		return
	}

	handle, err := e.gfx.Acquire()
	if err != nil {
		cb(Outcome{Err: fmt.Errorf("screenshot: acquire device: %w", err)})
		return
	}
	defer handle.Release()

	src := e.newSource(e.gfx)
	frameCh := make(chan capture.CapturedFrame, 1)
	captureCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, err = src.Start(captureCtx, win, capture.CaptureConfig{IncludeCursor: false, YieldOnMinimize: true}, func(f capture.CapturedFrame) {
		select {
		case frameCh <- f:
		default:
			f.Release()
		}
	})
	if err != nil {
		cb(Outcome{Err: fmt.Errorf("screenshot: start capture: %w", err)})
		return
	}

	var frame capture.CapturedFrame
	select {
	case frame = <-frameCh:
	case <-ctx.Done():
		src.Stop()
		cb(Outcome{Err: ctx.Err()})
		return
	}

	img, err := readBack(handle.Device(), handle.Context(), frame)
	frame.Release()
	src.Stop()
	if err != nil {
		cb(Outcome{Err: fmt.Errorf("screenshot: readback: %w", err)})
		return
	}

	path, err := encodeToFile(img, cfg)
	if err != nil {
		cb(Outcome{Err: fmt.Errorf("screenshot: encode: %w", err)})
		return
	}

	logging.For("screenshot").Info("screenshot captured", "path", path)
	cb(Outcome{Success: true, Path: path})
}

// readBack copies the captured texture into a CPU-readable STAGING
// texture, maps it, and converts the BGRA8 rows into an *image.NRGBA.
func readBack(device, ctx uintptr, frame capture.CapturedFrame) (*image.NRGBA, error) {
	desc := texture2DDesc{
		Width: uint32(frame.Size.W), Height: uint32(frame.Size.H),
		MipLevels: 1, ArraySize: 1, Format: dxgiFormatB8G8R8A8,
		SampleDesc: dxgiSampleDesc{Count: 1},
		Usage:      d3d11UsageStaging, CPUAccessFlags: d3d11CPUAccessRead,
	}
	var staging uintptr
	_, err := comutil.Call(device, d3d11DeviceCreateTexture2D, uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&staging)))
	if err != nil {
		return nil, fmt.Errorf("CreateTexture2D: %w", err)
	}
	defer comutil.Release(staging)

	_, err = comutil.Call(ctx, ctxCopyResource, staging, frame.Texture)
	if err != nil {
		return nil, fmt.Errorf("CopyResource: %w", err)
	}

	var mapped mappedSubresource
	_, err = comutil.Call(ctx, ctxMap, staging, 0, d3d11MapRead, 0, uintptr(unsafe.Pointer(&mapped)))
	if err != nil {
		return nil, fmt.Errorf("Map: %w", err)
	}
	defer comutil.Call(ctx, ctxUnmap, staging, 0)

	img := image.NewNRGBA(image.Rect(0, 0, frame.Size.W, frame.Size.H))
	srcRow := mapped.pData
	for y := 0; y < frame.Size.H; y++ {
		row := unsafe.Slice((*byte)(unsafe.Pointer(srcRow)), frame.Size.W*4)
		dstOff := y * img.Stride
		for x := 0; x < frame.Size.W; x++ {
			b, g, r, a := row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			img.Pix[dstOff+x*4+0] = r
			img.Pix[dstOff+x*4+1] = g
			img.Pix[dstOff+x*4+2] = b
			img.Pix[dstOff+x*4+3] = a
		}
		srcRow += uintptr(mapped.RowPitch)
	}
	return img, nil
}

// filenameFor builds the YYYYMMDD_HHMMSS_mmm.{png,jpg} name spec.md 4.7
// specifies, given the moment the frame was encoded.
func filenameFor(t time.Time, format Format) string {
	ext := ".png"
	if format == JPEG {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s_%03d%s", t.Format("20060102_150405"), t.Nanosecond()/1_000_000, ext)
}

func encodeToFile(img image.Image, cfg Config) (string, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", cfg.OutputDir, err)
	}

	path := filepath.Join(cfg.OutputDir, filenameFor(time.Now(), cfg.Format))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch cfg.Format {
	case JPEG:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
