package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/config"
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/letterbox"
	"github.com/ChanIok/spinningmomo/internal/logging"
	"github.com/ChanIok/spinningmomo/internal/notify"
	"github.com/ChanIok/spinningmomo/internal/overlay"
	"github.com/ChanIok/spinningmomo/internal/preview"
	"github.com/ChanIok/spinningmomo/internal/screenshot"
	"github.com/ChanIok/spinningmomo/internal/target"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

// Hub is the CoordinationHub component.
type Hub struct {
	ctl  windowctl.Controller
	cfg  config.Provider
	sink notify.Sink

	overlay    overlay.Renderer
	preview    preview.Renderer
	letterbox  letterbox.Renderer
	screenshot screenshot.Encoder
	src        capture.FrameSource

	mu        sync.Mutex
	win       *target.Window
	consumers ConsumerSet

	currentRatio       float64
	currentPixelBudget uint64

	overlayCancel context.CancelFunc
	previewCancel context.CancelFunc
}

// New wires a Hub from its platform components. sink may be notify.Discard{}
// when the caller does not want notifications.
func New(gfx graphics.Context, ctl windowctl.Controller, cfg config.Provider, sink notify.Sink) *Hub {
	return newWithComponents(ctl, cfg, sink,
		overlay.New(gfx, ctl), preview.New(gfx, ctl), letterbox.New(), screenshot.New(gfx), capture.New(gfx))
}

// newWithComponents wires a Hub directly from its component interfaces,
// bypassing the concrete constructors New uses — the seam tests substitute
// fakes through.
func newWithComponents(
	ctl windowctl.Controller, cfg config.Provider, sink notify.Sink,
	ov overlay.Renderer, pv preview.Renderer, lb letterbox.Renderer, sc screenshot.Encoder, src capture.FrameSource,
) *Hub {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Hub{
		ctl:        ctl,
		cfg:        cfg,
		sink:       sink,
		overlay:    ov,
		preview:    pv,
		letterbox:  lb,
		screenshot: sc,
		src:        src,
	}
}

// Consumers reports a snapshot of the current ConsumerSet, for UI state
// sync.
func (h *Hub) Consumers() ConsumerSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consumers
}

// SelectWindow resolves title via WindowControl and makes it the hub's
// target, stopping any consumers running against the previous target.
// Per spec.md section 2, this is the first of the eight external commands;
// section 4.8 gives literal semantics for the other seven, so the stop-old
// / adopt-new / leave-all-off behavior here is this port's own (documented)
// reading of "no consumer can legitimately keep running against a window
// nobody selected anymore."
func (h *Hub) SelectWindow(title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle, err := h.ctl.FindTargetWindow(title)
	if err != nil {
		return fmt.Errorf("hub: find window: %w", err)
	}
	if !handle.Valid() {
		h.sink.Notify("", notify.WindowNotFound, notify.Error)
		return nil
	}

	h.stopAllLocked()
	h.win = target.New(handle)
	h.consumers = ConsumerSet{}
	return nil
}

// ApplyRatio implements spec.md 4.8's ApplyRatio(idx): stop active
// overlay/preview, recompute TargetGeometry with the new ratio and the last
// resolution selection, resize, then restart whatever was active.
func (h *Hub) ApplyRatio(idx int) error {
	snap := h.cfg.Snapshot()
	if idx < 0 || idx >= len(snap.AspectRatios) {
		return ErrIndexOutOfRange
	}
	h.mu.Lock()
	h.currentRatio = snap.AspectRatios[idx].Ratio
	h.mu.Unlock()
	return h.applyGeometry(snap)
}

// ApplyResolution implements spec.md 4.8's ApplyResolution(idx), symmetric
// to ApplyRatio: (0,0) in the preset means "derive from screen" per the
// configuration surface's contract (spec.md section 6).
func (h *Hub) ApplyResolution(idx int) error {
	snap := h.cfg.Snapshot()
	if idx < 0 || idx >= len(snap.Resolutions) {
		return ErrIndexOutOfRange
	}
	r := snap.Resolutions[idx]
	h.mu.Lock()
	h.currentPixelBudget = uint64(r.Width) * uint64(r.Height)
	h.mu.Unlock()
	return h.applyGeometry(snap)
}

func (h *Hub) applyGeometry(snap config.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.win == nil {
		return ErrNoTargetWindow
	}

	screen, err := h.ctl.ScreenSize()
	if err != nil {
		h.sink.Notify("", notify.AdjustFailed, notify.Error)
		return fmt.Errorf("hub: screen size: %w", err)
	}

	wasActive := h.consumers
	h.stopOverlayLocked()
	h.stopPreviewLocked()

	res := geometry.ComputeTargetGeometry(h.currentRatio, h.currentPixelBudget, screen)
	size := geometry.Size{W: int(res.Width), H: int(res.Height)}

	if err := h.ctl.Resize(h.win, size, snap.TaskbarLowerOnResize); err != nil {
		h.sink.Notify("", notify.AdjustFailed, notify.Error)
		return fmt.Errorf("hub: resize: %w", err)
	}

	if wasActive.Overlay {
		if err := h.startOverlayLocked(screen); err != nil {
			logging.For("hub").Error("failed to restart overlay after geometry change", "error", err)
		}
	} else if wasActive.Preview {
		if err := h.startPreviewLocked(screen); err != nil {
			logging.For("hub").Error("failed to restart preview after geometry change", "error", err)
		}
	}
	h.reconcileLetterboxLocked(screen)
	return nil
}

// TogglePreview implements spec.md 4.8's TogglePreview: if preview was off
// and overlay was on, overlay is forced off first with a FEATURE_CONFLICT
// notification; then preview is toggled.
func (h *Hub) TogglePreview() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.win == nil {
		return ErrNoTargetWindow
	}
	screen, err := h.ctl.ScreenSize()
	if err != nil {
		return fmt.Errorf("hub: screen size: %w", err)
	}

	turningOn := !h.consumers.Preview
	if turningOn && h.consumers.Overlay {
		h.stopOverlayLocked()
		h.sink.Notify("", notify.FeatureConflict, notify.Info)
	}

	if turningOn {
		if err := h.startPreviewLocked(screen); err != nil {
			return err
		}
	} else {
		h.stopPreviewLocked()
	}
	h.reconcileLetterboxLocked(screen)
	return nil
}

// ToggleOverlay is TogglePreview's mirror image.
func (h *Hub) ToggleOverlay() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.win == nil {
		return ErrNoTargetWindow
	}
	screen, err := h.ctl.ScreenSize()
	if err != nil {
		return fmt.Errorf("hub: screen size: %w", err)
	}

	turningOn := !h.consumers.Overlay
	if turningOn && h.consumers.Preview {
		h.stopPreviewLocked()
		h.sink.Notify("", notify.FeatureConflict, notify.Info)
	}

	if turningOn {
		if err := h.startOverlayLocked(screen); err != nil {
			return err
		}
	} else {
		h.stopOverlayLocked()
	}
	h.reconcileLetterboxLocked(screen)
	return nil
}

// ToggleLetterbox implements spec.md 4.8's ToggleLetterbox: flip the flag,
// persist it, tear the window down if toggling off, and restart the
// overlay capture if it's currently running so it picks up the flag.
func (h *Hub) ToggleLetterbox() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.consumers.Letterbox = !h.consumers.Letterbox
	if err := h.cfg.SetLetterboxEnabled(h.consumers.Letterbox); err != nil {
		logging.For("hub").Error("failed to persist letterbox flag", "error", err)
	}

	if h.win == nil {
		return nil
	}
	screen, err := h.ctl.ScreenSize()
	if err != nil {
		return fmt.Errorf("hub: screen size: %w", err)
	}

	h.reconcileLetterboxLocked(screen)
	if h.consumers.Overlay {
		h.stopOverlayLocked()
		if err := h.startOverlayLocked(screen); err != nil {
			logging.For("hub").Error("failed to restart overlay after letterbox toggle", "error", err)
		}
	}
	return nil
}

// ResetWindow implements spec.md 4.8's ResetWindow: stop all consumers,
// reset via WindowControl, notify, then restart whatever was active.
func (h *Hub) ResetWindow() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.win == nil {
		return ErrNoTargetWindow
	}

	wasActive := h.consumers
	h.stopAllLocked()

	if err := h.ctl.Reset(h.win); err != nil {
		h.sink.Notify("", notify.ResetFailed, notify.Error)
		return fmt.Errorf("hub: reset: %w", err)
	}
	h.sink.Notify("", notify.ResetSuccess, notify.Info)

	screen, err := h.ctl.ScreenSize()
	if err != nil {
		return fmt.Errorf("hub: screen size: %w", err)
	}
	h.consumers.Letterbox = wasActive.Letterbox
	if wasActive.Overlay {
		if err := h.startOverlayLocked(screen); err != nil {
			logging.For("hub").Error("failed to restart overlay after reset", "error", err)
		}
	} else if wasActive.Preview {
		if err := h.startPreviewLocked(screen); err != nil {
			logging.For("hub").Error("failed to restart preview after reset", "error", err)
		}
	}
	h.reconcileLetterboxLocked(screen)
	return nil
}

// CaptureScreenshot implements spec.md 4.8's CaptureScreenshot: one-shot,
// never touches ConsumerSet. The WINDOW_MINIMIZED case the source reports
// is surfaced here as WINDOW_NOT_FOUND per spec.md's scenario E6.
func (h *Hub) CaptureScreenshot(ctx context.Context, cfg screenshot.Config, cb func(screenshot.Outcome)) {
	h.mu.Lock()
	win := h.win
	h.mu.Unlock()

	if win == nil {
		h.sink.Notify("", notify.WindowNotFound, notify.Error)
		cb(screenshot.Outcome{Err: ErrNoTargetWindow})
		return
	}

	h.screenshot.Capture(ctx, win, cfg, func(o screenshot.Outcome) {
		switch {
		case o.Success:
			h.sink.Notify("", fmt.Sprintf(notify.CaptureSuccessFormat, o.Path), notify.Info)
		case errors.Is(o.Err, screenshot.ErrWindowMinimized):
			h.sink.Notify("", notify.WindowNotFound, notify.Error)
		case errors.Is(o.Err, screenshot.ErrUnsupportedPlatform):
			h.sink.Notify("", notify.FeatureNotSupported, notify.Error)
		default:
			h.sink.Notify("", notify.AdjustFailed, notify.Error)
		}
		cb(o)
	})
}

func (h *Hub) startOverlayLocked(screen geometry.Size) error {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := overlay.Config{LogicalSize: h.win.Size(), Screen: screen}
	if err := h.overlay.Start(ctx, h.win, h.src, cfg); err != nil {
		cancel()
		h.sink.Notify("", notify.FeatureNotSupported, notify.Error)
		h.consumers.Overlay = false
		return fmt.Errorf("hub: start overlay: %w", err)
	}
	h.overlayCancel = cancel
	h.consumers.Overlay = true
	return nil
}

func (h *Hub) stopOverlayLocked() {
	if !h.consumers.Overlay {
		return
	}
	h.overlay.Stop()
	if h.overlayCancel != nil {
		h.overlayCancel()
		h.overlayCancel = nil
	}
	h.consumers.Overlay = false
}

func (h *Hub) startPreviewLocked(screen geometry.Size) error {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := preview.Config{RequestedIdealSize: float64(screen.H) / 2, Aspect: h.currentRatio, Screen: screen}
	if err := h.preview.Start(ctx, h.win, h.src, cfg); err != nil {
		cancel()
		h.sink.Notify("", notify.FeatureNotSupported, notify.Error)
		h.consumers.Preview = false
		return fmt.Errorf("hub: start preview: %w", err)
	}
	h.previewCancel = cancel
	h.consumers.Preview = true
	return nil
}

func (h *Hub) stopPreviewLocked() {
	if !h.consumers.Preview {
		return
	}
	h.preview.Stop()
	if h.previewCancel != nil {
		h.previewCancel()
		h.previewCancel = nil
	}
	h.consumers.Preview = false
}

func (h *Hub) stopAllLocked() {
	h.stopOverlayLocked()
	h.stopPreviewLocked()
	if h.letterbox.Running() {
		h.letterbox.Stop()
	}
}

// reconcileLetterboxLocked implements spec.md section 3's subsumption
// invariant: the letterbox window is only ever running while the feature
// is enabled, overlay is not active, and the target actually overflows the
// screen in exactly one axis (letterbox.ShouldShow); that last check
// happens inside the renderer itself so it keeps tracking window moves
// after this call returns.
func (h *Hub) reconcileLetterboxLocked(screen geometry.Size) {
	shouldRun := h.consumers.Letterbox && !h.consumers.Overlay && h.win != nil
	running := h.letterbox.Running()
	switch {
	case shouldRun && !running:
		if err := h.letterbox.Start(h.win, letterbox.Config{Screen: screen}); err != nil {
			logging.For("hub").Error("failed to start letterbox", "error", err)
		}
	case !shouldRun && running:
		h.letterbox.Stop()
	case shouldRun && running:
		if err := h.letterbox.Resize(letterbox.Config{Screen: screen}); err != nil {
			logging.For("hub").Error("failed to resize letterbox", "error", err)
		}
	}
}
