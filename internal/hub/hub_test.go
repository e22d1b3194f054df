package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChanIok/spinningmomo/internal/capture"
	"github.com/ChanIok/spinningmomo/internal/config"
	"github.com/ChanIok/spinningmomo/internal/geometry"
	"github.com/ChanIok/spinningmomo/internal/letterbox"
	"github.com/ChanIok/spinningmomo/internal/notify"
	"github.com/ChanIok/spinningmomo/internal/overlay"
	"github.com/ChanIok/spinningmomo/internal/preview"
	"github.com/ChanIok/spinningmomo/internal/screenshot"
	"github.com/ChanIok/spinningmomo/internal/target"
)

// --- fakes ---

type fakeController struct {
	handle target.Handle
	screen geometry.Size

	resizeErr, resetErr error
	resizes             int
	resets              int
}

func (f *fakeController) FindTargetWindow(title string) (target.Handle, error) { return f.handle, nil }
func (f *fakeController) Resize(w *target.Window, size geometry.Size, lowerTaskbar bool) error {
	f.resizes++
	if f.resizeErr != nil {
		return f.resizeErr
	}
	w.SetCached(geometry.Rect{W: float64(size.W), H: float64(size.H)}, size)
	return nil
}
func (f *fakeController) Reset(w *target.Window) error {
	f.resets++
	return f.resetErr
}
func (f *fakeController) ToggleBorderless(w *target.Window) error  { return nil }
func (f *fakeController) ScreenSize() (geometry.Size, error)       { return f.screen, nil }

type fakeOverlay struct {
	running  bool
	startErr error
	starts   int
}

func (f *fakeOverlay) Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg overlay.Config) error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}
func (f *fakeOverlay) Resize(cfg overlay.Config) error { return nil }
func (f *fakeOverlay) Stop()                           { f.running = false }
func (f *fakeOverlay) State() overlay.State {
	if f.running {
		return overlay.Running
	}
	return overlay.Stopped
}

type fakePreview struct {
	running  bool
	startErr error
	starts   int
}

func (f *fakePreview) Start(ctx context.Context, win *target.Window, src capture.FrameSource, cfg preview.Config) error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}
func (f *fakePreview) Resize(cfg preview.Config) error { return nil }
func (f *fakePreview) Stop()                           { f.running = false }
func (f *fakePreview) Running() bool                   { return f.running }

type fakeLetterbox struct {
	running bool
	starts  int
	stops   int
}

func (f *fakeLetterbox) Start(win *target.Window, cfg letterbox.Config) error {
	f.starts++
	f.running = true
	return nil
}
func (f *fakeLetterbox) Resize(cfg letterbox.Config) error { return nil }
func (f *fakeLetterbox) Stop()                             { f.stops++; f.running = false }
func (f *fakeLetterbox) Running() bool                     { return f.running }

type fakeScreenshot struct {
	outcome screenshot.Outcome
}

func (f *fakeScreenshot) Capture(ctx context.Context, win *target.Window, cfg screenshot.Config, cb func(screenshot.Outcome)) {
	cb(f.outcome)
}

type fakeSource struct{}

func (fakeSource) Start(ctx context.Context, w *target.Window, cfg capture.CaptureConfig, onFrame func(capture.CapturedFrame)) (capture.CaptureSession, error) {
	return capture.CaptureSession{}, nil
}
func (fakeSource) ResizeIfChanged(newSize geometry.Size) error { return nil }
func (fakeSource) Stop()                                       {}

type fakeConfig struct {
	snap             config.Snapshot
	letterboxEnabled bool
}

func (f *fakeConfig) Snapshot() config.Snapshot { return f.snap }
func (f *fakeConfig) SetLetterboxEnabled(enabled bool) error {
	f.letterboxEnabled = enabled
	return nil
}

type fakeSink struct {
	notifications []string
}

func (f *fakeSink) Notify(title, message string, kind notify.Kind) {
	f.notifications = append(f.notifications, message)
}

// --- harness ---

type harness struct {
	hub       *Hub
	ctl       *fakeController
	ov        *fakeOverlay
	pv        *fakePreview
	lb        *fakeLetterbox
	sc        *fakeScreenshot
	cfg       *fakeConfig
	sink      *fakeSink
}

func newHarness() *harness {
	ctl := &fakeController{handle: target.Handle(1), screen: geometry.Size{W: 1920, H: 1080}}
	ov := &fakeOverlay{}
	pv := &fakePreview{}
	lb := &fakeLetterbox{}
	sc := &fakeScreenshot{}
	cfg := &fakeConfig{snap: config.Default()}
	sink := &fakeSink{}

	h := newWithComponents(ctl, cfg, sink, ov, pv, lb, sc, fakeSource{})
	return &harness{hub: h, ctl: ctl, ov: ov, pv: pv, lb: lb, sc: sc, cfg: cfg, sink: sink}
}

func (h *harness) selectWindow(t *testing.T) {
	t.Helper()
	require.NoError(t, h.hub.SelectWindow("Game"))
}

// --- tests ---

func TestSelectWindow_NotFound_Notifies(t *testing.T) {
	h := newHarness()
	h.ctl.handle = target.Handle(0)
	require.NoError(t, h.hub.SelectWindow("Missing"))
	assert.Contains(t, h.sink.notifications, notify.WindowNotFound)
	assert.Nil(t, h.hub.win)
}

func TestSelectWindow_Found_SetsTarget(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	assert.NotNil(t, h.hub.win)
	assert.Equal(t, ConsumerSet{}, h.hub.Consumers())
}

// Property 3: mutual exclusion. After any sequence of TogglePreview /
// ToggleOverlay, Overlay && Preview is never both true.
func TestMutualExclusion_TogglePreviewThenOverlay(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)

	require.NoError(t, h.hub.ToggleOverlay())
	assert.True(t, h.hub.Consumers().Overlay)

	require.NoError(t, h.hub.TogglePreview())
	c := h.hub.Consumers()
	assert.False(t, c.Overlay)
	assert.True(t, c.Preview)
	assert.Contains(t, h.sink.notifications, notify.FeatureConflict)
}

func TestMutualExclusion_ToggleOverlayThenPreview(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)

	require.NoError(t, h.hub.TogglePreview())
	require.NoError(t, h.hub.ToggleOverlay())

	c := h.hub.Consumers()
	assert.True(t, c.Overlay)
	assert.False(t, c.Preview)
}

// Property 4: toggle idempotence under rapid switching.
func TestToggleOverlay_RapidPairsReturnToStart(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)

	start := h.hub.Consumers()
	for i := 0; i < 100; i++ {
		require.NoError(t, h.hub.ToggleOverlay())
		require.NoError(t, h.hub.ToggleOverlay())
	}
	assert.Equal(t, start, h.hub.Consumers())
}

// Property 5: letterbox subsumption. Enabling overlay while letterbox is
// wanted stops the letterbox window without clearing the wanted flag.
func TestLetterboxSubsumption(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)

	require.NoError(t, h.hub.ToggleLetterbox())
	assert.True(t, h.lb.running)

	require.NoError(t, h.hub.ToggleOverlay())
	assert.False(t, h.lb.running, "letterbox window must not run while overlay is active")
	assert.True(t, h.hub.Consumers().Letterbox, "the wanted flag survives subsumption")

	require.NoError(t, h.hub.ToggleOverlay())
	assert.True(t, h.lb.running, "letterbox resumes once overlay stops")
}

func TestApplyRatio_RestartsActiveOverlay(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	require.NoError(t, h.hub.ToggleOverlay())
	startsBefore := h.ov.starts

	require.NoError(t, h.hub.ApplyRatio(1))
	assert.True(t, h.hub.Consumers().Overlay)
	assert.Greater(t, h.ov.starts, startsBefore)
	assert.Equal(t, 1, h.ctl.resizes)
}

func TestApplyResolution_OutOfRange(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	assert.ErrorIs(t, h.hub.ApplyResolution(99), ErrIndexOutOfRange)
}

func TestResetWindow_NotifiesSuccessAndRestartsPreview(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	require.NoError(t, h.hub.TogglePreview())

	require.NoError(t, h.hub.ResetWindow())
	assert.Equal(t, 1, h.ctl.resets)
	assert.Contains(t, h.sink.notifications, notify.ResetSuccess)
	assert.True(t, h.hub.Consumers().Preview)
}

func TestResetWindow_FailureNotifies(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	h.ctl.resetErr = errors.New("boom")

	err := h.hub.ResetWindow()
	assert.Error(t, err)
	assert.Contains(t, h.sink.notifications, notify.ResetFailed)
}

// Scenario E6: screenshot while minimized surfaces WINDOW_NOT_FOUND, not a
// consumer-state change.
func TestCaptureScreenshot_MinimizedMapsToWindowNotFound(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	h.sc.outcome = screenshot.Outcome{Err: screenshot.ErrWindowMinimized}

	var got screenshot.Outcome
	h.hub.CaptureScreenshot(context.Background(), screenshot.Config{}, func(o screenshot.Outcome) { got = o })

	assert.False(t, got.Success)
	assert.Contains(t, h.sink.notifications, notify.WindowNotFound)
	assert.Equal(t, ConsumerSet{}, h.hub.Consumers())
}

func TestCaptureScreenshot_NoTargetWindow(t *testing.T) {
	h := newHarness()
	var got screenshot.Outcome
	h.hub.CaptureScreenshot(context.Background(), screenshot.Config{}, func(o screenshot.Outcome) { got = o })
	assert.ErrorIs(t, got.Err, ErrNoTargetWindow)
	assert.Contains(t, h.sink.notifications, notify.WindowNotFound)
}

func TestCaptureScreenshot_Success(t *testing.T) {
	h := newHarness()
	h.selectWindow(t)
	h.sc.outcome = screenshot.Outcome{Success: true, Path: "shot.png"}

	var got screenshot.Outcome
	h.hub.CaptureScreenshot(context.Background(), screenshot.Config{}, func(o screenshot.Outcome) { got = o })

	assert.True(t, got.Success)
	assert.Contains(t, h.sink.notifications, "CAPTURE_SUCCESS shot.png")
}
