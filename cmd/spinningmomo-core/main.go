// Command spinningmomo-core wires the capture-and-redirect render
// pipeline together and blocks until asked to stop. It carries no CLI
// subcommands or flags: the UI layer, hotkey registration, tray icon, and
// everything else spec.md's Non-goals name are external collaborators
// that reach the CoordinationHub through its Go API, not through this
// process's argv.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ChanIok/spinningmomo/internal/config"
	"github.com/ChanIok/spinningmomo/internal/graphics"
	"github.com/ChanIok/spinningmomo/internal/hub"
	"github.com/ChanIok/spinningmomo/internal/logging"
	"github.com/ChanIok/spinningmomo/internal/notify"
	"github.com/ChanIok/spinningmomo/internal/windowctl"
)

var log = logging.For("main")

func main() {
	logging.Init(logging.Options{})

	cfgProvider := loadConfig()
	gfx := graphics.New()
	ctl := windowctl.New()

	h := hub.New(gfx, ctl, cfgProvider, notify.Discard{})

	snap := cfgProvider.Snapshot()
	if snap.WindowTitle != "" {
		if err := h.SelectWindow(snap.WindowTitle); err != nil {
			log.Error("initial SelectWindow failed", "title", snap.WindowTitle, "error", err)
		}
	}

	log.Info("spinningmomo-core is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	shutdown(h)
	log.Info("stopped")
}

// loadConfig looks for a path via SPINNINGMOMO_CONFIG and falls back to
// built-in defaults (config.Default via StaticProvider) when unset or
// unreadable, so the core still starts for a UI layer that hasn't written
// a config file yet.
func loadConfig() config.Provider {
	path := os.Getenv("SPINNINGMOMO_CONFIG")
	if path == "" {
		return config.NewStaticProvider(config.Default())
	}
	p, err := config.NewFileProvider(path)
	if err != nil {
		log.Error("failed to load config, using defaults", "path", path, "error", err)
		return config.NewStaticProvider(config.Default())
	}
	return p
}

// shutdown stops whatever consumers are running. There is no drain phase
// like the teacher's command-queue shutdown: every hub operation here
// completes synchronously except CaptureScreenshot, which is one-shot and
// has nothing to cancel mid-flight other than its own context.
func shutdown(h *hub.Hub) {
	if h.Consumers().Overlay {
		_ = h.ToggleOverlay()
	}
	if h.Consumers().Preview {
		_ = h.TogglePreview()
	}
	if h.Consumers().Letterbox {
		_ = h.ToggleLetterbox()
	}
}
