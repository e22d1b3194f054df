package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileProvider is the reference Provider backed by viper, watching the
// backing file for edits made outside the process. Adapted from the
// teacher's config.Manager: viper.WatchConfig plus an OnConfigChange
// callback that refreshes a cached, mutex-guarded snapshot rather than
// re-reading the file on every Snapshot() call.
type FileProvider struct {
	mu       sync.RWMutex
	v        *viper.Viper
	snapshot Snapshot
}

// NewFileProvider loads path (YAML, TOML, or JSON — whatever extension it
// carries; viper has no INI codec) through viper, seeds missing keys from
// Default, and starts watching the file for external edits. A missing file
// is not an error: every key then takes its Default value.
func NewFileProvider(path string) (*FileProvider, error) {
	v := viper.New()
	v.SetConfigFile(path)

	def := Default()
	v.SetDefault("window_title", def.WindowTitle)
	v.SetDefault("taskbar_lower_on_resize", def.TaskbarLowerOnResize)
	v.SetDefault("letterbox_enabled", def.LetterboxEnabled)

	if err := v.ReadInConfig(); err != nil {
		// With SetConfigFile, a missing file surfaces as an fs.ErrNotExist
		// error rather than viper.ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	p := &FileProvider{v: v}
	if err := p.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(fsnotify.Event) {
		_ = p.reload()
	})
	v.WatchConfig()

	return p, nil
}

func (p *FileProvider) reload() error {
	var snap Snapshot
	if err := p.v.Unmarshal(&snap); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	if len(snap.AspectRatios) == 0 {
		snap.AspectRatios = Default().AspectRatios
	}
	if len(snap.Resolutions) == 0 {
		snap.Resolutions = Default().Resolutions
	}

	p.mu.Lock()
	p.snapshot = snap
	p.mu.Unlock()
	return nil
}

// Snapshot implements Provider.
func (p *FileProvider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// SetLetterboxEnabled implements Provider.
func (p *FileProvider) SetLetterboxEnabled(enabled bool) error {
	p.v.Set("letterbox_enabled", enabled)
	if err := p.v.WriteConfig(); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}

	p.mu.Lock()
	p.snapshot.LetterboxEnabled = enabled
	p.mu.Unlock()
	return nil
}

// StaticProvider serves a fixed Snapshot, used in tests and wherever no
// backing file is wired.
type StaticProvider struct {
	mu  sync.RWMutex
	snap Snapshot
}

// NewStaticProvider wraps snap in a Provider.
func NewStaticProvider(snap Snapshot) *StaticProvider {
	return &StaticProvider{snap: snap}
}

func (p *StaticProvider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *StaticProvider) SetLetterboxEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.LetterboxEnabled = enabled
	return nil
}
