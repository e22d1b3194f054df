// Package config defines the configuration surface (spec.md section 6):
// the five keys the core reads at startup and on every ApplyRatio /
// ApplyResolution, plus a reference file-backed loader. The only value the
// core writes is letterbox_enabled (through Provider.SetLetterboxEnabled,
// on ToggleLetterbox); CoordinationHub takes a Provider, not this
// package's concrete loader, so the real UI layer's own INI-backed store
// can satisfy the same contract.
package config

// ResolutionPreset is one entry of the resolutions list. Width==0 &&
// Height==0 means "default, derive from screen" per spec.md section 6.
type ResolutionPreset struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Width  uint32 `mapstructure:"width" yaml:"width"`
	Height uint32 `mapstructure:"height" yaml:"height"`
}

// RatioPreset is one entry of the aspect_ratios list.
type RatioPreset struct {
	Name  string  `mapstructure:"name" yaml:"name"`
	Ratio float64 `mapstructure:"ratio" yaml:"ratio"`
}

// Snapshot is the full configuration surface, read fresh on every access
// point named in spec.md section 6.
type Snapshot struct {
	WindowTitle        string             `mapstructure:"window_title" yaml:"window_title"`
	AspectRatios       []RatioPreset      `mapstructure:"aspect_ratios" yaml:"aspect_ratios"`
	Resolutions        []ResolutionPreset `mapstructure:"resolutions" yaml:"resolutions"`
	TaskbarLowerOnResize bool             `mapstructure:"taskbar_lower_on_resize" yaml:"taskbar_lower_on_resize"`
	LetterboxEnabled   bool               `mapstructure:"letterbox_enabled" yaml:"letterbox_enabled"`
}

// Provider is the configuration surface's contract. The core reads through
// Snapshot and writes only letterbox_enabled, through SetLetterboxEnabled.
type Provider interface {
	// Snapshot returns the current configuration. Called at startup and on
	// every ApplyRatio/ApplyResolution per spec.md section 6.
	Snapshot() Snapshot

	// SetLetterboxEnabled persists the one config value the core's
	// ToggleLetterbox command changes on the user's behalf (spec.md 4.8).
	// The core still never reads this back mid-session except through the
	// next Snapshot() call — it is not a hidden side channel.
	SetLetterboxEnabled(enabled bool) error
}

// Default returns sane built-in values, used when no Provider is wired
// (e.g. in tests), mirroring the teacher's Default() seeding convention.
func Default() Snapshot {
	return Snapshot{
		WindowTitle: "",
		AspectRatios: []RatioPreset{
			{Name: "16:9", Ratio: 16.0 / 9.0},
			{Name: "21:9", Ratio: 21.0 / 9.0},
			{Name: "32:9", Ratio: 32.0 / 9.0},
			{Name: "4:3", Ratio: 4.0 / 3.0},
		},
		Resolutions: []ResolutionPreset{
			{Name: "Default", Width: 0, Height: 0},
			{Name: "4K", Width: 3840, Height: 2160},
			{Name: "8K", Width: 7680, Height: 4320},
		},
		TaskbarLowerOnResize: true,
		LetterboxEnabled:     false,
	}
}
