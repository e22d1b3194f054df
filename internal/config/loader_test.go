package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileProvider_SeedsDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spinningmomo.yaml")

	p, err := NewFileProvider(path)
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.NotEmpty(t, snap.AspectRatios)
	assert.NotEmpty(t, snap.Resolutions)
	assert.True(t, snap.TaskbarLowerOnResize)
}

func TestNewFileProvider_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spinningmomo.yaml")
	contents := `
window_title: "Genshin Impact"
taskbar_lower_on_resize: false
letterbox_enabled: true
aspect_ratios:
  - name: "16:9"
    ratio: 1.7777777777777777
resolutions:
  - name: "Default"
    width: 0
    height: 0
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.Equal(t, "Genshin Impact", snap.WindowTitle)
	assert.False(t, snap.TaskbarLowerOnResize)
	assert.True(t, snap.LetterboxEnabled)
	assert.Len(t, snap.AspectRatios, 1)
}

func TestFileProvider_SetLetterboxEnabledPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spinningmomo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("letterbox_enabled: false\n"), 0o644))

	p, err := NewFileProvider(path)
	require.NoError(t, err)
	require.NoError(t, p.SetLetterboxEnabled(true))

	assert.True(t, p.Snapshot().LetterboxEnabled)

	reloaded, err := NewFileProvider(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Snapshot().LetterboxEnabled)
}

func TestStaticProvider_RoundTrip(t *testing.T) {
	p := NewStaticProvider(Default())
	assert.False(t, p.Snapshot().LetterboxEnabled)

	require.NoError(t, p.SetLetterboxEnabled(true))
	assert.True(t, p.Snapshot().LetterboxEnabled)
}
