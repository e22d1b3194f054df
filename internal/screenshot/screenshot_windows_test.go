//go:build windows

package screenshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilenameFor_PNG(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 5, 9, 123_000_000, time.UTC)
	assert.Equal(t, "20260731_140509_123.png", filenameFor(ts, PNG))
}

func TestFilenameFor_JPEG(t *testing.T) {
	ts := time.Date(2026, 7, 31, 14, 5, 9, 7_000_000, time.UTC)
	assert.Equal(t, "20260731_140509_007.jpg", filenameFor(ts, JPEG))
}
