package capture

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ChanIok/spinningmomo/internal/target"
)

func TestCaptureSession_TokensDistinguishFrames(t *testing.T) {
	a := CaptureSession{Token: uuid.New(), Window: target.Handle(1)}
	b := CaptureSession{Token: uuid.New(), Window: target.Handle(1)}

	assert.NotEqual(t, a.Token, b.Token, "a resize must mint a new session token even for the same window")
}

func TestCapturedFrame_ReleaseIsCallerResponsibility(t *testing.T) {
	released := false
	frame := CapturedFrame{
		Sequence: 1,
		Release:  func() { released = true },
	}
	frame.Release()
	assert.True(t, released)
}
