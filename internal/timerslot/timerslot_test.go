package timerslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlot_FiresAfterDelay(t *testing.T) {
	var s Slot
	fired := make(chan struct{})
	s.Start(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, Triggered, s.State())
}

func TestSlot_CancelPreventsFiring(t *testing.T) {
	var s Slot
	fired := make(chan struct{}, 1)
	s.Start(30*time.Millisecond, func() { fired <- struct{}{} })

	assert.True(t, s.Cancel())
	assert.Equal(t, Idle, s.State())

	select {
	case <-fired:
		t.Fatal("canceled timer fired anyway")
	case <-time.After(80 * time.Millisecond):
	}
}

// Property 6: starting within the cleanup window after a stop reuses state
// rather than tearing down — modeled here as: Start followed promptly by
// another Start cancels the first firing.
func TestSlot_RestartWithinWindowCancelsPriorFiring(t *testing.T) {
	var s Slot
	var firedCount int
	s.Start(20*time.Millisecond, func() { firedCount++ })
	s.Start(20*time.Millisecond, func() { firedCount++ })

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, firedCount, "only the second Start's callback should fire")
}
