// Package timerslot implements TimerSlot (spec.md section 3): a one-shot,
// cancelable delay used to defer expensive D3D teardown after the last
// consumer stops, so rapid toggles don't thrash device allocation (spec.md
// 4.4's Cleanup policy, property 6 — cleanup-timer cancellation).
package timerslot

import (
	"sync"
	"time"
)

// State is one of Idle, Running, or Triggered.
type State int

const (
	Idle State = iota
	Running
	Triggered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Triggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// Slot is a TimerSlot. Zero value is a ready-to-use Idle slot.
type Slot struct {
	mu    sync.Mutex
	state State
	timer *time.Timer
}

// Start arms the slot to call fn after d, unless canceled first. Starting an
// already-Running slot cancels the prior timer first (the newest Start wins).
func (s *Slot) Start(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = Running
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		// Only fire if nobody canceled between the timer firing and this
		// goroutine acquiring the lock.
		if s.state != Running {
			s.mu.Unlock()
			return
		}
		s.state = Triggered
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops a running timer before it fires. A subsequent Start within
// the cancellation window is the mechanism by which a quick toggle-back
// reuses whatever resource the timer would have torn down. Returns true if
// a running timer was actually canceled.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running || s.timer == nil {
		return false
	}
	stopped := s.timer.Stop()
	s.state = Idle
	return stopped
}

// State returns the slot's current state.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset returns the slot to Idle, e.g. after the caller has consumed a
// Triggered firing.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
}
