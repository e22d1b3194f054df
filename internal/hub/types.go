// Package hub implements CoordinationHub (spec.md 4.8): the top-level
// state holder that owns the single ConsumerSet, routes the eight external
// commands into GraphicsContext/FrameSource/WindowControl/renderer calls,
// and enforces the Overlay/Preview mutual-exclusion and Letterbox
// subsumption invariants at command-handling time, never inside the
// renderers themselves.
package hub

import "errors"

// ErrNoTargetWindow is returned by any command that requires a previously
// selected window when none has been selected yet (or the last SelectWindow
// call found nothing and left the hub without one).
var ErrNoTargetWindow = errors.New("hub: no target window selected")

// ErrIndexOutOfRange is returned by ApplyRatio/ApplyResolution for an idx
// outside the config-supplied preset list.
var ErrIndexOutOfRange = errors.New("hub: preset index out of range")

// ConsumerSet is the enabled subset of {Overlay, Preview, Letterbox}
// (spec.md section 3). Overlay and Preview are mutually exclusive; a true
// Letterbox means the user wants the letterbox window, but it is only
// physically shown while Overlay is not active (subsumption) and the
// target window actually overflows the screen in one axis.
type ConsumerSet struct {
	Overlay   bool
	Preview   bool
	Letterbox bool
}
