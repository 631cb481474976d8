package player

import "errors"

// Sentinel errors for the small set of typed rejections the core
// recognizes (spec.md §7). submit never returns an error to its caller
// (the external interface has no return value for it); these exist so
// internal validation and tests have something concrete to key off of, and
// so the WARN-level log lines carry a stable reason.
var (
	// ErrInvalidFormat is returned by Format.Validate for a non-positive
	// sample rate or channel count.
	ErrInvalidFormat = errors.New("invalid pcm format")

	// ErrNoFormat is logged when submit is called before setFormat.
	ErrNoFormat = errors.New("no format set")

	// ErrMisalignedPayload is logged when a payload's length is not a
	// multiple of the frame size.
	ErrMisalignedPayload = errors.New("payload not frame-aligned")

	// ErrEmptyPayload is logged when a payload has zero length.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrClosed is returned by SetFormat after Stop. Submit after Stop
	// returns silently without using it.
	ErrClosed = errors.New("player is closed")

	// ErrDeviceOpen wraps a failure to open the output stream in setFormat.
	ErrDeviceOpen = errors.New("failed to open output device")
)
