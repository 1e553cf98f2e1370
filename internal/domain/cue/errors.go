package cue

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrUnknownCue = errors.New("unknown cue")
)
