package app

import "errors"

// Sentinel kinds for composer operations.
var (
	ErrNoActiveMatch = errors.New("no active match selected")
	ErrMatchNotFound = errors.New("match record not found")
	ErrTitleRequired = errors.New("title required")
	ErrNotStarted    = errors.New("service not started")
)
