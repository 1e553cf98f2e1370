package model

import "errors"

// Sentinel kinds for model parsing errors.
var (
	ErrUnknownChannel = errors.New("unknown channel")
)
