package alert

import "errors"

// Sentinel kinds for subscription errors.
var (
	ErrSubscription = errors.New("subscription stream failed")
)
