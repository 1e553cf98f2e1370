// Package cue maps external action identifiers to the overlay documents
// they control.
package cue

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Action identifies an externally sourced match event. Boundary scores
// are numeric (4, 6); every other event is a symbolic name ("WICKET").
// The zero value means "no action".
type Action struct {
	sym     string
	num     int
	numeric bool
}

// Number builds a numeric action identifier.
func Number(n int) Action {
	return Action{num: n, numeric: true}
}

// Symbol builds a symbolic action identifier.
func Symbol(s string) Action {
	return Action{sym: s}
}

// Parse interprets a configuration or request token. Tokens that parse
// as integers become numeric actions; everything else is symbolic.
func Parse(token string) Action {
	token = strings.TrimSpace(token)
	if token == "" {
		return Action{}
	}
	if n, err := strconv.Atoi(token); err == nil {
		return Number(n)
	}
	return Symbol(token)
}

// FromValue interprets a value read back from a document field. JSON
// decoding turns stored numbers into float64 and json.Number, so both
// are accepted alongside native ints and strings. The second return is
// false when the value is absent, empty, or of an unusable type.
func FromValue(v any) (Action, bool) {
	switch t := v.(type) {
	case nil:
		return Action{}, false
	case string:
		if strings.TrimSpace(t) == "" {
			return Action{}, false
		}
		return Parse(t), true
	case int:
		return Number(t), true
	case int64:
		return Number(int(t)), true
	case float64:
		return Number(int(t)), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Number(int(n)), true
		}
		return Action{}, false
	default:
		return Action{}, false
	}
}

// IsZero reports whether a is the empty action.
func (a Action) IsZero() bool {
	return !a.numeric && a.sym == ""
}

// Numeric reports whether a is a numeric boundary identifier.
func (a Action) Numeric() bool {
	return a.numeric
}

// Payload returns the rendering payload persisted to ticker and sticker
// fields: an int for boundary actions, a string otherwise.
func (a Action) Payload() any {
	if a.numeric {
		return a.num
	}
	return a.sym
}

// String returns the display form of the action identifier.
func (a Action) String() string {
	if a.numeric {
		return strconv.Itoa(a.num)
	}
	return a.sym
}
