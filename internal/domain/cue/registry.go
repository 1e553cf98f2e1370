package cue

import "fmt"

// Cue describes one controllable overlay graphic.
type Cue struct {
	Action Action // external identifier raised by the scoring feed
	DocKey string // control document key within a channel collection
	Label  string // operator-facing short label
}

// Registry is the fixed mapping between action identifiers and control
// documents. It is immutable after construction.
type Registry struct {
	byAction map[Action]Cue
	ordered  []Cue
}

// NewRegistry builds the registry with the standard overlay set.
func NewRegistry() *Registry {
	cues := []Cue{
		{Action: Number(4), DocKey: "four", Label: "Four"},
		{Action: Number(6), DocKey: "six", Label: "Six"},
		{Action: Symbol("WICKET"), DocKey: "wicket", Label: "Wicket"},
		{Action: Symbol("WIDE_DELIVERY"), DocKey: "wideDelivery", Label: "Wide Delivery"},
		{Action: Symbol("FREE_HIT"), DocKey: "freeHit", Label: "Free Hit"},
		{Action: Symbol("SCORE_TABLE"), DocKey: "scoreTicker", Label: "Score Ticker"},
		{Action: Symbol("COMMON"), DocKey: "common", Label: "Common"},
	}
	r := &Registry{
		byAction: make(map[Action]Cue, len(cues)),
		ordered:  cues,
	}
	for _, c := range cues {
		r.byAction[c.Action] = c
	}
	return r
}

// Resolve returns the cue registered for the given action identifier.
// Unregistered identifiers yield ErrUnknownCue so callers can abort
// the operation without crashing.
func (r *Registry) Resolve(a Action) (Cue, error) {
	c, ok := r.byAction[a]
	if !ok {
		return Cue{}, fmt.Errorf("%w: %s", ErrUnknownCue, a)
	}
	return c, nil
}

// Cues returns every registered cue in declaration order.
func (r *Registry) Cues() []Cue {
	out := make([]Cue, len(r.ordered))
	copy(out, r.ordered)
	return out
}
