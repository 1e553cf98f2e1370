package cue

// AllowList is the immutable set of action identifiers eligible to
// trigger operator alerts. It is loaded once from configuration.
type AllowList struct {
	set map[Action]struct{}
}

// NewAllowList parses configuration tokens into an allow-list. Numeric
// tokens ("4") and symbolic tokens ("WICKET") may be mixed freely;
// empty tokens are ignored.
func NewAllowList(tokens []string) AllowList {
	set := make(map[Action]struct{}, len(tokens))
	for _, t := range tokens {
		a := Parse(t)
		if a.IsZero() {
			continue
		}
		set[a] = struct{}{}
	}
	return AllowList{set: set}
}

// Contains reports whether the action is allow-listed.
func (l AllowList) Contains(a Action) bool {
	_, ok := l.set[a]
	return ok
}

// Len returns the number of allow-listed identifiers.
func (l AllowList) Len() int {
	return len(l.set)
}
