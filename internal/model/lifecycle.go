package model

// Transitions maps a status to the statuses it may move to.
// Statuses absent from the map (or mapped to nothing) are terminal.
type Transitions[S ~string] map[S][]S

// Allows reports whether a move from -> to is permitted
func (t Transitions[S]) Allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status
func (t Transitions[S]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}

// Known reports whether the status appears anywhere in the table
func (t Transitions[S]) Known(s S) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, targets := range t {
		for _, next := range targets {
			if next == s {
				return true
			}
		}
	}
	return false
}
