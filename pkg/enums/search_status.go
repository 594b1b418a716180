package enums

import "fmt"

// SearchStatus is the lifecycle state of a search query.
type SearchStatus string

const (
	SearchStatusPending   SearchStatus = "pending"
	SearchStatusRunning   SearchStatus = "running"
	SearchStatusCompleted SearchStatus = "completed"
	SearchStatusFailed    SearchStatus = "failed"
)

var validSearchStatuses = []SearchStatus{
	SearchStatusPending,
	SearchStatusRunning,
	SearchStatusCompleted,
	SearchStatusFailed,
}

// searchTransitions lists the only edges of the state machine.
var searchTransitions = map[SearchStatus][]SearchStatus{
	SearchStatusPending: {SearchStatusRunning},
	SearchStatusRunning: {SearchStatusCompleted, SearchStatusFailed},
}

// SearchStatuses returns every status in lifecycle order.
func SearchStatuses() []SearchStatus {
	out := make([]SearchStatus, len(validSearchStatuses))
	copy(out, validSearchStatuses)
	return out
}

// String implements fmt.Stringer.
func (s SearchStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known SearchStatus.
func (s SearchStatus) IsValid() bool {
	for _, candidate := range validSearchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s SearchStatus) IsTerminal() bool {
	return s == SearchStatusCompleted || s == SearchStatusFailed
}

// CanTransitionTo reports whether s -> next is an edge of the state machine.
func (s SearchStatus) CanTransitionTo(next SearchStatus) bool {
	for _, candidate := range searchTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSearchStatus converts raw input into a SearchStatus.
func ParseSearchStatus(value string) (SearchStatus, error) {
	for _, candidate := range validSearchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid search status %q", value)
}
