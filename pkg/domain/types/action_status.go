package types

import "fmt"

// ActionStatus represents the review state of a suggested action
type ActionStatus string

const (
	ActionStatusPending  ActionStatus = "pending"
	ActionStatusRejected ActionStatus = "rejected"
	ActionStatusExecuted ActionStatus = "executed"
	ActionStatusExpired  ActionStatus = "expired"
)

// AllActionStatuses returns all valid action statuses
func AllActionStatuses() []ActionStatus {
	return []ActionStatus{
		ActionStatusPending,
		ActionStatusRejected,
		ActionStatusExecuted,
		ActionStatusExpired,
	}
}

// IsValid checks if the action status is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusPending,
		ActionStatusRejected,
		ActionStatusExecuted,
		ActionStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible from s
func (s ActionStatus) IsTerminal() bool {
	return s.IsValid() && s != ActionStatusPending
}

// CanTransitionTo reports whether s may move to next. Transitions are one-way out of pending.
func (s ActionStatus) CanTransitionTo(next ActionStatus) bool {
	return s == ActionStatusPending && next.IsTerminal()
}

// String returns the string representation of the action status
func (s ActionStatus) String() string {
	return string(s)
}

// ParseActionStatus parses a string into an ActionStatus
func ParseActionStatus(s string) (ActionStatus, error) {
	status := ActionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid action status: %s", s)
	}
	return status, nil
}
