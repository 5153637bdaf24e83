package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusNoShow    Status = "no_show"
	StatusCancelled Status = "cancelled"
)

// validTransitions defines the state machine for booking status changes.
// cancelled is terminal: there is no edge out of it.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusSeated, StatusNoShow, StatusCancelled},
	StatusSeated:    {StatusNoShow, StatusCancelled},
	StatusNoShow:    {StatusCancelled},
	StatusCancelled: {},
}

// sortOrder ranks statuses by workflow priority for display purposes.
var sortOrder = map[Status]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusSeated:    2,
	StatusNoShow:    3,
	StatusCancelled: 4,
}

// IsValid returns true if the status is one of the five recognized values.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo returns true if a change from this status to target is
// allowed. A same-status change is allowed for non-terminal statuses so
// that repeated admin actions stay idempotent.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	if s == target {
		return !s.IsTerminal()
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s Status) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return true
	}
	return len(allowed) == 0
}

// SortOrder returns the workflow display rank of the status.
func (s Status) SortOrder() int {
	return sortOrder[s]
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts raw input to a Status. Unrecognized values are
// rejected, never coerced to pending.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status: %q", raw)
	}
	return status, nil
}
