package enums

import (
	"fmt"
	"strings"
)

// PickupStatus is the state of a single student pickup event.
// Transitions only move forward: QUEUED -> NOTIFIED/READY -> DISMISSED.
type PickupStatus string

const (
	PickupStatusQueued    PickupStatus = "QUEUED"
	PickupStatusNotified  PickupStatus = "NOTIFIED"
	PickupStatusReady     PickupStatus = "READY"
	PickupStatusDismissed PickupStatus = "DISMISSED"
)

var validPickupStatuses = []PickupStatus{
	PickupStatusQueued,
	PickupStatusNotified,
	PickupStatusReady,
	PickupStatusDismissed,
}

// PendingPickupStatuses are the states a teacher can still act on.
var PendingPickupStatuses = []PickupStatus{PickupStatusQueued, PickupStatusNotified}

// ActivePickupStatuses are the states shown as a current pickup.
var ActivePickupStatuses = []PickupStatus{PickupStatusQueued, PickupStatusNotified, PickupStatusReady}

// String implements fmt.Stringer.
func (s PickupStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PickupStatus.
func (s PickupStatus) IsValid() bool {
	for _, candidate := range validPickupStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPending reports whether the event is still waiting on the teacher.
func (s PickupStatus) IsPending() bool {
	return s == PickupStatusQueued || s == PickupStatusNotified
}

// IsTerminal reports whether no further transition is possible.
func (s PickupStatus) IsTerminal() bool {
	return s == PickupStatusDismissed
}

// ParsePickupStatus converts raw input into a PickupStatus. Matching is case-insensitive.
func ParsePickupStatus(value string) (PickupStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPickupStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pickup status %q", value)
}
