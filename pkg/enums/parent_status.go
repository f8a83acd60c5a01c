package enums

import "fmt"

// ParentStatus records whether a parent has checked into the carline.
type ParentStatus string

const (
	ParentStatusNotArrived ParentStatus = "NOT_ARRIVED"
	ParentStatusArrived    ParentStatus = "ARRIVED"
)

var validParentStatuses = []ParentStatus{
	ParentStatusNotArrived,
	ParentStatusArrived,
}

// String implements fmt.Stringer.
func (s ParentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ParentStatus.
func (s ParentStatus) IsValid() bool {
	for _, candidate := range validParentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseParentStatus converts raw input into a ParentStatus.
func ParseParentStatus(value string) (ParentStatus, error) {
	for _, candidate := range validParentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid parent status %q", value)
}
