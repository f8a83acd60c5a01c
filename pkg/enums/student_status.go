package enums

import "fmt"

// StudentStatus tracks where a student is in today's dismissal.
type StudentStatus string

const (
	StudentStatusAwaiting  StudentStatus = "AWAITING"
	StudentStatusReady     StudentStatus = "READY"
	StudentStatusDismissed StudentStatus = "DISMISSED"
)

var validStudentStatuses = []StudentStatus{
	StudentStatusAwaiting,
	StudentStatusReady,
	StudentStatusDismissed,
}

// String implements fmt.Stringer.
func (s StudentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StudentStatus.
func (s StudentStatus) IsValid() bool {
	for _, candidate := range validStudentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStudentStatus converts raw input into a StudentStatus.
func ParseStudentStatus(value string) (StudentStatus, error) {
	for _, candidate := range validStudentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid student status %q", value)
}
