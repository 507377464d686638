package enums

import "fmt"

// SharedCartStatus is the lifecycle state of a shared cart.
type SharedCartStatus string

const (
	SharedCartStatusActive    SharedCartStatus = "active"
	SharedCartStatusCompleted SharedCartStatus = "completed"
	SharedCartStatusExpired   SharedCartStatus = "expired"
)

var validSharedCartStatuses = []SharedCartStatus{
	SharedCartStatusActive,
	SharedCartStatusCompleted,
	SharedCartStatusExpired,
}

// String implements fmt.Stringer.
func (s SharedCartStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SharedCartStatus.
func (s SharedCartStatus) IsValid() bool {
	for _, candidate := range validSharedCartStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Open reports whether participants may still join or leave.
func (s SharedCartStatus) Open() bool {
	return s == SharedCartStatusActive || s == SharedCartStatusCompleted
}

// ParseSharedCartStatus converts raw input into a SharedCartStatus.
func ParseSharedCartStatus(value string) (SharedCartStatus, error) {
	for _, candidate := range validSharedCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shared cart status %q", value)
}
