package enums

import (
	"fmt"
	"strings"
)

// UserRole is the single role a user account holds.
type UserRole string

const (
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleTeacher   UserRole = "TEACHER"
	UserRoleParent    UserRole = "PARENT"
	UserRoleDismisser UserRole = "DISMISSER"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleTeacher,
	UserRoleParent,
	UserRoleDismisser,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// HasProfile reports whether the role owns a role-specific profile row.
func (r UserRole) HasProfile() bool {
	return r == UserRoleTeacher || r == UserRoleParent || r == UserRoleDismisser
}

// ParseUserRole converts raw input into a UserRole. Matching is case-insensitive.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
