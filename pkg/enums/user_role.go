package enums

import "fmt"

// UserRole is the account-level role carried in access tokens.
type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleBusiness UserRole = "BUSINESS"
	// UserRoleSystem identifies internal actors such as scheduled jobs. It is never issued in tokens.
	UserRoleSystem UserRole = "SYSTEM"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleBusiness,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a role that can be assigned to a user.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
