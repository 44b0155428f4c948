package enums

import "fmt"

// Role represents an account-level permissions role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleClient  Role = "client"
	RoleManager Role = "manager"
	RoleCourier Role = "courier"
)

// Stable numeric codes as stored in the users table.
const (
	RoleCodeAdmin   int64 = 1
	RoleCodeClient  int64 = 2
	RoleCodeManager int64 = 3
	RoleCodeCourier int64 = 4
)

var validRoles = []Role{
	RoleAdmin,
	RoleClient,
	RoleManager,
	RoleCourier,
}

var roleCodes = map[Role]int64{
	RoleAdmin:   RoleCodeAdmin,
	RoleClient:  RoleCodeClient,
	RoleManager: RoleCodeManager,
	RoleCourier: RoleCodeCourier,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Code returns the stable numeric code stored in the database.
func (r Role) Code() int64 {
	return roleCodes[r]
}

// IsStaff reports whether the role belongs to shop personnel.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleCourier
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// RoleFromCode maps a stored numeric code back to a Role.
func RoleFromCode(code int64) (Role, error) {
	for role, c := range roleCodes {
		if c == code {
			return role, nil
		}
	}
	return "", fmt.Errorf("invalid role code %d", code)
}
