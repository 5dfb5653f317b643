package enums

import "fmt"

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "super_admin"
)

var validAdminRoles = []AdminRole{
	AdminRoleAdmin,
	AdminRoleSuperAdmin,
}

func (r AdminRole) String() string {
	return string(r)
}

func (r AdminRole) IsValid() bool {
	for _, candidate := range validAdminRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Satisfies reports whether r grants at least the privileges of required.
func (r AdminRole) Satisfies(required AdminRole) bool {
	if r == AdminRoleSuperAdmin {
		return true
	}
	return r == required
}

func ParseAdminRole(value string) (AdminRole, error) {
	for _, candidate := range validAdminRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin role %q", value)
}
