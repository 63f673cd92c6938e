package enums

import "fmt"

// StaffRole is the dealership role carried in access tokens.
type StaffRole string

const (
	StaffRoleAdmin          StaffRole = "admin"
	StaffRoleManager        StaffRole = "manager"
	StaffRolePartsClerk     StaffRole = "parts_clerk"
	StaffRoleServiceAdvisor StaffRole = "service_advisor"
	StaffRoleSales          StaffRole = "sales"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleManager,
	StaffRolePartsClerk,
	StaffRoleServiceAdvisor,
	StaffRoleSales,
}

func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
