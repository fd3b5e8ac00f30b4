package internal

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles. Authorization decisions go through
// the predicates below, never through raw string comparison; ParseRole is
// the only place wire strings and display aliases are interpreted.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleFaxIntake Role = "faxes"
	RoleStandard  Role = "user"
)

// roleAliases maps alternate spellings seen on the wire to canonical
// identity. Display names stay a presentation concern.
var roleAliases = map[string]Role{
	"admin":      RoleAdmin,
	"manager":    RoleManager,
	"faxes":      RoleFaxIntake,
	"fax-intake": RoleFaxIntake,
	"user":       RoleStandard,
	"standard":   RoleStandard,
}

func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleFaxIntake, RoleStandard:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Privileged reports full read visibility over faxes and workflows.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanSeeAllFaxes covers the privileged roles plus fax intake, which reads
// everything it uploads regardless of department.
func (r Role) CanSeeAllFaxes() bool {
	return r.Privileged() || r == RoleFaxIntake
}

func (r Role) CanUploadFaxes() bool {
	return r == RoleFaxIntake || r == RoleAdmin || r == RoleManager
}

// CanAssignFaxDepartment is manager-only. Admins are deliberately excluded
// from this one action; do not widen it to Privileged.
func (r Role) CanAssignFaxDepartment() bool {
	return r == RoleManager
}

// CanManageFaxPermissions is manager-only, same asymmetry as department
// assignment.
func (r Role) CanManageFaxPermissions() bool {
	return r == RoleManager
}

func (r Role) CanAssignUserDepartment() bool {
	return r.Privileged()
}

func (r Role) CanAdministerUsers() bool {
	return r == RoleAdmin
}

func (r Role) CanManageDepartments() bool {
	return r == RoleAdmin
}
