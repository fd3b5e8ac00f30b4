package fax

import (
	"github.com/faxsign/faxsign/internal"
)

// Access carries the group-level permission state of a fax, as loaded
// by the repository for a specific requester.
type Access struct {
	// Restricted is true when any explicit permission row exists for
	// the fax's group. Once set, department membership is ignored.
	Restricted bool
	// Permitted is true when the requester is on the group's allow
	// list. Meaningless unless Restricted is true.
	Permitted bool
}

// CanView resolves read access for a (requester, fax) pair. Admins,
// managers and the fax intake role see everything. For standard users
// the rule is a strict two-mode switch: a restricted group is governed
// by its allow list alone, an unrestricted fax by department match
// alone. It is never an OR of the two.
func CanView(requester *internal.Requester, fax *Fax, access Access) bool {
	if requester.Role.CanSeeAllFaxes() {
		return true
	}
	if access.Restricted {
		return access.Permitted
	}
	return sameDepartment(requester, fax)
}

// CanComment gates comment writes with the same rule as reads.
func CanComment(requester *internal.Requester, fax *Fax, access Access) bool {
	return CanView(requester, fax, access)
}

func sameDepartment(requester *internal.Requester, fax *Fax) bool {
	if requester.DepartmentID == nil || fax.AssignedDepartmentID == nil {
		return false
	}
	return *requester.DepartmentID == *fax.AssignedDepartmentID
}
