package user

type UpdateRoleDTO struct {
	Role string `json:"role" validate:"required"`
}

// AssignDepartmentDTO carries a nullable department: null clears the
// assignment.
type AssignDepartmentDTO struct {
	DepartmentID *int64 `json:"department_id"`
}
