package user

import (
	"time"

	"github.com/faxsign/faxsign/internal"
)

// User is a directory entry. Credentials never leave the auth package.
type User struct {
	ID             int64         `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email"`
	FullName       string        `json:"full_name"`
	Role           internal.Role `json:"role"`
	DepartmentID   *int64        `json:"department_id"`
	DepartmentName *string       `json:"department_name"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Repository defines the data access methods for users.
type Repository interface {
	List() ([]*User, error)
	GetByID(id int64) (*User, error)
	UpdateRole(id int64, role internal.Role) error
	UpdateDepartment(id int64, departmentID *int64) error
	Delete(id int64) error
	// CountReferences reports how many faxes and workflows still point at
	// the user; deletion is blocked while it is non-zero.
	CountReferences(id int64) (int64, error)
	DepartmentExists(id int64) (bool, error)
}
