package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/department"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.Repository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) List() ([]*department.Department, error) {
	rows, err := r.db.Raw(`SELECT id, name FROM departments ORDER BY name`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []*department.Department
	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		departments = append(departments, &d)
	}
	return departments, rows.Err()
}

func (r *DepartmentRepository) Create(name string) (int64, error) {
	var id int64
	err := r.db.Raw(`INSERT INTO departments (name) VALUES (?) RETURNING id`, name).Row().Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, internal.NewConflictError("department name already exists", internal.ErrCodeDuplicateEntry)
		}
		return 0, err
	}
	return id, nil
}

func (r *DepartmentRepository) Rename(id int64, name string) error {
	res := r.db.Exec(`UPDATE departments SET name = ? WHERE id = ?`, name, id)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return internal.NewConflictError("department name already exists", internal.ErrCodeDuplicateEntry)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrDepartmentNotFound
	}
	return nil
}

func (r *DepartmentRepository) Delete(id int64) error {
	res := r.db.Exec(`DELETE FROM departments WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrDepartmentNotFound
	}
	return nil
}

func (r *DepartmentRepository) CountMembers(id int64) (int64, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(*) FROM users WHERE department_id = ?`, id).Row().Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
