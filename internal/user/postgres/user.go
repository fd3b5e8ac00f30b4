package postgres

import (
	"database/sql"

	"gorm.io/gorm"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) List() ([]*user.User, error) {
	rows, err := r.db.Raw(`
		SELECT u.id, u.username, u.email, u.full_name, u.role, u.department_id, d.name, u.created_at
		FROM users u
		LEFT JOIN departments d ON u.department_id = d.id
		ORDER BY u.full_name`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	rows, err := r.db.Raw(`
		SELECT u.id, u.username, u.email, u.full_name, u.role, u.department_id, d.name, u.created_at
		FROM users u
		LEFT JOIN departments d ON u.department_id = d.id
		WHERE u.id = ?`, id).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, internal.ErrUserNotFound
	}
	return scanUser(rows)
}

func (r *UserRepository) UpdateRole(id int64, role internal.Role) error {
	res := r.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, role.String(), id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateDepartment(id int64, departmentID *int64) error {
	res := r.db.Exec(`UPDATE users SET department_id = ? WHERE id = ?`, departmentID, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(id int64) error {
	res := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountReferences(id int64) (int64, error) {
	var count int64
	err := r.db.Raw(`
		SELECT (SELECT COUNT(*) FROM faxes WHERE uploaded_by = ?)
		     + (SELECT COUNT(*) FROM signature_workflows WHERE created_by = ?)
		     + (SELECT COUNT(*) FROM signers WHERE user_id = ?)`, id, id, id).
		Row().Scan(&count)
	return count, err
}

func (r *UserRepository) DepartmentExists(id int64) (bool, error) {
	var one int
	err := r.db.Raw(`SELECT 1 FROM departments WHERE id = ?`, id).Row().Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u        user.User
		role     string
		deptID   sql.NullInt64
		deptName sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &role, &deptID, &deptName, &u.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := internal.ParseRole(role)
	if err != nil {
		return nil, err
	}
	u.Role = parsed

	if deptID.Valid {
		id := deptID.Int64
		u.DepartmentID = &id
	}
	if deptName.Valid {
		name := deptName.String
		u.DepartmentName = &name
	}
	return &u, nil
}
