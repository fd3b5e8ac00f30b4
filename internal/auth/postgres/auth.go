package postgres

import (
	"database/sql"
	"strings"

	"gorm.io/gorm"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/auth"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) auth.Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentials(username string) (int64, string, error) {
	var userID int64
	var passwordHash string

	row := r.db.Raw(`SELECT id, password_hash FROM users WHERE username = ?`, username).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return 0, "", internal.ErrUserNotFound
		}
		return 0, "", err
	}
	return userID, passwordHash, nil
}

func (r *Repository) GetRequesterByID(userID int64) (*internal.Requester, error) {
	var (
		req      internal.Requester
		role     string
		deptID   sql.NullInt64
		deptName sql.NullString
	)

	row := r.db.Raw(`
		SELECT u.id, u.username, u.full_name, u.role, u.department_id, d.name
		FROM users u
		LEFT JOIN departments d ON u.department_id = d.id
		WHERE u.id = ?`, userID).Row()
	if err := row.Scan(&req.ID, &req.Username, &req.FullName, &role, &deptID, &deptName); err != nil {
		if err == sql.ErrNoRows {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	parsed, err := internal.ParseRole(role)
	if err != nil {
		return nil, internal.NewInternalError("user row carries an unknown role", err)
	}
	req.Role = parsed

	if deptID.Valid {
		id := deptID.Int64
		req.DepartmentID = &id
	}
	if deptName.Valid {
		name := deptName.String
		req.DepartmentName = &name
	}

	return &req, nil
}

func (r *Repository) CreateUser(username, email, passwordHash, fullName string, role internal.Role) (int64, error) {
	var userID int64
	err := r.db.Raw(`
		INSERT INTO users (username, email, password_hash, full_name, role, created_at)
		VALUES (?, ?, ?, ?, ?, now())
		RETURNING id`, username, email, passwordHash, fullName, role.String()).Row().Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, internal.NewConflictError("username or email already exists", internal.ErrCodeDuplicateEntry)
		}
		return 0, err
	}
	return userID, nil
}

// isUniqueViolation matches postgres unique-constraint failures without
// depending on driver error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
