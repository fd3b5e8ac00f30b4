package postgres

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/fax"
)

type FaxRepository struct {
	db *gorm.DB
}

func NewFaxRepository(db *gorm.DB) fax.Repository {
	return &FaxRepository{db: db}
}

func (r *FaxRepository) Create(f *fax.Fax) (int64, error) {
	var id int64
	err := r.db.Raw(`
		INSERT INTO faxes (fax_number, sender_name, received_at, file_name, original_name,
		                   mime_type, status, uploaded_by, assigned_department_id, group_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		f.FaxNumber, f.SenderName, f.ReceivedAt, f.FileName, f.OriginalName,
		f.MimeType, f.Status, f.UploadedBy, f.AssignedDepartmentID, f.GroupID, f.CreatedAt).
		Row().Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *FaxRepository) GetByID(id int64) (*fax.Fax, error) {
	rows, err := r.db.Raw(`
		SELECT f.id, f.fax_number, f.sender_name, f.received_at, f.file_name, f.original_name,
		       f.mime_type, f.status, f.uploaded_by, u.full_name, f.assigned_department_id, d.name,
		       f.group_id, f.created_at,
		       (SELECT COUNT(DISTINCT p.user_id)
		          FROM fax_permissions p
		          JOIN faxes m ON m.id = p.fax_id
		         WHERE m.id = f.id OR (f.group_id IS NOT NULL AND m.group_id = f.group_id)),
		       (SELECT COUNT(*) FROM fax_comments c WHERE c.fax_id = f.id)
		FROM faxes f
		LEFT JOIN users u ON u.id = f.uploaded_by
		LEFT JOIN departments d ON d.id = f.assigned_department_id
		WHERE f.id = ?`, id).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, internal.ErrFaxNotFound
	}
	f, _, err := scanFax(rows, false)
	if err != nil {
		return nil, err
	}
	return f, rows.Err()
}

// List returns every fax with group-aggregated permission counts and a
// per-requester is_permitted flag. Visibility filtering stays in the
// service so the rule lives in one place.
func (r *FaxRepository) List(requesterID int64) ([]*fax.Fax, error) {
	rows, err := r.db.Raw(`
		SELECT f.id, f.fax_number, f.sender_name, f.received_at, f.file_name, f.original_name,
		       f.mime_type, f.status, f.uploaded_by, u.full_name, f.assigned_department_id, d.name,
		       f.group_id, f.created_at,
		       (SELECT COUNT(DISTINCT p.user_id)
		          FROM fax_permissions p
		          JOIN faxes m ON m.id = p.fax_id
		         WHERE m.id = f.id OR (f.group_id IS NOT NULL AND m.group_id = f.group_id)),
		       (SELECT COUNT(*) FROM fax_comments c WHERE c.fax_id = f.id),
		       CASE WHEN EXISTS (
		            SELECT 1
		              FROM fax_permissions p
		              JOIN faxes m ON m.id = p.fax_id
		             WHERE (m.id = f.id OR (f.group_id IS NOT NULL AND m.group_id = f.group_id))
		               AND p.user_id = ?
		       ) THEN 1 ELSE 0 END
		FROM faxes f
		LEFT JOIN users u ON u.id = f.uploaded_by
		LEFT JOIN departments d ON d.id = f.assigned_department_id
		ORDER BY f.received_at DESC, f.id DESC`, requesterID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faxes []*fax.Fax
	for rows.Next() {
		f, permitted, err := scanFax(rows, true)
		if err != nil {
			return nil, err
		}
		f.IsPermitted = permitted
		faxes = append(faxes, f)
	}
	return faxes, rows.Err()
}

// UpdateStatus guards the transition in the WHERE clause so that of two
// concurrent confirms only one sees a row change.
func (r *FaxRepository) UpdateStatus(id int64, status string) (bool, error) {
	res := r.db.Exec(`UPDATE faxes SET status = ? WHERE id = ? AND status = ?`,
		status, id, fax.StatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FaxRepository) GroupMemberIDs(f *fax.Fax) ([]int64, error) {
	if f.GroupID == nil {
		return []int64{f.ID}, nil
	}

	rows, err := r.db.Raw(`SELECT id FROM faxes WHERE group_id = ?`, *f.GroupID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		ids = []int64{f.ID}
	}
	return ids, rows.Err()
}

func (r *FaxRepository) UpdateGroupDepartment(faxIDs []int64, departmentID *int64) error {
	return r.db.Exec(`UPDATE faxes SET assigned_department_id = ? WHERE id IN (?)`, departmentID, faxIDs).Error
}

func (r *FaxRepository) GroupPermissions(faxIDs []int64) ([]*fax.Permission, error) {
	rows, err := r.db.Raw(`
		SELECT DISTINCT p.user_id, u.username, u.full_name
		FROM fax_permissions p
		JOIN users u ON u.id = p.user_id
		WHERE p.fax_id IN (?)
		ORDER BY u.full_name`, faxIDs).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []*fax.Permission
	for rows.Next() {
		var p fax.Permission
		if err := rows.Scan(&p.UserID, &p.Username, &p.FullName); err != nil {
			return nil, err
		}
		permissions = append(permissions, &p)
	}
	return permissions, rows.Err()
}

// ReplaceGroupPermissions rewrites the allow list for a whole group in
// one transaction: delete every existing row for every member, then
// insert the new member x user cross product. A failure anywhere rolls
// the whole thing back so readers never see a half-updated set.
func (r *FaxRepository) ReplaceGroupPermissions(faxIDs []int64, userIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM fax_permissions WHERE fax_id IN (?)`, faxIDs).Error; err != nil {
			return err
		}
		for _, faxID := range faxIDs {
			for _, userID := range userIDs {
				if err := tx.Exec(`INSERT INTO fax_permissions (fax_id, user_id) VALUES (?, ?)`, faxID, userID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *FaxRepository) HasGroupPermission(faxIDs []int64, userID int64) (bool, bool, error) {
	var total, mine int64
	err := r.db.Raw(`
		SELECT COUNT(*),
		       COUNT(CASE WHEN user_id = ? THEN 1 END)
		FROM fax_permissions
		WHERE fax_id IN (?)`, userID, faxIDs).Row().Scan(&total, &mine)
	if err != nil {
		return false, false, err
	}
	return total > 0, mine > 0, nil
}

func (r *FaxRepository) ListComments(faxID int64) ([]*fax.Comment, error) {
	rows, err := r.db.Raw(`
		SELECT c.id, c.fax_id, c.user_id, u.full_name, c.comment, c.created_at
		FROM fax_comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.fax_id = ?
		ORDER BY c.created_at, c.id`, faxID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*fax.Comment
	for rows.Next() {
		var c fax.Comment
		if err := rows.Scan(&c.ID, &c.FaxID, &c.UserID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (r *FaxRepository) CreateComment(c *fax.Comment) (int64, error) {
	var id int64
	err := r.db.Raw(`
		INSERT INTO fax_comments (fax_id, user_id, comment, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`, c.FaxID, c.UserID, c.Body, time.Now()).Row().Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *FaxRepository) UsersExist(userIDs []int64) (bool, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(*) FROM users WHERE id IN (?)`, userIDs).Row().Scan(&count)
	if err != nil {
		return false, err
	}
	return count == int64(len(userIDs)), nil
}

func (r *FaxRepository) DepartmentExists(id int64) (bool, error) {
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

func scanFax(row rowScanner, withPermitted bool) (*fax.Fax, bool, error) {
	var (
		f            fax.Fax
		uploaderName sql.NullString
		deptID       sql.NullInt64
		deptName     sql.NullString
		groupID      sql.NullString
		permitted    int
	)

	dest := []interface{}{
		&f.ID, &f.FaxNumber, &f.SenderName, &f.ReceivedAt, &f.FileName, &f.OriginalName,
		&f.MimeType, &f.Status, &f.UploadedBy, &uploaderName, &deptID, &deptName,
		&groupID, &f.CreatedAt, &f.PermissionsCount, &f.CommentsCount,
	}
	if withPermitted {
		dest = append(dest, &permitted)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, false, err
	}

	if uploaderName.Valid {
		f.UploaderName = uploaderName.String
	}
	if deptID.Valid {
		id := deptID.Int64
		f.AssignedDepartmentID = &id
	}
	if deptName.Valid {
		name := deptName.String
		f.DepartmentName = &name
	}
	if groupID.Valid {
		gid := groupID.String
		f.GroupID = &gid
	}

	return &f, permitted == 1, nil
}
