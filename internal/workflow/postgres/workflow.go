package postgres

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/workflow"
)

type WorkflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) workflow.Repository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) Create(wf *workflow.Workflow, signers []*workflow.Signer) (int64, error) {
	var id int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			INSERT INTO signature_workflows (fax_id, name, created_by, status, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			wf.FaxID, wf.Name, wf.CreatedBy, wf.Status, wf.CreatedAt).
			Row().Scan(&id)
		if err != nil {
			return err
		}

		for _, s := range signers {
			err := tx.Raw(`
				INSERT INTO signers (workflow_id, user_id, email, name, position, status)
				VALUES (?, ?, ?, ?, ?, ?)
				RETURNING id`,
				id, s.UserID, s.Email, s.Name, s.Position, s.Status).
				Row().Scan(&s.ID)
			if err != nil {
				return err
			}
			s.WorkflowID = id
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *WorkflowRepository) GetByID(id int64) (*workflow.Workflow, error) {
	rows, err := r.db.Raw(workflowSelect+` WHERE w.id = ?`, id).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, internal.ErrWorkflowNotFound
	}
	wf, err := scanWorkflow(rows)
	if err != nil {
		return nil, err
	}
	return wf, rows.Err()
}

func (r *WorkflowRepository) List() ([]*workflow.Workflow, error) {
	rows, err := r.db.Raw(workflowSelect + ` ORDER BY w.created_at DESC, w.id DESC`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*workflow.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func (r *WorkflowRepository) ListSigners(workflowID int64) ([]*workflow.Signer, error) {
	rows, err := r.db.Raw(`
		SELECT id, workflow_id, user_id, email, name, position, status, signed_at
		FROM signers
		WHERE workflow_id = ?
		ORDER BY position`, workflowID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signers []*workflow.Signer
	for rows.Next() {
		var (
			s        workflow.Signer
			signedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.WorkflowID, &s.UserID, &s.Email, &s.Name, &s.Position, &s.Status, &signedAt); err != nil {
			return nil, err
		}
		if signedAt.Valid {
			t := signedAt.Time
			s.SignedAt = &t
		}
		signers = append(signers, &s)
	}
	return signers, rows.Err()
}

// Sign relies on the pending guard in the WHERE clause: zero rows
// affected means either an already-signed row or no row at all, and the
// service tells those apart.
func (r *WorkflowRepository) Sign(workflowID, userID int64, signature string, signedAt time.Time) (bool, error) {
	res := r.db.Exec(`
		UPDATE signers
		SET status = ?, signed_at = ?, signature = ?
		WHERE workflow_id = ? AND user_id = ? AND status = ?`,
		workflow.SignerStatusSigned, signedAt, signature,
		workflowID, userID, workflow.SignerStatusPending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *WorkflowRepository) Exists(id int64) (bool, error) {
	var one int
	err := r.db.Raw(`SELECT 1 FROM signature_workflows WHERE id = ?`, id).Row().Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *WorkflowRepository) UsersExist(userIDs []int64) (bool, error) {
	var count int64
	err := r.db.Raw(`SELECT COUNT(*) FROM users WHERE id IN (?)`, userIDs).Row().Scan(&count)
	if err != nil {
		return false, err
	}
	return count == int64(len(userIDs)), nil
}

const workflowSelect = `
	SELECT w.id, w.fax_id, w.name, w.created_by, u.full_name, w.status, w.created_at,
	       f.assigned_department_id,
	       (SELECT COUNT(*) FROM signers s WHERE s.workflow_id = w.id),
	       (SELECT COUNT(*) FROM signers s WHERE s.workflow_id = w.id AND s.status = 'signed')
	FROM signature_workflows w
	LEFT JOIN users u ON u.id = w.created_by
	LEFT JOIN faxes f ON f.id = w.fax_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*workflow.Workflow, error) {
	var (
		wf          workflow.Workflow
		creatorName sql.NullString
		deptID      sql.NullInt64
	)
	if err := row.Scan(&wf.ID, &wf.FaxID, &wf.Name, &wf.CreatedBy, &creatorName, &wf.Status,
		&wf.CreatedAt, &deptID, &wf.SignersCount, &wf.SignedCount); err != nil {
		return nil, err
	}

	if creatorName.Valid {
		wf.CreatorName = creatorName.String
	}
	if deptID.Valid {
		id := deptID.Int64
		wf.FaxDepartmentID = &id
	}
	return &wf, nil
}
