// Package workflow implements e-signature workflows bound to faxes: an
// ordered signer list fixed at creation and a sign operation guarded by
// the signer row's pending status.
package workflow

import (
	"time"
)

const (
	StatusActive = "active"

	SignerStatusPending = "pending"
	SignerStatusSigned  = "signed"
)

type Workflow struct {
	ID          int64     `json:"id"`
	FaxID       int64     `json:"fax_id"`
	Name        string    `json:"name"`
	CreatedBy   int64     `json:"created_by"`
	CreatorName string    `json:"creator_name,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	// Department of the bound fax, used for the listing gate. Not part
	// of the JSON contract.
	FaxDepartmentID *int64 `json:"-"`

	SignersCount int64     `json:"signers_count"`
	SignedCount  int64     `json:"signed_count"`
	Signers      []*Signer `json:"signers,omitempty"`
}

type Signer struct {
	ID         int64      `json:"id"`
	WorkflowID int64      `json:"workflow_id"`
	UserID     int64      `json:"user_id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Position   int        `json:"position"`
	Status     string     `json:"status"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`
	Signature  string     `json:"-"`
}

type Repository interface {
	// Create inserts the workflow and its signer rows in one
	// transaction. Positions are already assigned 1..N by the service.
	Create(workflow *Workflow, signers []*Signer) (int64, error)
	GetByID(id int64) (*Workflow, error)
	List() ([]*Workflow, error)
	ListSigners(workflowID int64) ([]*Signer, error)
	// Sign flips the (workflow, user) signer row from pending to signed
	// and records the payload. Returns false when no pending row
	// matched, whether because the row is already signed or never
	// existed.
	Sign(workflowID, userID int64, signature string, signedAt time.Time) (bool, error)
	Exists(id int64) (bool, error)
	UsersExist(userIDs []int64) (bool, error)
}
