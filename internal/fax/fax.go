// Package fax implements fax intake, grouped uploads, the visibility
// resolution engine, permission overrides, the status state machine and
// the per-fax comment thread.
package fax

import (
	"time"

	"github.com/faxsign/faxsign/internal"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

type Fax struct {
	ID                   int64     `json:"id"`
	FaxNumber            string    `json:"fax_number"`
	SenderName           string    `json:"sender_name"`
	ReceivedAt           time.Time `json:"received_at"`
	FileName             string    `json:"-"`
	OriginalName         string    `json:"original_name"`
	MimeType             string    `json:"mime_type"`
	Status               string    `json:"status"`
	UploadedBy           int64     `json:"uploaded_by"`
	UploaderName         string    `json:"uploader_name,omitempty"`
	AssignedDepartmentID *int64    `json:"assigned_department_id"`
	DepartmentName       *string   `json:"department_name,omitempty"`
	GroupID              *string   `json:"group_id"`
	CreatedAt            time.Time `json:"created_at"`

	// Per-requester enrichment, filled by the list/detail queries.
	PermissionsCount int64 `json:"permissions_count"`
	CommentsCount    int64 `json:"comments_count"`
	IsPermitted      bool  `json:"is_permitted"`
}

// CanTransitionTo reports whether the single legal transition applies.
// The machine is one-directional: pending to confirmed, nothing else.
func (f *Fax) CanTransitionTo(status string) bool {
	return f.Status == StatusPending && status == StatusConfirmed
}

type Permission struct {
	FaxID    int64  `json:"fax_id,omitempty"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

type Comment struct {
	ID         int64     `json:"id"`
	FaxID      int64     `json:"fax_id"`
	UserID     int64     `json:"user_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Body       string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository is the persistence contract for faxes, group-level
// permissions and comments. Group-aware methods resolve membership by
// the shared group id and treat a null group as a group of one.
type Repository interface {
	Create(fax *Fax) (int64, error)
	GetByID(id int64) (*Fax, error)
	// List returns all faxes enriched with group-aggregated
	// permissions_count, comments_count and is_permitted for the given
	// requester. Visibility filtering happens in the service.
	List(requesterID int64) ([]*Fax, error)
	// UpdateStatus applies the status only while the row is still
	// pending and reports whether a row changed, so concurrent
	// confirms cannot both win.
	UpdateStatus(id int64, status string) (updated bool, err error)

	// GroupMemberIDs returns the ids of every fax in the same group as
	// the given fax, including itself. A fax without a group id yields
	// just its own id.
	GroupMemberIDs(fax *Fax) ([]int64, error)
	UpdateGroupDepartment(faxIDs []int64, departmentID *int64) error

	// GroupPermissions aggregates distinct permitted users across all
	// faxes in the group.
	GroupPermissions(faxIDs []int64) ([]*Permission, error)
	// ReplaceGroupPermissions transactionally deletes every permission
	// row for the group and inserts the new set for every member, all
	// or nothing. An empty userIDs slice reverts the group to
	// department-based visibility.
	ReplaceGroupPermissions(faxIDs []int64, userIDs []int64) error
	// HasGroupPermission reports whether the group is in explicit mode
	// and, if so, whether the user is on the allow list.
	HasGroupPermission(faxIDs []int64, userID int64) (restricted bool, permitted bool, err error)

	ListComments(faxID int64) ([]*Comment, error)
	CreateComment(comment *Comment) (int64, error)

	UsersExist(userIDs []int64) (bool, error)
	DepartmentExists(id int64) (bool, error)
}

func NewFax(requester *internal.Requester, dto UploadDTO, fileName, originalName, mimeType string) *Fax {
	now := time.Now()

	fax := &Fax{
		FaxNumber:            dto.FaxNumber,
		SenderName:           dto.SenderName,
		ReceivedAt:           now,
		FileName:             fileName,
		OriginalName:         originalName,
		MimeType:             mimeType,
		Status:               StatusPending,
		UploadedBy:           requester.ID,
		AssignedDepartmentID: requester.DepartmentID,
		CreatedAt:            now,
	}
	if dto.GroupID != "" {
		gid := dto.GroupID
		fax.GroupID = &gid
	}

	return fax
}
