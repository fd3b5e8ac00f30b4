package fax

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/core/validation"
)

// FileStore abstracts the on-disk document store.
type FileStore interface {
	Save(src io.Reader, originalName string) (string, error)
	Open(name string) (*os.File, error)
	Remove(name string) error
}

type Service struct {
	repo    Repository
	store   FileStore
	storage internal.StorageConfig
	logger  *slog.Logger
}

func NewService(repo Repository, store FileStore, storage internal.StorageConfig, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, storage: storage, logger: logger}
}

// Upload persists one file of a submission. Multi-file submissions call
// this once per file with the same client-generated group id; each call
// creates an independent fax row sharing that group id.
func (s *Service) Upload(requester *internal.Requester, dto UploadDTO, file io.Reader, originalName, mimeType string) (*Fax, error) {
	if !requester.Role.CanUploadFaxes() {
		return nil, internal.NewForbiddenError("your role cannot upload faxes", internal.ErrCodeUploadRoleRequired)
	}

	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	if !s.storage.Allows(mimeType) {
		return nil, internal.NewValidationError("unsupported file type: "+mimeType, internal.ErrCodeValidationFailed)
	}

	fileName, err := s.store.Save(file, originalName)
	if err != nil {
		s.logger.Error("failed to store fax file", "error", err)
		return nil, internal.NewInternalError("failed to store fax file", err)
	}

	fax := NewFax(requester, dto, fileName, originalName, mimeType)
	id, err := s.repo.Create(fax)
	if err != nil {
		if removeErr := s.store.Remove(fileName); removeErr != nil {
			s.logger.Error("failed to remove orphaned fax file", "file", fileName, "error", removeErr)
		}
		s.logger.Error("failed to create fax", "error", err)
		return nil, internal.NewInternalError("failed to create fax", err)
	}
	fax.ID = id

	s.logger.Info("fax uploaded",
		"fax_id", id,
		"uploaded_by", requester.ID,
		"group_id", dto.GroupID,
		"mime_type", mimeType)
	return fax, nil
}

// ListFaxes returns every fax the requester may see, enriched with
// group-aggregated permission and comment counts. Privileged roles and
// fax intake see all rows; standard users are filtered through the
// visibility rule.
func (s *Service) ListFaxes(requester *internal.Requester) ([]*Fax, error) {
	faxes, err := s.repo.List(requester.ID)
	if err != nil {
		s.logger.Error("failed to list faxes", "error", err)
		return nil, internal.NewInternalError("failed to list faxes", err)
	}

	visible := make([]*Fax, 0, len(faxes))
	for _, f := range faxes {
		access := Access{Restricted: f.PermissionsCount > 0, Permitted: f.IsPermitted}
		if !CanView(requester, f, access) {
			continue
		}
		f.IsPermitted = true
		visible = append(visible, f)
	}
	return visible, nil
}

func (s *Service) GetFax(requester *internal.Requester, id int64) (*Fax, error) {
	fax, access, err := s.loadWithAccess(requester, id)
	if err != nil {
		return nil, err
	}
	if !CanView(requester, fax, access) {
		return nil, internal.NewForbiddenError("you do not have access to this fax", internal.ErrCodeAccessDenied)
	}
	fax.IsPermitted = true
	return fax, nil
}

// OpenFile returns the stored document for a fax the requester may see.
// The caller owns the returned file handle.
func (s *Service) OpenFile(requester *internal.Requester, id int64) (*os.File, *Fax, error) {
	fax, err := s.GetFax(requester, id)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.store.Open(fax.FileName)
	if err != nil {
		s.logger.Error("failed to open fax file", "fax_id", id, "file", fax.FileName, "error", err)
		return nil, nil, internal.NewInternalError("failed to open fax file", err)
	}
	return file, fax, nil
}

// UpdateStatus applies the pending to confirmed transition. Any user
// with read access may confirm a fax; every other requested transition
// is rejected without side effects.
func (s *Service) UpdateStatus(requester *internal.Requester, id int64, dto UpdateStatusDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	fax, access, err := s.loadWithAccess(requester, id)
	if err != nil {
		return err
	}
	if !CanView(requester, fax, access) {
		return internal.NewForbiddenError("you do not have access to this fax", internal.ErrCodeAccessDenied)
	}

	if !fax.CanTransitionTo(dto.Status) {
		return internal.NewValidationError(
			"illegal status transition from "+fax.Status+" to "+dto.Status,
			internal.ErrCodeIllegalTransition)
	}

	updated, err := s.repo.UpdateStatus(id, dto.Status)
	if err != nil {
		s.logger.Error("failed to update fax status", "fax_id", id, "error", err)
		return internal.NewInternalError("failed to update fax status", err)
	}
	if !updated {
		// Another request confirmed the fax between our read and write.
		return internal.NewValidationError(
			"illegal status transition: fax is no longer pending",
			internal.ErrCodeIllegalTransition)
	}

	s.logger.Info("fax status updated", "fax_id", id, "status", dto.Status, "by", requester.ID)
	return nil
}

// GetPermissions returns the distinct explicit permissions across the
// fax's whole group. Manager only.
func (s *Service) GetPermissions(requester *internal.Requester, id int64) ([]*Permission, error) {
	if !requester.Role.CanManageFaxPermissions() {
		return nil, internal.NewForbiddenError("only managers can view fax permissions", internal.ErrCodeManagerOnly)
	}

	fax, err := s.getFax(id)
	if err != nil {
		return nil, err
	}

	memberIDs, err := s.repo.GroupMemberIDs(fax)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve fax group", err)
	}

	permissions, err := s.repo.GroupPermissions(memberIDs)
	if err != nil {
		s.logger.Error("failed to load fax permissions", "fax_id", id, "error", err)
		return nil, internal.NewInternalError("failed to load fax permissions", err)
	}
	return permissions, nil
}

// SetPermissions replaces the explicit permission set on every member
// of the fax's group. An empty set reverts the group to department
// visibility. Manager only.
func (s *Service) SetPermissions(requester *internal.Requester, id int64, dto SetPermissionsDTO) error {
	if !requester.Role.CanManageFaxPermissions() {
		return internal.NewForbiddenError("only managers can change fax permissions", internal.ErrCodeManagerOnly)
	}
	if dto.UserIDs == nil {
		return internal.NewValidationError("user_ids is required", internal.ErrCodeValidationFailed)
	}

	fax, err := s.getFax(id)
	if err != nil {
		return err
	}

	userIDs := dedupe(wellFormedIDs(dto.UserIDs))
	if len(userIDs) > 0 {
		ok, err := s.repo.UsersExist(userIDs)
		if err != nil {
			return internal.NewInternalError("failed to verify users", err)
		}
		if !ok {
			return internal.NewValidationError("user_ids contains unknown users", internal.ErrCodeValidationFailed)
		}
	}

	memberIDs, err := s.repo.GroupMemberIDs(fax)
	if err != nil {
		return internal.NewInternalError("failed to resolve fax group", err)
	}

	if err := s.repo.ReplaceGroupPermissions(memberIDs, userIDs); err != nil {
		s.logger.Error("failed to replace fax permissions", "fax_id", id, "error", err)
		return internal.NewInternalError("failed to update fax permissions", err)
	}

	s.logger.Info("fax permissions replaced",
		"fax_id", id,
		"group_members", len(memberIDs),
		"permitted_users", len(userIDs),
		"by", requester.ID)
	return nil
}

// AssignDepartment routes the fax's whole group to a department. This
// is the one action managers may perform but admins may not.
func (s *Service) AssignDepartment(requester *internal.Requester, id int64, dto AssignDepartmentDTO) error {
	if !requester.Role.CanAssignFaxDepartment() {
		return internal.NewForbiddenError("only managers can assign faxes to departments", internal.ErrCodeManagerOnly)
	}

	if dto.DepartmentID != nil {
		exists, err := s.repo.DepartmentExists(*dto.DepartmentID)
		if err != nil {
			return internal.NewInternalError("failed to verify department", err)
		}
		if !exists {
			return internal.NewValidationError("invalid department_id", internal.ErrCodeValidationFailed)
		}
	}

	fax, err := s.getFax(id)
	if err != nil {
		return err
	}

	memberIDs, err := s.repo.GroupMemberIDs(fax)
	if err != nil {
		return internal.NewInternalError("failed to resolve fax group", err)
	}

	if err := s.repo.UpdateGroupDepartment(memberIDs, dto.DepartmentID); err != nil {
		s.logger.Error("failed to assign fax department", "fax_id", id, "error", err)
		return internal.NewInternalError("failed to assign fax department", err)
	}

	s.logger.Info("fax assigned to department",
		"fax_id", id,
		"group_members", len(memberIDs),
		"department_id", dto.DepartmentID,
		"by", requester.ID)
	return nil
}

func (s *Service) ListComments(requester *internal.Requester, faxID int64) ([]*Comment, error) {
	fax, access, err := s.loadWithAccess(requester, faxID)
	if err != nil {
		return nil, err
	}
	if !CanView(requester, fax, access) {
		return nil, internal.NewForbiddenError("you do not have access to this fax", internal.ErrCodeAccessDenied)
	}

	comments, err := s.repo.ListComments(faxID)
	if err != nil {
		s.logger.Error("failed to list fax comments", "fax_id", faxID, "error", err)
		return nil, internal.NewInternalError("failed to list comments", err)
	}
	return comments, nil
}

func (s *Service) AddComment(requester *internal.Requester, faxID int64, dto CommentDTO) (*Comment, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dto.Comment) == "" {
		return nil, internal.NewValidationError("comment is required", internal.ErrCodeValidationFailed)
	}

	fax, access, err := s.loadWithAccess(requester, faxID)
	if err != nil {
		return nil, err
	}
	if !CanComment(requester, fax, access) {
		return nil, internal.NewForbiddenError("you do not have access to this fax", internal.ErrCodeAccessDenied)
	}

	comment := &Comment{
		FaxID:      faxID,
		UserID:     requester.ID,
		AuthorName: requester.FullName,
		Body:       dto.Comment,
	}
	id, err := s.repo.CreateComment(comment)
	if err != nil {
		s.logger.Error("failed to create fax comment", "fax_id", faxID, "error", err)
		return nil, internal.NewInternalError("failed to create comment", err)
	}
	comment.ID = id

	s.logger.Info("fax comment added", "fax_id", faxID, "comment_id", id, "by", requester.ID)
	return comment, nil
}

func (s *Service) getFax(id int64) (*Fax, error) {
	fax, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, internal.ErrFaxNotFound) {
			return nil, err
		}
		s.logger.Error("failed to load fax", "fax_id", id, "error", err)
		return nil, internal.NewInternalError("failed to load fax", err)
	}
	return fax, nil
}

func (s *Service) loadWithAccess(requester *internal.Requester, id int64) (*Fax, Access, error) {
	fax, err := s.getFax(id)
	if err != nil {
		return nil, Access{}, err
	}

	memberIDs, err := s.repo.GroupMemberIDs(fax)
	if err != nil {
		return nil, Access{}, internal.NewInternalError("failed to resolve fax group", err)
	}

	restricted, permitted, err := s.repo.HasGroupPermission(memberIDs, requester.ID)
	if err != nil {
		return nil, Access{}, internal.NewInternalError("failed to resolve fax permissions", err)
	}

	return fax, Access{Restricted: restricted, Permitted: permitted}, nil
}

// wellFormedIDs keeps only positive ids. Malformed entries in a
// permission payload are dropped silently, never rejected.
func wellFormedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
