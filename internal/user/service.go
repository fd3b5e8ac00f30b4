package user

import (
	"log/slog"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/core/validation"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListUsers returns the directory. Any authenticated user may read it;
// the UI needs it to populate signer pickers.
func (s *Service) ListUsers(requester *internal.Requester) ([]*User, error) {
	users, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	return users, nil
}

// UpdateRole changes a user's role. Admin only; admins may never change
// their own role, so a lone admin cannot lock themselves out.
func (s *Service) UpdateRole(requester *internal.Requester, targetID int64, dto UpdateRoleDTO) error {
	if !requester.Role.CanAdministerUsers() {
		return internal.ErrAdminOnly
	}

	if err := validation.Struct(dto); err != nil {
		return err
	}

	role, err := internal.ParseRole(dto.Role)
	if err != nil {
		return internal.NewValidationError("valid role (admin, manager, user, or faxes) is required", internal.ErrCodeInvalidRole)
	}

	if targetID == requester.ID {
		return internal.NewValidationError("cannot modify your own role", internal.ErrCodeOwnRoleImmutable)
	}

	if err := s.repo.UpdateRole(targetID, role); err != nil {
		return err
	}

	s.logger.Info("user role updated", "target_id", targetID, "role", role, "by", requester.ID)
	return nil
}

// AssignDepartment sets or clears a user's department. Managers and
// admins may do this (unlike fax assignment, which is manager-only).
func (s *Service) AssignDepartment(requester *internal.Requester, targetID int64, dto AssignDepartmentDTO) error {
	if !requester.Role.CanAssignUserDepartment() {
		return internal.NewForbiddenError("only managers or admins can assign users to departments", internal.ErrCodeAccessDenied)
	}

	if dto.DepartmentID != nil {
		exists, err := s.repo.DepartmentExists(*dto.DepartmentID)
		if err != nil {
			return internal.NewInternalError("failed to look up department", err)
		}
		if !exists {
			return internal.NewValidationError("invalid department_id", internal.ErrCodeInvalidDepartment)
		}
	}

	if err := s.repo.UpdateDepartment(targetID, dto.DepartmentID); err != nil {
		return err
	}

	s.logger.Info("user department updated", "target_id", targetID, "department_id", dto.DepartmentID, "by", requester.ID)
	return nil
}

// DeleteUser removes an account. Blocked while faxes or workflows still
// reference it; history must stay attributable.
func (s *Service) DeleteUser(requester *internal.Requester, targetID int64) error {
	if !requester.Role.CanAdministerUsers() {
		return internal.ErrAdminOnly
	}

	if targetID == requester.ID {
		return internal.NewValidationError("cannot delete your own account", internal.ErrCodeValidationFailed)
	}

	refs, err := s.repo.CountReferences(targetID)
	if err != nil {
		return internal.NewInternalError("failed to count user references", err)
	}
	if refs > 0 {
		return internal.NewConflictError("cannot delete user: faxes or workflows still reference this account", internal.ErrCodeUserReferenced)
	}

	if err := s.repo.Delete(targetID); err != nil {
		return err
	}

	s.logger.Info("user deleted", "target_id", targetID, "by", requester.ID)
	return nil
}
