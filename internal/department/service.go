package department

import (
	"log/slog"
	"strings"

	"github.com/faxsign/faxsign/internal"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListDepartments() ([]*Department, error) {
	departments, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		return nil, internal.NewInternalError("failed to list departments", err)
	}
	return departments, nil
}

func (s *Service) CreateDepartment(requester *internal.Requester, dto DepartmentDTO) (int64, error) {
	if !requester.Role.CanManageDepartments() {
		return 0, internal.NewForbiddenError("only administrators can create departments", internal.ErrCodeAdminOnly)
	}

	name := strings.TrimSpace(dto.Name)
	if name == "" {
		return 0, internal.NewValidationError("department name is required", internal.ErrCodeValidationFailed)
	}

	id, err := s.repo.Create(name)
	if err != nil {
		return 0, err
	}

	s.logger.Info("department created", "department_id", id, "name", name, "by", requester.ID)
	return id, nil
}

func (s *Service) RenameDepartment(requester *internal.Requester, id int64, dto DepartmentDTO) error {
	if !requester.Role.CanManageDepartments() {
		return internal.NewForbiddenError("only administrators can modify departments", internal.ErrCodeAdminOnly)
	}

	name := strings.TrimSpace(dto.Name)
	if name == "" {
		return internal.NewValidationError("department name is required", internal.ErrCodeValidationFailed)
	}

	if err := s.repo.Rename(id, name); err != nil {
		return err
	}

	s.logger.Info("department renamed", "department_id", id, "name", name, "by", requester.ID)
	return nil
}

// DeleteDepartment removes a department. Blocked while users still
// reference it: an integrity guard, not a cascade.
func (s *Service) DeleteDepartment(requester *internal.Requester, id int64) error {
	if !requester.Role.CanManageDepartments() {
		return internal.NewForbiddenError("only administrators can delete departments", internal.ErrCodeAdminOnly)
	}

	members, err := s.repo.CountMembers(id)
	if err != nil {
		return internal.NewInternalError("failed to count department members", err)
	}
	if members > 0 {
		return internal.NewConflictError("cannot delete department: users are still assigned to it", internal.ErrCodeDepartmentInUse)
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.logger.Info("department deleted", "department_id", id, "by", requester.ID)
	return nil
}
