package workflow

import (
	"errors"
	"log/slog"
	"time"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/core/validation"
	"github.com/faxsign/faxsign/internal/fax"
)

// FaxReader is the slice of the fax service a workflow needs: loading a
// fax with the requester's visibility already enforced.
type FaxReader interface {
	GetFax(requester *internal.Requester, id int64) (*fax.Fax, error)
}

type Service struct {
	repo   Repository
	faxes  FaxReader
	logger *slog.Logger
}

func NewService(repo Repository, faxes FaxReader, logger *slog.Logger) *Service {
	return &Service{repo: repo, faxes: faxes, logger: logger}
}

// CreateWorkflow binds a signer list to a fax the requester can see.
// Signer order is fixed here, 1..N in submission order, and never
// reordered afterwards.
func (s *Service) CreateWorkflow(requester *internal.Requester, dto CreateWorkflowDTO) (*Workflow, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	if _, err := s.faxes.GetFax(requester, dto.FaxID); err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(dto.Signers))
	seen := make(map[int64]struct{}, len(dto.Signers))
	for _, sd := range dto.Signers {
		if _, dup := seen[sd.UserID]; dup {
			return nil, internal.NewValidationError("signers contains duplicate users", internal.ErrCodeValidationFailed)
		}
		seen[sd.UserID] = struct{}{}
		userIDs = append(userIDs, sd.UserID)
	}

	ok, err := s.repo.UsersExist(userIDs)
	if err != nil {
		return nil, internal.NewInternalError("failed to verify signers", err)
	}
	if !ok {
		return nil, internal.NewValidationError("signers contains unknown users", internal.ErrCodeValidationFailed)
	}

	wf := &Workflow{
		FaxID:     dto.FaxID,
		Name:      dto.Name,
		CreatedBy: requester.ID,
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}
	signers := make([]*Signer, 0, len(dto.Signers))
	for i, sd := range dto.Signers {
		signers = append(signers, &Signer{
			UserID:   sd.UserID,
			Email:    sd.Email,
			Name:     sd.Name,
			Position: i + 1,
			Status:   SignerStatusPending,
		})
	}

	id, err := s.repo.Create(wf, signers)
	if err != nil {
		s.logger.Error("failed to create workflow", "fax_id", dto.FaxID, "error", err)
		return nil, internal.NewInternalError("failed to create workflow", err)
	}
	wf.ID = id
	wf.SignersCount = int64(len(signers))
	wf.Signers = signers

	s.logger.Info("workflow created",
		"workflow_id", id,
		"fax_id", dto.FaxID,
		"signers", len(signers),
		"by", requester.ID)
	return wf, nil
}

// ListWorkflows applies the same department gate as fax listing, keyed
// off each workflow's bound fax.
func (s *Service) ListWorkflows(requester *internal.Requester) ([]*Workflow, error) {
	workflows, err := s.repo.List()
	if err != nil {
		s.logger.Error("failed to list workflows", "error", err)
		return nil, internal.NewInternalError("failed to list workflows", err)
	}

	if requester.Role.CanSeeAllFaxes() {
		return workflows, nil
	}

	visible := make([]*Workflow, 0, len(workflows))
	for _, wf := range workflows {
		if s.sameDepartment(requester, wf) {
			visible = append(visible, wf)
		}
	}
	return visible, nil
}

func (s *Service) GetWorkflow(requester *internal.Requester, id int64) (*Workflow, error) {
	wf, err := s.getWorkflow(id)
	if err != nil {
		return nil, err
	}

	if !requester.Role.CanSeeAllFaxes() && !s.sameDepartment(requester, wf) {
		return nil, internal.NewForbiddenError("you do not have access to this workflow", internal.ErrCodeAccessDenied)
	}

	signers, err := s.repo.ListSigners(id)
	if err != nil {
		s.logger.Error("failed to list workflow signers", "workflow_id", id, "error", err)
		return nil, internal.NewInternalError("failed to load workflow signers", err)
	}
	wf.Signers = signers

	return wf, nil
}

// Sign records the acting user's signature. The only guard is the
// signer row itself: it must exist for this workflow and still be
// pending. Signing out of position order is allowed.
func (s *Service) Sign(requester *internal.Requester, workflowID int64, dto SignDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	signed, err := s.repo.Sign(workflowID, requester.ID, dto.Signature, time.Now())
	if err != nil {
		s.logger.Error("failed to sign workflow", "workflow_id", workflowID, "user_id", requester.ID, "error", err)
		return internal.NewInternalError("failed to record signature", err)
	}
	if !signed {
		exists, err := s.repo.Exists(workflowID)
		if err != nil {
			return internal.NewInternalError("failed to load workflow", err)
		}
		if !exists {
			return internal.ErrWorkflowNotFound
		}
		return internal.NewConflictError("no pending signature found", internal.ErrCodeNoPendingSignature)
	}

	s.logger.Info("workflow signed", "workflow_id", workflowID, "user_id", requester.ID)
	return nil
}

func (s *Service) getWorkflow(id int64) (*Workflow, error) {
	wf, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, internal.ErrWorkflowNotFound) {
			return nil, err
		}
		s.logger.Error("failed to load workflow", "workflow_id", id, "error", err)
		return nil, internal.NewInternalError("failed to load workflow", err)
	}
	return wf, nil
}

func (s *Service) sameDepartment(requester *internal.Requester, wf *Workflow) bool {
	if requester.DepartmentID == nil || wf.FaxDepartmentID == nil {
		return false
	}
	return *requester.DepartmentID == *wf.FaxDepartmentID
}
