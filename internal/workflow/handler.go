package workflow

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/transport"
	"github.com/faxsign/faxsign/pkg/logger"
)

type ServiceAPI interface {
	CreateWorkflow(requester *internal.Requester, dto CreateWorkflowDTO) (*Workflow, error)
	ListWorkflows(requester *internal.Requester) ([]*Workflow, error)
	GetWorkflow(requester *internal.Requester, id int64) (*Workflow, error)
	Sign(requester *internal.Requester, workflowID int64, dto SignDTO) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	requester, ok := internal.RequesterFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateWorkflowDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wf, err := h.Service.CreateWorkflow(requester, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, wf)
}

func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	requester, ok := internal.RequesterFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	workflows, err := h.Service.ListWorkflows(requester)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, workflows)
}

func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r, "id")
	if !ok {
		return
	}

	wf, err := h.Service.GetWorkflow(requester, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, wf)
}

func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r, "workflowId")
	if !ok {
		return
	}

	var dto SignDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.Sign(requester, id, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "signature recorded successfully"})
}

func (h *Handler) requesterAndID(w http.ResponseWriter, r *http.Request, param string) (*internal.Requester, int64, bool) {
	requester, ok := internal.RequesterFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workflow ID")
		return nil, 0, false
	}

	return requester, id, true
}
