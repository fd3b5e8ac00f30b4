package fax

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/faxsign/faxsign/internal"
	"github.com/faxsign/faxsign/internal/transport"
	"github.com/faxsign/faxsign/pkg/logger"
)

type ServiceAPI interface {
	Upload(requester *internal.Requester, dto UploadDTO, file io.Reader, originalName, mimeType string) (*Fax, error)
	ListFaxes(requester *internal.Requester) ([]*Fax, error)
	GetFax(requester *internal.Requester, id int64) (*Fax, error)
	OpenFile(requester *internal.Requester, id int64) (*os.File, *Fax, error)
	UpdateStatus(requester *internal.Requester, id int64, dto UpdateStatusDTO) error
	GetPermissions(requester *internal.Requester, id int64) ([]*Permission, error)
	SetPermissions(requester *internal.Requester, id int64, dto SetPermissionsDTO) error
	AssignDepartment(requester *internal.Requester, id int64, dto AssignDepartmentDTO) error
	ListComments(requester *internal.Requester, faxID int64) ([]*Comment, error)
	AddComment(requester *internal.Requester, faxID int64, dto CommentDTO) (*Comment, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	maxFileSize int64
}

func NewHandler(service ServiceAPI, maxFileSize int64) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		maxFileSize: maxFileSize,
	}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	requester, ok := internal.RequesterFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form or file too large")
		return
	}

	dto := UploadDTO{
		FaxNumber:  r.FormValue("fax_number"),
		SenderName: r.FormValue("sender_name"),
		GroupID:    r.FormValue("group_id"),
	}

	file, header, err := r.FormFile("fax")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "fax file is required")
		return
	}
	defer file.Close()

	fax, err := h.Service.Upload(requester, dto, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, fax)
}

func (h *Handler) ListFaxes(w http.ResponseWriter, r *http.Request) {
	requester, ok := internal.RequesterFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	faxes, err := h.Service.ListFaxes(requester)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, faxes)
}

func (h *Handler) GetFax(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	fax, err := h.Service.GetFax(requester, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, fax)
}

func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	file, fax, err := h.Service.OpenFile(requester, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", fax.MimeType)
	w.Header().Set("Content-Disposition", `inline; filename="`+fax.OriginalName+`"`)
	if _, err := io.Copy(w, file); err != nil {
		h.Logger.Error("failed to stream fax file", "fax_id", id, "error", err)
	}
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.UpdateStatus(requester, id, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "fax status updated successfully"})
}

func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	permissions, err := h.Service.GetPermissions(requester, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permissions)
}

func (h *Handler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	var dto SetPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.SetPermissions(requester, id, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "fax permissions updated successfully"})
}

func (h *Handler) AssignDepartment(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	var dto AssignDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.AssignDepartment(requester, id, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "fax assigned to department successfully"})
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	comments, err := h.Service.ListComments(requester, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, comments)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	requester, id, ok := h.requesterAndID(w, r)
	if !ok {
		return
	}

	var dto CommentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.Service.AddComment(requester, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, comment)
}

func (h *Handler) requesterAndID(w http.ResponseWriter, r *http.Request) (*internal.Requester, int64, bool) {
	requester, ok := internal.RequesterFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid fax ID")
		return nil, 0, false
	}

	return requester, id, true
}
