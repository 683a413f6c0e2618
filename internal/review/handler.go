package review

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/boostly/backend/internal/middleware"
	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/repository"
	"github.com/boostly/backend/internal/services"
)

// Request/response structs use snake_case JSON; list envelopes carry the
// shared pagination block.

type approveRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type rejectRequest struct {
	Reason string  `json:"reason"`
	Notes  *string `json:"notes,omitempty"`
}

type taskListResponse struct {
	Tasks      []*models.Task        `json:"tasks"`
	Pagination repository.Pagination `json:"pagination"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// ListTasks handles GET /admin/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := repository.TaskFilter{
		AdminStatus: q.Get("adminStatus"),
		Status:      q.Get("status"),
		Platform:    q.Get("platform"),
		ServiceType: q.Get("type"),
		Search:      strings.TrimSpace(q.Get("search")),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
	}
	if f.Platform != "" && !models.KnownPlatform(f.Platform) {
		http.Error(w, `{"error":"unknown platform"}`, http.StatusBadRequest)
		return
	}
	if userID := q.Get("userId"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			http.Error(w, `{"error":"invalid userId"}`, http.StatusBadRequest)
			return
		}
		f.GiverID = &id
	}

	page := pageParams(q.Get("page"), q.Get("limit"))
	tasks, total, err := h.svc.ListTasks(r.Context(), f, page)
	if err != nil {
		h.log.Error("list tasks failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, taskListResponse{
		Tasks:      tasks,
		Pagination: repository.NewPagination(page, total),
	})
}

// GetTask handles GET /admin/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.GetTask(r.Context(), taskID)
	if err != nil {
		h.writeError(w, err, "get task")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Approve handles POST /admin/tasks/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req approveRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	detail, err := h.svc.Approve(r.Context(), taskID, admin.ID, req.Notes)
	if err != nil {
		h.writeError(w, err, "approve")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Reject handles POST /admin/tasks/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req rejectRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Rejection reason is required"})
		return
	}
	detail, err := h.svc.Reject(r.Context(), taskID, admin.ID, req.Reason, req.Notes)
	if err != nil {
		h.writeError(w, err, "reject")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
	case errors.Is(err, ErrNotReviewable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrReasonRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Rejection reason is required"})
	case errors.Is(err, services.ErrInsufficientFunds):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient funds"})
	default:
		h.log.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// pathTaskID parses the {id} path value; writes a 400 on failure.
func pathTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// decodeOptionalBody decodes JSON but tolerates an empty body, since approve
// may legitimately carry no payload.
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func pageParams(pageStr, limitStr string) repository.PageParams {
	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(limitStr)
	return repository.PageParams{Page: page, Limit: limit}.Normalize()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
