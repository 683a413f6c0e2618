package balance

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

type approveRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type rejectRequest struct {
	Reason string  `json:"reason"`
	Notes  *string `json:"notes,omitempty"`
}

type listResponse struct {
	Requests   []*models.BalanceRequest `json:"requests"`
	Pagination repository.Pagination    `json:"pagination"`
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

// List handles GET /admin/balance-requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.BalanceRequestFilter{
		Status: q.Get("status"),
		Type:   q.Get("type"),
	}
	if userID := q.Get("userId"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			http.Error(w, `{"error":"invalid userId"}`, http.StatusBadRequest)
			return
		}
		f.UserID = &id
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	pp := repository.PageParams{Page: page, Limit: limit}.Normalize()

	requests, total, err := h.svc.List(r.Context(), f, pp)
	if err != nil {
		h.log.Error("list balance requests failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []*models.BalanceRequest{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Requests:   requests,
		Pagination: repository.NewPagination(pp, total),
	})
}

// Approve handles POST /admin/balance-requests/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	requestID, admin, ok := h.decisionPrelude(w, r)
	if !ok {
		return
	}
	var req approveRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	updated, err := h.svc.Approve(r.Context(), requestID, admin.ID, req.Notes)
	if err != nil {
		h.writeError(w, err, "approve balance request")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Reject handles POST /admin/balance-requests/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	requestID, admin, ok := h.decisionPrelude(w, r)
	if !ok {
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
	updated, err := h.svc.Reject(r.Context(), requestID, admin.ID, req.Reason, req.Notes)
	if err != nil {
		h.writeError(w, err, "reject balance request")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) decisionPrelude(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.User, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid request id"}`, http.StatusBadRequest)
		return uuid.Nil, nil, false
	}
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return uuid.Nil, nil, false
	}
	return id, admin, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "balance request not found"})
	case errors.Is(err, ErrNotPending):
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

func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
