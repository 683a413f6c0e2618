package users

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/boostly/backend/internal/middleware"
	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/repository"
	"github.com/boostly/backend/internal/services"
)

// UserStore is the subset of the user repository the handler needs.
type UserStore interface {
	List(ctx context.Context, f repository.UserFilter, page repository.PageParams) ([]*models.User, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Adjuster applies manual balance adjustments.
type Adjuster interface {
	Adjust(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
}

type listResponse struct {
	Users      []*models.User        `json:"users"`
	Pagination repository.Pagination `json:"pagination"`
}

type Handler struct {
	Pool     TxBeginner
	Users    UserStore
	Treasury Adjuster
	Log      *slog.Logger
}

func NewHandler(pool TxBeginner, users UserStore, treasury Adjuster, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Pool: pool, Users: users, Treasury: treasury, Log: log}
}

// GetMe handles GET /admin/me. The console validates its session against this
// once at startup.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// List handles GET /admin/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.UserFilter{
		Search: q.Get("search"),
		Role:   q.Get("role"),
		Status: q.Get("status"),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	pp := repository.PageParams{Page: page, Limit: limit}.Normalize()

	list, total, err := h.Users.List(r.Context(), f, pp)
	if err != nil {
		h.Log.Error("list users failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	writeJSON(w, http.StatusOK, listResponse{Users: list, Pagination: repository.NewPagination(pp, total)})
}

// Get handles GET /admin/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
			return
		}
		h.Log.Error("get user failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update handles PATCH /admin/users/{id}: ban/reactivate and rename.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
			return
		}
		h.Log.Error("get user failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	var body struct {
		Status      *string `json:"status"`
		DisplayName *string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if body.Status != nil {
		if *body.Status != models.UserStatusActive && *body.Status != models.UserStatusBanned {
			http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
			return
		}
		u.Status = *body.Status
	}
	if body.DisplayName != nil {
		u.DisplayName = *body.DisplayName
	}
	if err := h.Users.Update(r.Context(), u); err != nil {
		h.Log.Error("update user failed", "error", err)
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// AdjustBalance handles POST /admin/users/{id}/balance: a signed manual
// adjustment recorded in the ledger.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var body struct {
		AmountCents int64  `json:"amount_cents"`
		Note        string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if body.AmountCents == 0 {
		http.Error(w, `{"error":"amount_cents must be non-zero"}`, http.StatusBadRequest)
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Log.Error("begin tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	if err := h.Treasury.Adjust(r.Context(), tx, id, body.AmountCents); err != nil {
		if errors.Is(err, services.ErrInsufficientFunds) {
			http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
			return
		}
		h.Log.Error("adjust balance failed", "error", err)
		http.Error(w, `{"error":"adjustment failed"}`, http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.Log.Error("commit adjust tx", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		h.Log.Error("reload user after adjust", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
