package settings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/services"
)

// Store is the settings repository subset the handler needs.
type Store interface {
	Get(ctx context.Context) (models.Settings, error)
	Put(ctx context.Context, s models.Settings) (models.Settings, error)
}

// Validator checks a settings document against the platform schema.
type Validator interface {
	Validate(doc json.RawMessage) error
}

type Handler struct {
	Store     Store
	Validator Validator
	Log       *slog.Logger
}

func NewHandler(store Store, validator Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Store: store, Validator: validator, Log: log}
}

// Get handles GET /admin/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.Get(r.Context())
	if err != nil {
		h.Log.Error("get settings failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Put handles PUT /admin/settings. The full document is validated against
// schemas/settings.json before anything is stored.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}
	if err := h.Validator.Validate(doc); err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		h.Log.Error("validate settings failed", "error", err)
		http.Error(w, `{"error":"validation failed"}`, http.StatusBadRequest)
		return
	}
	var s models.Settings
	if err := json.Unmarshal(doc, &s); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	updated, err := h.Store.Put(r.Context(), s)
	if err != nil {
		h.Log.Error("put settings failed", "error", err)
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
