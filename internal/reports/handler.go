package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/repository"
)

// LedgerStore is the subset of the ledger repository the handler needs.
type LedgerStore interface {
	List(ctx context.Context, f repository.LedgerFilter, page repository.PageParams) ([]*models.LedgerEntry, int, error)
	SumByEntryType(ctx context.Context, f repository.LedgerFilter) ([]repository.EntryTypeTotal, error)
}

// StatsStore provides the pending-review backlog counts.
type StatsStore interface {
	PendingCounts(ctx context.Context) (repository.PendingCounts, error)
}

type ledgerResponse struct {
	Entries    []*models.LedgerEntry `json:"entries"`
	Pagination repository.Pagination `json:"pagination"`
}

type summaryResponse struct {
	Totals           []repository.EntryTypeTotal `json:"totals"`
	PlatformFeeCents int64                       `json:"platform_fee_cents"`
	Pending          repository.PendingCounts    `json:"pending"`
}

type Handler struct {
	Ledger LedgerStore
	Stats  StatsStore
	Log    *slog.Logger
}

func NewHandler(ledger LedgerStore, stats StatsStore, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Ledger: ledger, Stats: stats, Log: log}
}

// ListLedger handles GET /admin/reports/ledger.
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	f, ok := ledgerFilter(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	pp := repository.PageParams{Page: page, Limit: limit}.Normalize()

	entries, total, err := h.Ledger.List(r.Context(), f, pp)
	if err != nil {
		h.Log.Error("list ledger failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, ledgerResponse{Entries: entries, Pagination: repository.NewPagination(pp, total)})
}

// Summary handles GET /admin/reports/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	f, ok := ledgerFilter(w, r)
	if !ok {
		return
	}
	totals, err := h.Ledger.SumByEntryType(r.Context(), f)
	if err != nil {
		h.Log.Error("sum ledger failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	var feeCents int64
	for _, t := range totals {
		if t.EntryType == models.LedgerEntryPlatformFee {
			feeCents = t.TotalCents
		}
	}
	pending, err := h.Stats.PendingCounts(r.Context())
	if err != nil {
		h.Log.Error("pending counts failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if totals == nil {
		totals = []repository.EntryTypeTotal{}
	}
	writeJSON(w, http.StatusOK, summaryResponse{Totals: totals, PlatformFeeCents: feeCents, Pending: pending})
}

// ledgerFilter parses the shared userId/entryType/from/to query params.
// Writes a 400 and returns ok=false on bad input.
func ledgerFilter(w http.ResponseWriter, r *http.Request) (repository.LedgerFilter, bool) {
	q := r.URL.Query()
	var f repository.LedgerFilter
	f.EntryType = q.Get("entryType")
	if userID := q.Get("userId"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			http.Error(w, `{"error":"invalid userId"}`, http.StatusBadRequest)
			return f, false
		}
		f.UserID = &id
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			http.Error(w, `{"error":"invalid from timestamp"}`, http.StatusBadRequest)
			return f, false
		}
		f.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			http.Error(w, `{"error":"invalid to timestamp"}`, http.StatusBadRequest)
			return f, false
		}
		f.To = &t
	}
	return f, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
