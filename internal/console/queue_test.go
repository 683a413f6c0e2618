package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/repository"
)

// taskServer is a canned /admin/tasks backend recording every request it saw.
type taskServer struct {
	mu       sync.Mutex
	requests []url.Values
	pages    map[int]Page // by page number
	status   int          // 0 means 200
}

func (s *taskServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		q := r.URL.Query()
		s.requests = append(s.requests, q)
		status := s.status
		page := 1
		if p, err := strconv.Atoi(q.Get("page")); err == nil {
			page = p
		}
		resp, ok := s.pages[page]
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
			return
		}
		if !ok {
			resp = Page{Tasks: []*models.Task{}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func (s *taskServer) lastRequest() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *taskServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func taskPage(page, limit, total int, n int) Page {
	tasks := make([]*models.Task, n)
	for i := range tasks {
		tasks[i] = &models.Task{ID: uuid.New(), Title: "boost", AdminStatus: models.AdminStatusPending}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Page{
		Tasks:      tasks,
		Pagination: repository.Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages},
	}
}

func newTestQueue(t *testing.T, backend *taskServer, pageSize int) *Queue {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return NewQueue(NewSession(srv.URL, "test-token"), pageSize)
}

// --- tests ---

func TestQueueRequestsExactPageAndSize(t *testing.T) {
	backend := &taskServer{pages: map[int]Page{2: taskPage(2, 10, 35, 10)}}
	q := newTestQueue(t, backend, 10)

	ctx := context.Background()
	if err := q.SetPage(ctx, 2); err != nil {
		t.Fatalf("SetPage: %v", err)
	}

	req := backend.lastRequest()
	if req.Get("page") != "2" || req.Get("limit") != "10" {
		t.Errorf("request params: page=%s limit=%s, want 2/10", req.Get("page"), req.Get("limit"))
	}
	if got := len(q.Tasks()); got != 10 {
		t.Errorf("rendered tasks: got %d, want 10", got)
	}
	if q.Pagination().TotalPages != 4 {
		t.Errorf("total pages: got %d, want 4", q.Pagination().TotalPages)
	}
}

func TestQueueFilterChangeResetsPage(t *testing.T) {
	backend := &taskServer{pages: map[int]Page{
		1: taskPage(1, 20, 40, 20),
		2: taskPage(2, 20, 40, 20),
	}}
	q := newTestQueue(t, backend, 20)

	ctx := context.Background()
	if err := q.SetPage(ctx, 2); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if err := q.SetFilters(ctx, Filters{Platform: models.PlatformTikTok}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}

	if q.Page() != 1 {
		t.Errorf("page after filter change: got %d, want 1", q.Page())
	}
	req := backend.lastRequest()
	if req.Get("page") != "1" || req.Get("platform") != "tiktok" {
		t.Errorf("request after filter change: page=%s platform=%s", req.Get("page"), req.Get("platform"))
	}

	// Unchanged filters are a no-op: no extra request, page kept.
	before := backend.requestCount()
	if err := q.SetFilters(ctx, Filters{Platform: models.PlatformTikTok}); err != nil {
		t.Fatalf("SetFilters (same): %v", err)
	}
	if backend.requestCount() != before {
		t.Error("identical filter set should not refetch")
	}
}

func TestQueueClampsOutOfRangePage(t *testing.T) {
	// Server reports only 2 pages; asking for page 9 must refetch page 2.
	backend := &taskServer{pages: map[int]Page{
		2: taskPage(2, 20, 25, 5),
		9: taskPage(9, 20, 25, 0),
	}}
	q := newTestQueue(t, backend, 20)

	if err := q.SetPage(context.Background(), 9); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if q.Page() != 2 {
		t.Errorf("clamped page: got %d, want 2", q.Page())
	}
	if got := len(q.Tasks()); got != 5 {
		t.Errorf("tasks after clamp: got %d, want 5", got)
	}
	req := backend.lastRequest()
	if req.Get("page") != "2" {
		t.Errorf("final request page: got %s, want 2", req.Get("page"))
	}
}

func TestQueueEmptySuccessIsNotAnError(t *testing.T) {
	backend := &taskServer{pages: map[int]Page{}}
	q := newTestQueue(t, backend, 20)

	if err := q.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if q.Err() != nil {
		t.Errorf("err on empty 200: got %v, want nil", q.Err())
	}
	if tasks := q.Tasks(); tasks == nil || len(tasks) != 0 {
		t.Errorf("tasks: got %v, want empty non-nil", tasks)
	}
}

func TestQueueErrorStateIsDistinctFromEmpty(t *testing.T) {
	backend := &taskServer{status: http.StatusInternalServerError}
	q := newTestQueue(t, backend, 20)

	if err := q.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh should fail on 500")
	}
	if q.Err() == nil {
		t.Error("queue should hold the fetch error")
	}
	if q.Tasks() != nil {
		t.Error("no data should be rendered before any successful fetch")
	}
}

func TestQueueRevalidateKeepsDataVisible(t *testing.T) {
	backend := &taskServer{pages: map[int]Page{1: taskPage(1, 20, 3, 3)}}
	q := newTestQueue(t, backend, 20)

	ctx := context.Background()
	if err := q.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if q.Loading() {
		t.Error("loading should clear after refresh resolves")
	}

	// A failed revalidation surfaces the error but the stale page stays
	// rendered; a later success clears the error again.
	backend.mu.Lock()
	backend.status = http.StatusBadGateway
	backend.mu.Unlock()
	if err := q.Revalidate(ctx); err == nil {
		t.Fatal("Revalidate should fail on 502")
	}
	if got := len(q.Tasks()); got != 3 {
		t.Errorf("stale tasks during failed revalidate: got %d, want 3", got)
	}

	backend.mu.Lock()
	backend.status = 0
	backend.mu.Unlock()
	if err := q.Revalidate(ctx); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if q.Err() != nil {
		t.Errorf("err after successful revalidate: got %v, want nil", q.Err())
	}
}

func TestQueueInvalidateDropsOnlyActiveFilterPages(t *testing.T) {
	backend := &taskServer{pages: map[int]Page{1: taskPage(1, 20, 1, 1)}}
	q := newTestQueue(t, backend, 20)

	ctx := context.Background()
	if err := q.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := backend.requestCount()

	// Cached: Load serves without a request.
	if err := q.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if backend.requestCount() != before {
		t.Fatal("Load should have served from cache")
	}

	// After Invalidate the same Load refetches.
	q.Invalidate()
	if err := q.Load(ctx); err != nil {
		t.Fatalf("Load after invalidate: %v", err)
	}
	if backend.requestCount() != before+1 {
		t.Errorf("requests after invalidate+load: got %d, want %d", backend.requestCount(), before+1)
	}
}

func TestSessionExpiresOn401(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	q := NewQueue(NewSession(srv.URL, "stale-token"), 20)
	ctx := context.Background()

	err := q.Refresh(ctx)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got: %v", err)
	}

	// The session fails fast now; no further network traffic.
	if err := q.Refresh(ctx); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired on retry, got: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend calls: got %d, want 1", n)
	}
}

func TestSessionAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(models.User{ID: uuid.New(), Role: models.RoleAdmin})
	}))
	defer srv.Close()

	s := NewSession(srv.URL, "tok-123")
	if _, err := s.Validate(context.Background()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization header: got %q", gotAuth)
	}
}
