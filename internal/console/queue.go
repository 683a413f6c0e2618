package console

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/boostly/backend/internal/models"
	"github.com/boostly/backend/internal/repository"
)

// Filters is the queue's filter set. Empty fields are omitted from the
// request. Comparable so a change is detected by simple inequality.
type Filters struct {
	Search      string
	Platform    string
	AdminStatus string
	Status      string
	ServiceType string
	SortBy      string
	SortOrder   string
}

func (f Filters) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("platform", f.Platform)
	set("adminStatus", f.AdminStatus)
	set("status", f.Status)
	set("type", f.ServiceType)
	set("sortBy", f.SortBy)
	set("sortOrder", f.SortOrder)
	return q
}

func (f Filters) key() string {
	return f.query().Encode()
}

// Page is one fetched page of the task list.
type Page struct {
	Tasks      []*models.Task        `json:"tasks"`
	Pagination repository.Pagination `json:"pagination"`
}

// Queue fetches paginated, filtered task lists and caches pages per filter
// set. Changing a filter resets to page 1; explicit page navigation keeps
// filters. A generation counter drops responses from fetches that were
// abandoned by a later filter or page change, so stale data is never shown.
type Queue struct {
	session  *Session
	pageSize int

	mu      sync.Mutex
	filters Filters
	page    int
	gen     uint64
	loading bool
	current *Page
	err     error
	cache   map[string]*Page
}

func NewQueue(session *Session, pageSize int) *Queue {
	if pageSize < 1 {
		pageSize = 20
	}
	return &Queue{
		session:  session,
		pageSize: pageSize,
		page:     1,
		cache:    make(map[string]*Page),
	}
}

// SetFilters replaces the filter set. Any change resets the page to 1 and
// invalidates the cache for the new filter set; an unchanged set is a no-op.
func (q *Queue) SetFilters(ctx context.Context, f Filters) error {
	q.mu.Lock()
	if f == q.filters {
		q.mu.Unlock()
		return nil
	}
	q.filters = f
	q.page = 1
	q.dropFilterPagesLocked(f.key())
	q.mu.Unlock()
	return q.Refresh(ctx)
}

// SetPage navigates to page n keeping the current filters. Values below 1
// clamp to 1; the fetch clamps to totalPages when the server reports fewer.
func (q *Queue) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.page = n
	q.mu.Unlock()
	return q.Refresh(ctx)
}

// Refresh is a user-triggered fetch: the loading state is visible until it
// resolves. A cached page is still refetched.
func (q *Queue) Refresh(ctx context.Context) error {
	return q.fetch(ctx, true)
}

// Revalidate is a background fetch: already-rendered data stays visible with
// no loading flicker while the replacement is in flight.
func (q *Queue) Revalidate(ctx context.Context) error {
	return q.fetch(ctx, false)
}

// Load serves the current page from cache when present, fetching otherwise.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	if p, ok := q.cache[q.cacheKeyLocked()]; ok {
		q.current = p
		q.err = nil
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()
	return q.Refresh(ctx)
}

// Invalidate drops the cached pages for the active filter set only. The next
// Load or Revalidate refetches them.
func (q *Queue) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropFilterPagesLocked(q.filters.key())
}

func (q *Queue) dropFilterPagesLocked(filterKey string) {
	for k := range q.cache {
		if cacheFilterKey(k) == filterKey {
			delete(q.cache, k)
		}
	}
}

func (q *Queue) cacheKeyLocked() string {
	return pageCacheKey(q.filters.key(), q.page)
}

func pageCacheKey(filterKey string, page int) string {
	return filterKey + "\x00" + strconv.Itoa(page)
}

func cacheFilterKey(cacheKey string) string {
	for i := len(cacheKey) - 1; i >= 0; i-- {
		if cacheKey[i] == '\x00' {
			return cacheKey[:i]
		}
	}
	return cacheKey
}

func (q *Queue) fetch(ctx context.Context, showLoading bool) error {
	q.mu.Lock()
	q.gen++
	gen := q.gen
	f := q.filters
	page := q.page
	if showLoading || q.current == nil {
		q.loading = true
	}
	q.mu.Unlock()

	result, err := q.fetchPage(ctx, f, page)

	q.mu.Lock()
	if gen != q.gen {
		// A later filter or page change abandoned this fetch.
		q.mu.Unlock()
		return nil
	}
	q.loading = false
	if err != nil {
		q.err = err
		q.mu.Unlock()
		return err
	}

	// Clamp when the requested page is past the end (items were reviewed
	// away since the count was last seen).
	if tp := result.Pagination.TotalPages; tp > 0 && page > tp {
		q.page = tp
		q.gen++
		gen = q.gen
		q.mu.Unlock()

		result, err = q.fetchPage(ctx, f, tp)

		q.mu.Lock()
		if gen != q.gen {
			q.mu.Unlock()
			return nil
		}
		if err != nil {
			q.err = err
			q.mu.Unlock()
			return err
		}
	}

	q.err = nil
	q.current = result
	q.cache[pageCacheKey(f.key(), q.page)] = result
	q.mu.Unlock()
	return nil
}

func (q *Queue) fetchPage(ctx context.Context, f Filters, page int) (*Page, error) {
	query := f.query()
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(q.pageSize))

	var result Page
	if err := q.session.get(ctx, "/admin/tasks", query, &result); err != nil {
		return nil, fmt.Errorf("fetch task list: %w", err)
	}
	return &result, nil
}

// Tasks returns the currently rendered page, nil before the first successful
// fetch. An empty non-nil slice is a successful empty result, not an error.
func (q *Queue) Tasks() []*models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	if q.current.Tasks == nil {
		return []*models.Task{}
	}
	return q.current.Tasks
}

func (q *Queue) Pagination() repository.Pagination {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return repository.Pagination{}
	}
	return q.current.Pagination
}

func (q *Queue) Filters() Filters {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.filters
}

func (q *Queue) Page() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.page
}

// Loading reports whether a user-visible fetch is in flight. Background
// revalidation of already-rendered data does not set it.
func (q *Queue) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loading
}

// Err returns the last fetch error, nil after any successful fetch. It is
// distinct from an empty result.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}
