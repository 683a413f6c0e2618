package repository

// PageParams carries page/limit as parsed from the query string. Zero values
// are normalized rather than rejected.
type PageParams struct {
	Page  int
	Limit int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Normalize clamps page to >= 1 and limit to 1..100 (default 20).
func (p PageParams) Normalize() PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the list-envelope metadata returned by every list endpoint.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes envelope metadata for a normalized page and a total
// row count.
func NewPagination(p PageParams, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}
