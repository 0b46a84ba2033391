package application

import "math"

const (
	// DefaultPageSize is used when a listing request does not ask for a size.
	DefaultPageSize = 10
	// MaxPageSize caps the page size a visitor may request.
	MaxPageSize = 100
	// FeaturedEventLimit is the number of events shown on the landing page.
	FeaturedEventLimit = 2
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination derives the descriptor for page and limit over total items.
// TotalPages is ceil(total/limit) and zero when there are no items.
func NewPagination(page, limit, total int) Pagination {
	if total < 0 {
		total = 0
	}
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}

// EmptyPagination is the descriptor reported when a listing fails.
func EmptyPagination(limit int) Pagination {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return Pagination{Page: 1, Limit: limit}
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// PrevPage returns the previous page number.
func (p Pagination) PrevPage() int { return p.Page - 1 }

// NextPage returns the next page number.
func (p Pagination) NextPage() int { return p.Page + 1 }

// Offset returns the number of rows skipped before the page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

func normalizePage(page, limit, defaultLimit int) (int, int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// Keep the row offset inside the range SQLite and int arithmetic accept.
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit
}
