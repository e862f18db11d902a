package services

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50

	// MaxPageNumber keeps Skip within a 32-bit offset for any limit.
	MaxPageNumber = math.MaxInt32 / MaxPageLimit
)

// Page is an offset/limit window over a newest-first listing.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps page to 1..MaxPageNumber and limit to 1..MaxPageLimit,
// substituting DefaultPageLimit for non-positive limits.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if page > MaxPageNumber {
		page = MaxPageNumber
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: page, Limit: limit}
}

// Skip is the number of items before this page.
func (p Page) Skip() int64 {
	return int64((p.Number - 1) * p.Limit)
}

func (p Page) Take() int64 {
	return int64(p.Limit)
}
