package domain

// PaginationParams holds offset-based pagination parameters for list queries.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the current page (0-based).
// Formula: (Page - 1) * PageSize.
func (p PaginationParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Bounds returns the [start, end) slice bounds of the current page within total items.
// A zero PageSize selects everything.
func (p PaginationParams) Bounds(total int) (start, end int) {
	if p.PageSize <= 0 {
		return 0, total
	}
	start = min(p.Offset(), total)
	end = min(start+p.PageSize, total)
	return start, end
}
