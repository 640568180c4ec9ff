package pagination

// OffsetParams holds page-number pagination inputs. Page is 1-based.
type OffsetParams struct {
	Page  int
	Limit int
}

// Normalize clamps the page to at least 1 and applies the limit bounds.
func (p OffsetParams) Normalize() OffsetParams {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset returns the number of rows to skip for the page.
func (p OffsetParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages returns how many pages of limit rows cover total.
func TotalPages(total int64, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// HasMore reports whether pages exist after the current one.
func HasMore(page, totalPages int) bool {
	return page < totalPages
}
