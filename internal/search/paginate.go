package search

// Paginator describes one window into a larger result list with an
// explicit offset/limit/total triple. The items handed to it may be
// fewer than the limit after stale filtering even though the total
// still reflects the pre-filter figure minus confirmed removals.
type Paginator struct {
	Offset     int
	Limit      int
	TotalCount int
}

// NewPaginator builds the window for a 1-based page.
func NewPaginator(page, perPage, totalCount int) Paginator {
	if page < 1 {
		page = 1
	}
	return Paginator{
		Offset:     (page - 1) * perPage,
		Limit:      perPage,
		TotalCount: totalCount,
	}
}

// Page returns the 1-based page number of this window.
func (p Paginator) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

// TotalPages returns how many pages the total spans.
func (p Paginator) TotalPages() int {
	if p.Limit <= 0 || p.TotalCount <= 0 {
		return 0
	}
	return (p.TotalCount + p.Limit - 1) / p.Limit
}

// HasNext reports whether a later page exists.
func (p Paginator) HasNext() bool {
	return p.Offset+p.Limit < p.TotalCount
}

// wrap builds the final result set for one window.
func wrap(items []Item, pager Paginator, fileCount int) *ResultSet {
	return &ResultSet{
		Items:      items,
		TotalCount: pager.TotalCount,
		FileCount:  fileCount,
		Page:       pager.Page(),
		PerPage:    pager.Limit,
	}
}
