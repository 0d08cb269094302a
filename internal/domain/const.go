package domain

const (
	RequesterIdCtxKey = "ts-requesterId"
)

// Thread listing sorts.
type ThreadSort string

const (
	SortNewest    ThreadSort = "newest"
	SortOldest    ThreadSort = "oldest"
	SortBookmarks ThreadSort = "bookmarks"
	SortForks     ThreadSort = "forks"
)

func ParseThreadSort(s string) ThreadSort {
	switch ThreadSort(s) {
	case SortOldest:
		return SortOldest
	case SortBookmarks:
		return SortBookmarks
	case SortForks:
		return SortForks
	default:
		return SortNewest
	}
}

// Counter names the atomically incremented thread counters.
type Counter string

const (
	CounterBookmarks Counter = "bookmark_count"
	CounterForks     Counter = "fork_count"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination describes a page request and, once filled, its result.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// NewPagination clamps page and limit to sane values.
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// WithTotal fills in Total and Pages.
func (p Pagination) WithTotal(total int64) Pagination {
	p.Total = total
	p.Pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return p
}
