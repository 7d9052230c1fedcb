package model

import "time"

// List defaults.
const (
	DefaultSortField = "createdAt"
	DefaultSortOrder = "desc"
	DefaultPageLimit = 50
	DefaultRecent    = 5
)

// ListFilter narrows and orders a list operation. Zero values impose no
// constraint; Normalize fills in the documented defaults for sorting and
// pagination.
type ListFilter struct {
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	Search     string
	DueBefore  *time.Time
	DueAfter   *time.Time
	SortBy     string
	Order      string
	Limit      int
	Page       int
}

// Normalize applies the default sort and pagination parameters in place.
func (f *ListFilter) Normalize() {
	if f.SortBy == "" {
		f.SortBy = DefaultSortField
	}
	if f.Order != "asc" {
		f.Order = DefaultSortOrder
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
}

// Skip returns the number of records before the requested page.
func (f *ListFilter) Skip() int {
	return (f.Page - 1) * f.Limit
}

// TaskPage is one page of list results plus the counts the dashboard needs
// for pagination.
type TaskPage struct {
	Tasks       []*Task
	TotalCount  int64
	CurrentPage int
	TotalPages  int
	Count       int
}

// TotalPages computes ceil(total / limit) for a page size.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
