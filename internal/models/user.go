package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleInstructor UserRole = "instructor"
	RoleStudent    UserRole = "student"
)

// Stack is a learning track.
type Stack string

const (
	StackFrontend      Stack = "frontend"
	StackBackend       Stack = "backend"
	StackProductDesign Stack = "product_design"
)

// Stacks lists every stack in display order.
var Stacks = []Stack{StackFrontend, StackBackend, StackProductDesign}

// AccountStatus tracks whether a student has signed in at least once.
type AccountStatus string

const (
	StatusInactive AccountStatus = "inactive"
	StatusActive   AccountStatus = "active"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination fills in the derived page count.
func NewPagination(page, size, total int) *Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}

// ListParams are the shared paging and sorting inputs of list endpoints.
type ListParams struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Normalize applies the default page (1), page size (10) and the page size cap.
func (p *ListParams) Normalize(maxSize int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 10
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
}

// Offset returns the SQL offset of the requested page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Timestamps is embedded by every persisted entity.
type Timestamps struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
