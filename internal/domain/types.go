package domain

// Role values issued by the identity service.
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
	RoleCustomer   = "customer"
)

// SystemActor is recorded when no authenticated principal is available.
const SystemActor = "System"

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// Offset is the number of rows skipped for the current page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// NormalizePage clamps page/pageSize into sane bounds.
func NormalizePage(page, pageSize int) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// Page is a paginated result set.
type Page[T any] struct {
	Data []T `json:"data"`
	Pagination
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	Name   string `json:"name"`
}

// Actor returns the name recorded in audit trails.
func (p Principal) Actor() string {
	if p.Name != "" {
		return p.Name
	}
	return SystemActor
}
