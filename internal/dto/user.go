package dto

// UserQuery filters the admin user list.
type UserQuery struct {
	Role      string `form:"role" validate:"omitempty,oneof=ADMIN TEACHER STUDENT"`
	Active    *bool  `form:"is_active"`
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// UserStatus is returned by the admin toggle.
type UserStatus struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
}
