package dto

import "github.com/medicalink/staff-backend/internal/domain"

// CreateStaffRequest represents a new staff account
type CreateStaffRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD
}

// UpdateStaffRequest updates profile fields; zero values leave a field unchanged
type UpdateStaffRequest struct {
	FullName    string `json:"fullName"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD
}

// ListStaffQuery holds list filters from the query string
type ListStaffQuery struct {
	Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit  int    `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
	Role   string `form:"role"`
	Gender string `form:"gender"`
	Search string `form:"search"`
}

// StaffStatistics summarizes active staff accounts by role and recency
type StaffStatistics struct {
	Total           int64                 `json:"total"`
	ByRole          map[domain.Role]int64 `json:"byRole"`
	RecentlyCreated int64                 `json:"recentlyCreated"` // last 30 days
	Active          int64                 `json:"active"`
}

// PaginationMeta describes a page of results
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}
