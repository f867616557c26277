package repository

import (
	"context"
	"time"

	"github.com/medicalink/staff-backend/internal/domain"
)

// ListFilter narrows and pages List results.
type ListFilter struct {
	Role   domain.Role
	Gender domain.Gender
	Search string // matches full name or email, case-insensitive
	Page   int
	Limit  int
}

// StaffRepository defines persistence operations for staff accounts.
// Lookups never return soft-deleted rows unless noted; absence is (nil, nil),
// not an error.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffAccount) error
	GetByID(ctx context.Context, id string) (*domain.StaffAccount, error)
	// GetByIDIncludeDeleted also finds soft-deleted rows, for restores
	GetByIDIncludeDeleted(ctx context.Context, id string) (*domain.StaffAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, staff *domain.StaffAccount) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*domain.StaffAccount, int64, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	// CountCreatedSince counts active accounts created at or after the given time
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}
