package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medicalink/staff-backend/internal/domain"
)

// MemoryStaffRepository implements StaffRepository using in-memory storage.
// This is useful for testing and development.
type MemoryStaffRepository struct {
	staff   map[string]*domain.StaffAccount
	byEmail map[string]string // email -> id
	mu      sync.RWMutex
}

// NewMemoryStaffRepository creates a new in-memory staff repository
func NewMemoryStaffRepository() *MemoryStaffRepository {
	return &MemoryStaffRepository{
		staff:   make(map[string]*domain.StaffAccount),
		byEmail: make(map[string]string),
	}
}

// Create stores a new staff account
func (r *MemoryStaffRepository) Create(ctx context.Context, staff *domain.StaffAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Clone to avoid external modifications
	s := *staff
	r.staff[staff.ID] = &s
	r.byEmail[staff.Email] = staff.ID
	return nil
}

// GetByID retrieves an active staff account by ID
func (r *MemoryStaffRepository) GetByID(ctx context.Context, id string) (*domain.StaffAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	staff, exists := r.staff[id]
	if !exists || staff.IsDeleted() {
		return nil, nil
	}

	s := *staff
	return &s, nil
}

// GetByIDIncludeDeleted retrieves a staff account by ID whether or not it was
// soft-deleted
func (r *MemoryStaffRepository) GetByIDIncludeDeleted(ctx context.Context, id string) (*domain.StaffAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	staff, exists := r.staff[id]
	if !exists {
		return nil, nil
	}

	s := *staff
	return &s, nil
}

// GetByEmail retrieves an active staff account by email
func (r *MemoryStaffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[email]
	if !exists {
		return nil, nil
	}
	staff, exists := r.staff[id]
	if !exists || staff.IsDeleted() {
		return nil, nil
	}

	s := *staff
	return &s, nil
}

// ExistsByEmail checks if an active staff account exists with the given email
func (r *MemoryStaffRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	staff, err := r.GetByEmail(ctx, email)
	return staff != nil, err
}

// Update replaces profile fields of an existing account
func (r *MemoryStaffRepository) Update(ctx context.Context, staff *domain.StaffAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.staff[staff.ID]
	if !exists || existing.IsDeleted() {
		return nil
	}

	staff.UpdatedAt = time.Now()
	s := *staff
	s.PasswordHash = existing.PasswordHash
	r.staff[staff.ID] = &s
	r.byEmail[staff.Email] = staff.ID
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *MemoryStaffRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staff, exists := r.staff[id]
	if !exists || staff.IsDeleted() {
		return nil
	}
	staff.PasswordHash = passwordHash
	staff.UpdatedAt = time.Now()
	return nil
}

// SoftDelete marks a staff account deleted
func (r *MemoryStaffRepository) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staff, exists := r.staff[id]
	if !exists || staff.IsDeleted() {
		return nil
	}
	now := time.Now()
	staff.DeletedAt = &now
	staff.UpdatedAt = now
	return nil
}

// Restore clears the deletion mark of a soft-deleted staff account
func (r *MemoryStaffRepository) Restore(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staff, exists := r.staff[id]
	if !exists || !staff.IsDeleted() {
		return nil
	}
	staff.DeletedAt = nil
	staff.UpdatedAt = time.Now()
	return nil
}

// List retrieves active staff accounts matching the filter, newest first
func (r *MemoryStaffRepository) List(ctx context.Context, filter ListFilter) ([]*domain.StaffAccount, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.StaffAccount
	for _, staff := range r.staff {
		if staff.IsDeleted() {
			continue
		}
		if filter.Role != "" && staff.Role != filter.Role {
			continue
		}
		if filter.Gender != "" && staff.Gender != filter.Gender {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(staff.FullName), needle) &&
				!strings.Contains(strings.ToLower(staff.Email), needle) {
				continue
			}
		}
		s := *staff
		matched = append(matched, &s)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []*domain.StaffAccount{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// CountByRole counts active staff accounts holding the given role
func (r *MemoryStaffRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, staff := range r.staff {
		if !staff.IsDeleted() && staff.Role == role {
			count++
		}
	}
	return count, nil
}

// CountCreatedSince counts active staff accounts created at or after the given time
func (r *MemoryStaffRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, staff := range r.staff {
		if !staff.IsDeleted() && !staff.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Clear clears all data (for testing)
func (r *MemoryStaffRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.staff = make(map[string]*domain.StaffAccount)
	r.byEmail = make(map[string]string)
}
