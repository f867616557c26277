package domain

import "time"

// Role is the staff-account role used for authorization decisions
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleDoctor     Role = "DOCTOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDoctor:
		return true
	}
	return false
}

// Gender of a staff member as recorded in the account profile
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// StaffAccount represents a staff member of the medical platform
type StaffAccount struct {
	ID           string     `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Gender       Gender     `json:"gender"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsDeleted reports whether the account was soft-deleted.
func (s *StaffAccount) IsDeleted() bool {
	return s.DeletedAt != nil
}

// IsAdmin reports whether the account holds an administrative role.
func (s *StaffAccount) IsAdmin() bool {
	return s.Role == RoleAdmin || s.Role == RoleSuperAdmin
}

// CanManageAdmins reports whether the account may create or modify ADMIN
// accounts. Only SUPER_ADMIN may.
func (s *StaffAccount) CanManageAdmins() bool {
	return s.Role == RoleSuperAdmin
}

// Sanitized returns a copy safe for API responses. The password hash is
// already excluded from JSON; this also clears it so the value never travels.
func (s *StaffAccount) Sanitized() *StaffAccount {
	out := *s
	out.PasswordHash = ""
	return &out
}
