package dto

import "github.com/medicalink/staff-backend/internal/domain"

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries the refresh token for a token renewal
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthResponse is returned by login and refresh. TokenExpires is the access
// token expiry in unix milliseconds. User is set on login only; refresh
// returns just the renewed token pair.
type AuthResponse struct {
	User         *domain.StaffAccount `json:"user,omitempty"`
	AccessToken  string               `json:"token"`
	RefreshToken string               `json:"refreshToken"`
	TokenExpires int64                `json:"tokenExpires"`
}

// ProfileResponse is the authenticated account's profile with the id of the
// session the presented token is bound to, flattened into one object.
type ProfileResponse struct {
	*domain.StaffAccount
	SessionID string `json:"sessionId"`
}

// ChangePasswordRequest represents a password change by the account owner
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// ResetPasswordRequest asks for a password reset mail
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}
