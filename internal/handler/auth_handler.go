package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/medicalink/staff-backend/internal/dto"
	"github.com/medicalink/staff-backend/internal/middleware"
	"github.com/medicalink/staff-backend/internal/service"
	"github.com/medicalink/staff-backend/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService  service.AuthService
	staffService service.StaffService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, staffService service.StaffService) *AuthHandler {
	return &AuthHandler{authService: authService, staffService: staffService}
}

// Login handles staff login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid email or password")
			return
		}
		response.InternalError(c)
		return
	}

	response.Success(c, result)
}

// Refresh handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		// every refresh failure looks identical to the caller
		response.Unauthorized(c, "Invalid refresh token")
		return
	}

	response.Success(c, result)
}

// Logout ends the current session
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := c.GetString(middleware.CtxSessionID)
	accessToken := c.GetString(middleware.CtxToken)

	if err := h.authService.Logout(c.Request.Context(), sessionID, accessToken); err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, gin.H{"message": "Logged out successfully"})
}

// LogoutAll ends every session of the current user
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	n, err := h.authService.LogoutAll(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, gin.H{"sessionsEnded": n})
}

// Profile returns the authenticated staff account and its session id
// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	sessionID := c.GetString(middleware.CtxSessionID)

	staff, err := h.staffService.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrStaffNotFound) {
			response.NotFound(c, "Staff account not found")
			return
		}
		response.InternalError(c)
		return
	}

	response.Success(c, &dto.ProfileResponse{
		StaffAccount: staff,
		SessionID:    sessionID,
	})
}

// ChangePassword changes the current user's password
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := c.GetString(middleware.CtxUserID)

	if err := h.staffService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			response.BadRequest(c, "Old password is incorrect")
		case errors.Is(err, service.ErrStaffNotFound):
			response.NotFound(c, "Staff account not found")
		default:
			response.InternalError(c)
		}
		return
	}

	// every session was ended; the client must sign in again
	response.Success(c, gin.H{"message": "Password changed successfully"})
}

// ResetPassword mails a temporary password to the given address
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.staffService.ResetPassword(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c)
		return
	}

	// identical response for known and unknown addresses
	response.Success(c, gin.H{"message": "If the account exists, a reset mail has been sent"})
}
