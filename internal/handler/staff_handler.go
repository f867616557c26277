package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/medicalink/staff-backend/internal/domain"
	"github.com/medicalink/staff-backend/internal/dto"
	"github.com/medicalink/staff-backend/internal/middleware"
	"github.com/medicalink/staff-backend/internal/service"
	"github.com/medicalink/staff-backend/pkg/response"
)

// StaffHandler handles staff-account management requests
type StaffHandler struct {
	staffService service.StaffService
}

// NewStaffHandler creates a new StaffHandler
func NewStaffHandler(staffService service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

func actorRole(c *gin.Context) domain.Role {
	if val, ok := c.Get(middleware.CtxRole); ok {
		if role, ok := val.(domain.Role); ok {
			return role
		}
	}
	return ""
}

// Create registers a new staff account
// POST /api/v1/staff-accounts
func (h *StaffHandler) Create(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	staff, err := h.staffService.Create(c.Request.Context(), actorRole(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			response.Conflict(c, "Email already in use")
		case errors.Is(err, service.ErrInvalidRole):
			response.BadRequest(c, "Invalid role")
		case errors.Is(err, service.ErrRoleNotPermitted):
			response.Forbidden(c, "Only SUPER_ADMIN may manage administrative accounts")
		case errors.Is(err, service.ErrInvalidDateFormat):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, staff)
}

// List returns staff accounts matching the query
// GET /api/v1/staff-accounts
func (h *StaffHandler) List(c *gin.Context) {
	var query dto.ListStaffQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	staff, meta, err := h.staffService.List(c.Request.Context(), &query)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			response.BadRequest(c, "Invalid role")
			return
		}
		response.InternalError(c)
		return
	}

	response.SuccessWithMeta(c, staff, meta)
}

// Statistics summarizes active staff accounts
// GET /api/v1/staff-accounts/statistics
func (h *StaffHandler) Statistics(c *gin.Context) {
	stats, err := h.staffService.Statistics(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.Success(c, stats)
}

// Get returns one staff account
// GET /api/v1/staff-accounts/:id
func (h *StaffHandler) Get(c *gin.Context) {
	staff, err := h.staffService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrStaffNotFound) {
			response.NotFound(c, "Staff account not found")
			return
		}
		response.InternalError(c)
		return
	}

	response.Success(c, staff)
}

// Update changes profile fields of a staff account
// PATCH /api/v1/staff-accounts/:id
func (h *StaffHandler) Update(c *gin.Context) {
	var req dto.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	staff, err := h.staffService.Update(c.Request.Context(), actorRole(c), c.Param("id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStaffNotFound):
			response.NotFound(c, "Staff account not found")
		case errors.Is(err, service.ErrRoleNotPermitted):
			response.Forbidden(c, "Only SUPER_ADMIN may manage administrative accounts")
		case errors.Is(err, service.ErrInvalidDateFormat):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c)
		}
		return
	}

	response.Success(c, staff)
}

// ResetPassword resets another account's password and mails the owner
// POST /api/v1/staff-accounts/:id/reset-password
func (h *StaffHandler) ResetPassword(c *gin.Context) {
	err := h.staffService.AdminResetPassword(c.Request.Context(), actorRole(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStaffNotFound):
			response.NotFound(c, "Staff account not found")
		case errors.Is(err, service.ErrRoleNotPermitted):
			response.Forbidden(c, "Only SUPER_ADMIN may manage administrative accounts")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Success(c, gin.H{"message": "Password reset mail sent"})
}

// Restore undoes a soft delete
// POST /api/v1/staff-accounts/:id/restore
func (h *StaffHandler) Restore(c *gin.Context) {
	staff, err := h.staffService.Restore(c.Request.Context(), actorRole(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStaffNotFound):
			response.NotFound(c, "Staff account not found")
		case errors.Is(err, service.ErrNotDeleted):
			response.BadRequest(c, "Account is not deleted")
		case errors.Is(err, service.ErrRoleNotPermitted):
			response.Forbidden(c, "Only SUPER_ADMIN may manage administrative accounts")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Success(c, staff)
}

// Remove soft-deletes a staff account
// DELETE /api/v1/staff-accounts/:id
func (h *StaffHandler) Remove(c *gin.Context) {
	err := h.staffService.Remove(c.Request.Context(), actorRole(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStaffNotFound):
			response.NotFound(c, "Staff account not found")
		case errors.Is(err, service.ErrRoleNotPermitted):
			response.Forbidden(c, "Only SUPER_ADMIN may manage administrative accounts")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Success(c, gin.H{"message": "Staff account removed"})
}
