package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicalink/staff-backend/internal/domain"
	"github.com/medicalink/staff-backend/internal/dto"
	"github.com/medicalink/staff-backend/internal/mailer"
	"github.com/medicalink/staff-backend/internal/repository"
	"github.com/medicalink/staff-backend/pkg/telemetry"
)

var (
	ErrEmailTaken        = errors.New("email already in use")
	ErrInvalidRole       = errors.New("invalid role")
	ErrRoleNotPermitted  = errors.New("not permitted to manage this role")
	ErrWrongPassword     = errors.New("old password is incorrect")
	ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrNotDeleted        = errors.New("account is not deleted")
)

// recentWindow bounds the "recently created" bucket of Statistics.
const recentWindow = 30 * 24 * time.Hour

// StaffService defines staff-account management operations. Mutations that
// need an authorization decision take the acting account's role.
type StaffService interface {
	Create(ctx context.Context, actorRole domain.Role, req *dto.CreateStaffRequest) (*domain.StaffAccount, error)
	Get(ctx context.Context, id string) (*domain.StaffAccount, error)
	List(ctx context.Context, query *dto.ListStaffQuery) ([]*domain.StaffAccount, *dto.PaginationMeta, error)
	Update(ctx context.Context, actorRole domain.Role, id string, req *dto.UpdateStaffRequest) (*domain.StaffAccount, error)
	Remove(ctx context.Context, actorRole domain.Role, id string) error
	// Restore undoes a soft delete; restoring an account that was never
	// deleted is an error
	Restore(ctx context.Context, actorRole domain.Role, id string) (*domain.StaffAccount, error)
	// Statistics summarizes active accounts by role and recency
	Statistics(ctx context.Context) (*dto.StaffStatistics, error)
	// ChangePassword verifies the old password, stores the new one and ends
	// every session of the account so other devices must sign in again
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	// ResetPassword generates a temporary password, stores it, ends all
	// sessions and mails the temporary password to the account
	ResetPassword(ctx context.Context, email string) error
	// AdminResetPassword is ResetPassword by account id, initiated by an
	// administrator; unlike ResetPassword it errors on unknown accounts
	AdminResetPassword(ctx context.Context, actorRole domain.Role, id string) error
}

// staffService implements StaffService
type staffService struct {
	staffRepo  repository.StaffRepository
	auth       AuthService
	mail       mailer.Mailer
	bcryptCost int
	log        *zap.Logger
}

// NewStaffService creates a new StaffService
func NewStaffService(
	staffRepo repository.StaffRepository,
	auth AuthService,
	mail mailer.Mailer,
	bcryptCost int,
	log *zap.Logger,
) StaffService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &staffService{
		staffRepo:  staffRepo,
		auth:       auth,
		mail:       mail,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// Create registers a new staff account. Administrative roles can only be
// granted by a SUPER_ADMIN.
func (s *staffService) Create(ctx context.Context, actorRole domain.Role, req *dto.CreateStaffRequest) (*domain.StaffAccount, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.create")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	role := domain.Role(req.Role)
	if !role.Valid() {
		span.SetStatus(codes.Error, "invalid role")
		return nil, ErrInvalidRole
	}
	if (role == domain.RoleAdmin || role == domain.RoleSuperAdmin) && actorRole != domain.RoleSuperAdmin {
		span.SetStatus(codes.Error, "role not permitted")
		return nil, ErrRoleNotPermitted
	}

	exists, err := s.staffRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "email taken")
		return nil, ErrEmailTaken
	}

	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		span.SetStatus(codes.Error, "bad date")
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := time.Now()
	staff := &domain.StaffAccount{
		ID:           uuid.New().String(),
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Gender:       domain.Gender(req.Gender),
		DateOfBirth:  dob,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.staffRepo.Create(ctx, staff); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", staff.ID))
	span.SetStatus(codes.Ok, "")
	return staff.Sanitized(), nil
}

// Get retrieves a staff account by ID
func (s *staffService) Get(ctx context.Context, id string) (*domain.StaffAccount, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.get")
	defer span.End()

	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrStaffNotFound
	}

	span.SetStatus(codes.Ok, "")
	return staff.Sanitized(), nil
}

// List retrieves staff accounts matching the query
func (s *staffService) List(ctx context.Context, query *dto.ListStaffQuery) ([]*domain.StaffAccount, *dto.PaginationMeta, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.list")
	defer span.End()

	filter := repository.ListFilter{
		Role:   domain.Role(query.Role),
		Gender: domain.Gender(query.Gender),
		Search: query.Search,
		Page:   query.Page,
		Limit:  query.Limit,
	}
	if query.Role != "" && !filter.Role.Valid() {
		span.SetStatus(codes.Error, "invalid role")
		return nil, nil, ErrInvalidRole
	}

	staff, total, err := s.staffRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	for i, st := range staff {
		staff[i] = st.Sanitized()
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	span.SetStatus(codes.Ok, "")
	return staff, &dto.PaginationMeta{
		Page:       query.Page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Update changes profile fields of a staff account
func (s *staffService) Update(ctx context.Context, actorRole domain.Role, id string, req *dto.UpdateStaffRequest) (*domain.StaffAccount, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.update")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrStaffNotFound
	}
	if staff.IsAdmin() && actorRole != domain.RoleSuperAdmin {
		span.SetStatus(codes.Error, "role not permitted")
		return nil, ErrRoleNotPermitted
	}

	if req.FullName != "" {
		staff.FullName = req.FullName
	}
	if req.Gender != "" {
		staff.Gender = domain.Gender(req.Gender)
	}
	if req.DateOfBirth != "" {
		dob, err := parseDate(req.DateOfBirth)
		if err != nil {
			span.SetStatus(codes.Error, "bad date")
			return nil, err
		}
		staff.DateOfBirth = dob
	}

	if err := s.staffRepo.Update(ctx, staff); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return staff.Sanitized(), nil
}

// Remove soft-deletes a staff account and ends its sessions
func (s *staffService) Remove(ctx context.Context, actorRole domain.Role, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.remove")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "not found")
		return ErrStaffNotFound
	}
	if staff.IsAdmin() && actorRole != domain.RoleSuperAdmin {
		span.SetStatus(codes.Error, "role not permitted")
		return ErrRoleNotPermitted
	}

	if err := s.staffRepo.SoftDelete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := s.auth.EndSessions(ctx, id); err != nil {
		s.log.Warn("failed to end sessions of removed account",
			zap.String("user_id", id),
			zap.Error(err),
		)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Restore undoes a soft delete. The lookup deliberately includes deleted
// rows; the same SUPER_ADMIN rule applies as for removing the account.
func (s *staffService) Restore(ctx context.Context, actorRole domain.Role, id string) (*domain.StaffAccount, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.restore")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	staff, err := s.staffRepo.GetByIDIncludeDeleted(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrStaffNotFound
	}
	if !staff.IsDeleted() {
		span.SetStatus(codes.Error, "not deleted")
		return nil, ErrNotDeleted
	}
	if staff.IsAdmin() && actorRole != domain.RoleSuperAdmin {
		span.SetStatus(codes.Error, "role not permitted")
		return nil, ErrRoleNotPermitted
	}

	if err := s.staffRepo.Restore(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	staff.DeletedAt = nil
	span.SetStatus(codes.Ok, "")
	return staff.Sanitized(), nil
}

// Statistics counts active accounts per role plus those created in the
// last 30 days.
func (s *staffService) Statistics(ctx context.Context) (*dto.StaffStatistics, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.statistics")
	defer span.End()

	stats := &dto.StaffStatistics{
		ByRole: make(map[domain.Role]int64),
	}
	for _, role := range []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleDoctor} {
		n, err := s.staffRepo.CountByRole(ctx, role)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		stats.ByRole[role] = n
		stats.Total += n
	}
	stats.Active = stats.Total

	recent, err := s.staffRepo.CountCreatedSince(ctx, time.Now().Add(-recentWindow))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	stats.RecentlyCreated = recent

	span.SetStatus(codes.Ok, "")
	return stats, nil
}

// ChangePassword verifies the old password and stores the new one
func (s *staffService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.change_password")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	staff, err := s.staffRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "not found")
		return ErrStaffNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.OldPassword)); err != nil {
		span.SetStatus(codes.Error, "wrong password")
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.staffRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := s.auth.EndSessions(ctx, userID); err != nil {
		s.log.Warn("failed to end sessions after password change",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ResetPassword issues a temporary password and mails it to the account.
// An unknown email returns success so the endpoint cannot be used to probe
// which addresses exist.
func (s *staffService) ResetPassword(ctx context.Context, email string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.reset_password")
	defer span.End()

	staff, err := s.staffRepo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if staff == nil {
		span.SetStatus(codes.Ok, "unknown email")
		return nil
	}

	span.SetAttributes(attribute.String("user_id", staff.ID))

	if err := s.resetAndNotify(ctx, staff); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// resetAndNotify stores a fresh temporary password, ends the account's
// sessions and mails the temporary password to the owner.
func (s *staffService) resetAndNotify(ctx context.Context, staff *domain.StaffAccount) error {
	temp, err := tempPassword()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(temp), s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.staffRepo.UpdatePassword(ctx, staff.ID, string(hash)); err != nil {
		return err
	}

	if _, err := s.auth.EndSessions(ctx, staff.ID); err != nil {
		s.log.Warn("failed to end sessions after password reset",
			zap.String("user_id", staff.ID),
			zap.Error(err),
		)
	}

	return s.mail.SendPasswordReset(staff.Email, staff.FullName, temp)
}

// AdminResetPassword resets another account's password on an administrator's
// behalf. The same SUPER_ADMIN rule applies as for other mutations of
// administrative accounts.
func (s *staffService) AdminResetPassword(ctx context.Context, actorRole domain.Role, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.staff.admin_reset_password")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", id))

	staff, err := s.staffRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "not found")
		return ErrStaffNotFound
	}
	if staff.IsAdmin() && actorRole != domain.RoleSuperAdmin {
		span.SetStatus(codes.Error, "role not permitted")
		return ErrRoleNotPermitted
	}

	if err := s.resetAndNotify(ctx, staff); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	return &t, nil
}

// tempPassword generates a random password for resets.
func tempPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
