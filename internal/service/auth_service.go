package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicalink/staff-backend/internal/cache"
	"github.com/medicalink/staff-backend/internal/dto"
	"github.com/medicalink/staff-backend/internal/repository"
	"github.com/medicalink/staff-backend/internal/token"
	"github.com/medicalink/staff-backend/pkg/telemetry"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrStaffNotFound       = errors.New("staff account not found")
)

// AuthService defines the authentication operations
type AuthService interface {
	// Login verifies credentials, opens a session and issues a token pair
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	// Refresh exchanges a valid refresh token for a fresh token pair
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	// Logout ends the session and revokes the presented access token
	Logout(ctx context.Context, sessionID, accessToken string) error
	// LogoutAll ends every session of the user and returns how many were ended
	LogoutAll(ctx context.Context, userID string) (int, error)
	// IsTokenRevoked reports whether an access token was blacklisted
	IsTokenRevoked(ctx context.Context, accessToken string) (bool, error)
	// RevokeToken blacklists an access token until its natural expiry
	RevokeToken(ctx context.Context, accessToken, reason string) error
	// GetSession returns the session record, nil when absent
	GetSession(ctx context.Context, sessionID string) (*cache.Session, error)
	// EndSession deletes one session without touching tokens
	EndSession(ctx context.Context, sessionID string) error
	// EndSessions ends all sessions for a user without touching tokens
	EndSessions(ctx context.Context, userID string) (int, error)
}

// authService implements AuthService
type authService struct {
	staffRepo repository.StaffRepository
	sessions  *cache.SessionStore
	blacklist *cache.Blacklist
	tokens    *token.Manager
	log       *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	staffRepo repository.StaffRepository,
	sessions *cache.SessionStore,
	blacklist *cache.Blacklist,
	tokens *token.Manager,
	log *zap.Logger,
) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		staffRepo: staffRepo,
		sessions:  sessions,
		blacklist: blacklist,
		tokens:    tokens,
		log:       log,
	}
}

// Login verifies credentials, opens a session and issues a token pair
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()

	span.SetAttributes(attribute.String("email", req.Email))

	staff, err := s.staffRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if staff == nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, staff.ID, staff.Email, staff.Role)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pair, err := s.tokens.IssuePair(staff.ID, staff.Email, staff.Role, sess.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", staff.ID))
	span.SetStatus(codes.Ok, "")

	return &dto.AuthResponse{
		User:         staff.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenExpires: pair.ExpiresAt,
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. Identity is
// re-read from the session, not the old token, so role changes take effect
// here. Every failure collapses to ErrInvalidRefreshToken: the caller learns
// nothing about whether the token was malformed, expired, or orphaned.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, "refresh token rejected")
		return nil, ErrInvalidRefreshToken
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, ErrInvalidRefreshToken
	}
	if sess == nil || sess.Expired(time.Now()) {
		span.SetStatus(codes.Error, "session gone")
		return nil, ErrInvalidRefreshToken
	}

	span.SetAttributes(attribute.String("user_id", sess.UserID))

	staff, err := s.staffRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, ErrInvalidRefreshToken
	}
	if staff == nil {
		// account removed since login; the session is worthless
		_ = s.sessions.Delete(ctx, sess.ID)
		span.SetStatus(codes.Error, "account gone")
		return nil, ErrInvalidRefreshToken
	}

	if _, err := s.sessions.Touch(ctx, sess.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, ErrInvalidRefreshToken
	}

	pair, err := s.tokens.IssuePair(staff.ID, staff.Email, staff.Role, sess.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, ErrInvalidRefreshToken
	}

	// refresh returns only the renewed pair; clients already hold the user
	span.SetStatus(codes.Ok, "")
	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenExpires: pair.ExpiresAt,
	}, nil
}

// Logout ends the session and blacklists the presented access token so it
// stops working before its expiry. Blacklisting is best-effort: the session
// deletion alone already invalidates the token for guarded routes.
func (s *authService) Logout(ctx context.Context, sessionID, accessToken string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout")
	defer span.End()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if accessToken != "" {
		exp := s.tokens.DecodeExpiry(accessToken)
		if err := s.blacklist.Add(ctx, accessToken, exp, "user logout"); err != nil {
			s.log.Warn("failed to blacklist token on logout", zap.Error(err))
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// LogoutAll ends every session of the user. Outstanding access tokens are not
// blacklisted here; they die when their sessions vanish, since the guard
// requires a live session.
func (s *authService) LogoutAll(ctx context.Context, userID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.logout_all")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	n, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("sessions_ended", n))
	span.SetStatus(codes.Ok, "")
	return n, nil
}

// IsTokenRevoked reports whether an access token was blacklisted
func (s *authService) IsTokenRevoked(ctx context.Context, accessToken string) (bool, error) {
	return s.blacklist.Contains(ctx, accessToken)
}

// RevokeToken blacklists an access token until its natural expiry
func (s *authService) RevokeToken(ctx context.Context, accessToken, reason string) error {
	exp := s.tokens.DecodeExpiry(accessToken)
	return s.blacklist.Add(ctx, accessToken, exp, reason)
}

// GetSession returns the session record, nil when absent
func (s *authService) GetSession(ctx context.Context, sessionID string) (*cache.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// EndSession deletes one session without touching tokens
func (s *authService) EndSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// EndSessions ends all sessions for a user without touching tokens
func (s *authService) EndSessions(ctx context.Context, userID string) (int, error) {
	return s.sessions.DeleteAllForUser(ctx, userID)
}
