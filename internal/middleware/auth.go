// Package middleware implements the request guards: rate limiting runs
// before authentication, authentication before role checks.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicalink/staff-backend/internal/domain"
	"github.com/medicalink/staff-backend/internal/service"
	"github.com/medicalink/staff-backend/internal/token"
	"github.com/medicalink/staff-backend/pkg/response"
)

// Context keys set by Authenticate for downstream handlers.
const (
	CtxUserID    = "user_id"
	CtxEmail     = "email"
	CtxRole      = "role"
	CtxSessionID = "session_id"
	CtxToken     = "access_token"
)

// Authenticate validates the bearer token and its session. The cache check
// runs before signature verification so a revoked token is rejected even if
// it would otherwise verify. Any infrastructure failure rejects the request:
// authentication fails closed.
func Authenticate(auth service.AuthService, tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearer(c)
		if tokenStr == "" {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token not found")
			return
		}

		revoked, err := auth.IsTokenRevoked(c.Request.Context(), tokenStr)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token has been invalidated")
			return
		}
		if revoked {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token has been invalidated")
			return
		}

		claims, err := tokens.VerifyAccess(tokenStr)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		sess, err := auth.GetSession(c.Request.Context(), claims.SessionID)
		if err != nil || sess == nil {
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Session not found or expired")
			return
		}
		if sess.Expired(time.Now()) {
			_ = auth.EndSession(c.Request.Context(), claims.SessionID)
			response.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Session has expired")
			return
		}

		c.Set(CtxUserID, claims.ID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxSessionID, claims.SessionID)
		c.Set(CtxToken, tokenStr)
		c.Next()
	}
}

// TokenVerifier is the slice of the token manager the guard needs.
type TokenVerifier interface {
	VerifyAccess(tokenStr string) (*token.AccessClaims, error)
}

// RequireRoles allows the request through only when the authenticated role is
// in the allow list. Must run after Authenticate.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		val, ok := c.Get(CtxRole)
		if !ok {
			response.AbortError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		role, ok := val.(domain.Role)
		if !ok || !allowed[role] {
			response.AbortError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// extractBearer pulls the token from the Authorization header. Only the
// "Bearer <token>" form is accepted.
func extractBearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
