package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicalink/staff-backend/internal/cache"
	"github.com/medicalink/staff-backend/pkg/response"
)

// RouteLimit is the budget for one route: at most Limit requests per caller
// per Window.
type RouteLimit struct {
	Limit  int
	Window time.Duration
}

// Default per-route budgets for the auth surface. Password operations get
// the tightest limits since they are the main brute-force target.
var (
	LoginLimit          = RouteLimit{Limit: 5, Window: time.Minute}
	RefreshLimit        = RouteLimit{Limit: 20, Window: time.Minute}
	LogoutLimit         = RouteLimit{Limit: 30, Window: time.Minute}
	LogoutAllLimit      = RouteLimit{Limit: 10, Window: time.Minute}
	ChangePasswordLimit = RouteLimit{Limit: 3, Window: 5 * time.Minute}
	ResetPasswordLimit  = RouteLimit{Limit: 2, Window: 5 * time.Minute}
)

// RateLimit counts requests per client IP per route against the budget.
// Counting happens before authentication so unauthenticated floods are
// also bounded.
func RateLimit(limiter *cache.RateLimiter, limit RouteLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.ClientIP() + ":" + c.FullPath()

		ok, err := limiter.Allow(c.Request.Context(), identifier, limit.Limit, limit.Window)
		if err == nil && !ok {
			response.TooManyRequests(c, fmt.Sprintf(
				"Too many requests. Limit is %d per %s.",
				limit.Limit, limit.Window,
			))
			return
		}
		c.Next()
	}
}
