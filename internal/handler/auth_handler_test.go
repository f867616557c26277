package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicalink/staff-backend/internal/cache"
	"github.com/medicalink/staff-backend/internal/domain"
	"github.com/medicalink/staff-backend/internal/mailer"
	"github.com/medicalink/staff-backend/internal/middleware"
	"github.com/medicalink/staff-backend/internal/repository"
	"github.com/medicalink/staff-backend/internal/service"
	"github.com/medicalink/staff-backend/internal/token"
	"github.com/medicalink/staff-backend/pkg/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router *gin.Engine
	repo   *repository.MemoryStaffRepository
}

// newAPIFixture wires the whole auth surface against in-memory backends,
// mirroring the production route layout.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { client.Close() })

	repo := repository.NewMemoryStaffRepository()
	store := cache.NewSessionStore(client, "test:", 7*24*time.Hour, nil)
	blacklist := cache.NewBlacklist(client, "test:")
	tokens := token.NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	auth := service.NewAuthService(repo, store, blacklist, tokens, nil)
	staff := service.NewStaffService(repo, auth, mailer.NewNoopMailer(nil), bcrypt.MinCost, nil)

	authHandler := NewAuthHandler(auth, staff)
	staffHandler := NewStaffHandler(staff)

	authn := middleware.Authenticate(auth, tokens)

	router := gin.New()
	v1 := router.Group("/api/v1")
	a := v1.Group("/auth")
	a.POST("/login", authHandler.Login)
	a.POST("/refresh", authHandler.Refresh)
	a.POST("/reset-password", authHandler.ResetPassword)
	a.POST("/logout", authn, authHandler.Logout)
	a.POST("/logout-all", authn, authHandler.LogoutAll)
	a.POST("/change-password", authn, authHandler.ChangePassword)
	a.GET("/profile", authn, authHandler.Profile)

	sa := v1.Group("/staff-accounts")
	sa.Use(authn, middleware.RequireRoles(domain.RoleSuperAdmin, domain.RoleAdmin))
	sa.POST("", staffHandler.Create)
	sa.GET("", staffHandler.List)
	sa.GET("/statistics", staffHandler.Statistics)
	sa.GET("/:id", staffHandler.Get)
	sa.POST("/:id/restore", staffHandler.Restore)
	sa.DELETE("/:id", staffHandler.Remove)

	return &apiFixture{router: router, repo: repo}
}

func (f *apiFixture) seed(t *testing.T, email string, role domain.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, f.repo.Create(context.Background(), &domain.StaffAccount{
		ID:           uuid.New().String(),
		FullName:     "Seeded Staff",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func (f *apiFixture) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) login(t *testing.T, email string) (accessToken, refreshToken string) {
	t.Helper()
	w := f.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data struct {
			AccessToken  string `json:"token"`
			RefreshToken string `json:"refreshToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.AccessToken, body.Data.RefreshToken
}

func TestLoginEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)

	w := f.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "doc@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken  string          `json:"token"`
			RefreshToken string          `json:"refreshToken"`
			TokenExpires int64           `json:"tokenExpires"`
			User         json.RawMessage `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.NotEmpty(t, body.Data.RefreshToken)
	assert.Greater(t, body.Data.TokenExpires, time.Now().UnixMilli())
	assert.NotContains(t, string(body.Data.User), "passwordHash")

	// the access token field is named "token" on the wire
	var raw struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw.Data, "token")
	assert.NotContains(t, raw.Data, "accessToken")
	assert.Contains(t, raw.Data, "user")
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)

	w := f.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "doc@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	// malformed body
	w = f.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)
	access, _ := f.login(t, "doc@example.com")

	w := f.do(http.MethodGet, "/api/v1/auth/profile", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "doc@example.com")

	// the profile carries the session the token is bound to
	var body struct {
		Data struct {
			Email     string `json:"email"`
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "doc@example.com", body.Data.Email)
	assert.NotEmpty(t, body.Data.SessionID)

	w = f.do(http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)
	_, refresh := f.login(t, "doc@example.com")

	w := f.do(http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": refresh})
	assert.Equal(t, http.StatusOK, w.Code)

	// refresh returns only the renewed pair, not the user
	var raw struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw.Data, "token")
	assert.Contains(t, raw.Data, "refreshToken")
	assert.NotContains(t, raw.Data, "user")

	w = f.do(http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid refresh token")
}

func TestLogoutEndpointInvalidatesToken(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)
	access, _ := f.login(t, "doc@example.com")

	w := f.do(http.MethodPost, "/api/v1/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// the same token is now rejected
	w = f.do(http.MethodGet, "/api/v1/auth/profile", access, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutAllEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)
	first, _ := f.login(t, "doc@example.com")
	second, _ := f.login(t, "doc@example.com")

	w := f.do(http.MethodPost, "/api/v1/auth/logout-all", first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessionsEnded":2`)

	// both sessions are gone
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/auth/profile", second, nil).Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)
	access, _ := f.login(t, "doc@example.com")

	w := f.do(http.MethodPost, "/api/v1/auth/change-password", access, gin.H{
		"oldPassword": "wrong", "newPassword": "newsecret99",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Old password is incorrect")

	w = f.do(http.MethodPost, "/api/v1/auth/change-password", access, gin.H{
		"oldPassword": "secret123", "newPassword": "newsecret99",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// new credentials work
	w = f.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "doc@example.com", "password": "newsecret99",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetPasswordEndpointIsSilent(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/v1/auth/reset-password", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStaffEndpointsRequireAdminRole(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "doc@example.com", domain.RoleDoctor)
	f.seed(t, "admin@example.com", domain.RoleAdmin)

	docToken, _ := f.login(t, "doc@example.com")
	adminToken, _ := f.login(t, "admin@example.com")

	// doctors cannot touch staff management
	w := f.do(http.MethodGet, "/api/v1/staff-accounts", docToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/v1/staff-accounts", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStaffCreateEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "admin@example.com", domain.RoleAdmin)
	adminToken, _ := f.login(t, "admin@example.com")

	w := f.do(http.MethodPost, "/api/v1/staff-accounts", adminToken, gin.H{
		"fullName": "Dr. New", "email": "new@example.com", "password": "secret123", "role": "DOCTOR",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// duplicate email conflicts
	w = f.do(http.MethodPost, "/api/v1/staff-accounts", adminToken, gin.H{
		"fullName": "Dr. New", "email": "new@example.com", "password": "secret123", "role": "DOCTOR",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// ADMIN cannot mint another ADMIN
	w = f.do(http.MethodPost, "/api/v1/staff-accounts", adminToken, gin.H{
		"fullName": "Eve", "email": "eve@example.com", "password": "secret123", "role": "ADMIN",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaffRemoveEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "admin@example.com", domain.RoleAdmin)
	adminToken, _ := f.login(t, "admin@example.com")

	w := f.do(http.MethodPost, "/api/v1/staff-accounts", adminToken, gin.H{
		"fullName": "Dr. Temp", "email": "temp@example.com", "password": "secret123", "role": "DOCTOR",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/staff-accounts/%s", created.Data.ID)
	assert.Equal(t, http.StatusOK, f.do(http.MethodDelete, path, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, path, adminToken, nil).Code)
}

func TestStaffRestoreEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "admin@example.com", domain.RoleAdmin)
	adminToken, _ := f.login(t, "admin@example.com")

	w := f.do(http.MethodPost, "/api/v1/staff-accounts", adminToken, gin.H{
		"fullName": "Dr. Gone", "email": "gone@example.com", "password": "secret123", "role": "DOCTOR",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/staff-accounts/%s", created.Data.ID)
	restorePath := path + "/restore"

	// restoring a live account is a bad request
	w = f.do(http.MethodPost, restorePath, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Account is not deleted")

	require.Equal(t, http.StatusOK, f.do(http.MethodDelete, path, adminToken, nil).Code)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, path, adminToken, nil).Code)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, restorePath, adminToken, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, path, adminToken, nil).Code)

	// unknown ids are not found
	w = f.do(http.MethodPost, "/api/v1/staff-accounts/no-such-id/restore", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStaffStatisticsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "admin@example.com", domain.RoleAdmin)
	f.seed(t, "doc1@example.com", domain.RoleDoctor)
	f.seed(t, "doc2@example.com", domain.RoleDoctor)
	adminToken, _ := f.login(t, "admin@example.com")

	w := f.do(http.MethodGet, "/api/v1/staff-accounts/statistics", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data struct {
			Total           int64            `json:"total"`
			ByRole          map[string]int64 `json:"byRole"`
			RecentlyCreated int64            `json:"recentlyCreated"`
			Active          int64            `json:"active"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Data.Total)
	assert.Equal(t, int64(2), body.Data.ByRole["DOCTOR"])
	assert.Equal(t, int64(1), body.Data.ByRole["ADMIN"])
	assert.Equal(t, int64(0), body.Data.ByRole["SUPER_ADMIN"])
	assert.Equal(t, int64(3), body.Data.RecentlyCreated)
	assert.Equal(t, body.Data.Total, body.Data.Active)
}
