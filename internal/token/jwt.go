// Package token signs and verifies the JWT pair used by the staff backend.
// Access and refresh tokens use separate HMAC secrets so a leaked refresh
// secret cannot forge access tokens and vice versa.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medicalink/staff-backend/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims is the payload of an access token: the caller's identity plus
// the session it was minted under, so revocation can target the session.
type AccessClaims struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"sessionId"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only the session id. Identity is re-read from the
// session at refresh time, so role changes take effect on the next refresh.
type RefreshClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// Pair is one issued access/refresh token set. ExpiresAt is the access
// token's expiry in unix milliseconds, for clients scheduling refresh.
type Pair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"tokenExpires"`
}

// Manager issues and verifies both token kinds.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// IssuePair signs an access and refresh token for the identity bound to
// sessionID.
func (m *Manager) IssuePair(userID, email string, role domain.Role, sessionID string) (*Pair, error) {
	now := time.Now()
	accessExp := now.Add(m.accessExpiry)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		ID:        userID,
		Email:     email,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}).SignedString(m.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshExpiry)),
		},
	}).SignedString(m.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp.UnixMilli(),
	}, nil
}

// VerifyAccess validates signature and expiry of an access token.
func (m *Manager) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.verify(tokenStr, claims, m.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates signature and expiry of a refresh token.
func (m *Manager) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.verify(tokenStr, claims, m.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) verify(tokenStr string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// DecodeExpiry reads the exp claim without verifying the signature. Used when
// blacklisting a token at logout: the token was already verified by the guard,
// and a malformed token yields a zero time which the blacklist treats as a
// no-op anyway.
func (m *Manager) DecodeExpiry(tokenStr string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
