package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicalink/staff-backend/internal/domain"
)

func newTestManager() *Manager {
	return NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestIssuePairAndVerify(t *testing.T) {
	m := newTestManager()

	pair, err := m.IssuePair("user-1", "doc@example.com", domain.RoleDoctor, "1700000000000-abcdefghi")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	// tokenExpires is unix milliseconds, roughly now + access expiry
	wantExp := time.Now().Add(15 * time.Minute).UnixMilli()
	assert.InDelta(t, wantExp, pair.ExpiresAt, float64(5*time.Second.Milliseconds()))

	access, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.ID)
	assert.Equal(t, "doc@example.com", access.Email)
	assert.Equal(t, domain.RoleDoctor, access.Role)
	assert.Equal(t, "1700000000000-abcdefghi", access.SessionID)

	refresh, err := m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-abcdefghi", refresh.SessionID)
}

func TestVerifyRejectsCrossKind(t *testing.T) {
	m := newTestManager()

	pair, err := m.IssuePair("user-1", "doc@example.com", domain.RoleDoctor, "sess-1")
	require.NoError(t, err)

	// tokens signed with one secret must not verify under the other
	_, err = m.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager("other-access", "other-refresh", 15*time.Minute, 7*24*time.Hour)

	pair, err := other.IssuePair("user-1", "doc@example.com", domain.RoleDoctor, "sess-1")
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	pair, err := m.IssuePair("user-1", "doc@example.com", domain.RoleDoctor, "sess-1")
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = m.VerifyRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager()

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.VerifyAccess(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", tok)
	}
}

func TestDecodeExpiry(t *testing.T) {
	m := newTestManager()

	pair, err := m.IssuePair("user-1", "doc@example.com", domain.RoleDoctor, "sess-1")
	require.NoError(t, err)

	exp := m.DecodeExpiry(pair.AccessToken)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	// malformed input yields zero time rather than an error
	assert.True(t, m.DecodeExpiry("garbage").IsZero())
}
