// Package cache implements the server-side entities layered on the shared
// key-value store: sessions, the token blacklist, and the request rate
// limiter. All entries are JSON blobs with a TTL; the cache is authoritative
// for validity, so a missing key always means "gone", never an error.
package cache

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/medicalink/staff-backend/internal/domain"
	"github.com/medicalink/staff-backend/pkg/redis"
)

// Session is the server-side record proving a login is still valid,
// independent of token possession. Presence in the cache is authoritative:
// a valid JWT whose session is absent must be rejected.
type Session struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastAccessedAt time.Time   `json:"lastAccessedAt"`
	ExpiresAt      time.Time   `json:"expiresAt"`
	IsActive       bool        `json:"isActive"`
}

// Expired reports whether the session passed its absolute lifetime.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionStore persists sessions under "{prefix}session:{id}" with a TTL
// mirroring the refresh-token lifetime.
type SessionStore struct {
	client        *redis.Client
	keyPrefix     string
	refreshWindow time.Duration
	log           *zap.Logger
}

// NewSessionStore creates a session store. refreshWindow bounds the absolute
// lifetime of every session it creates.
func NewSessionStore(client *redis.Client, keyPrefix string, refreshWindow time.Duration, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{
		client:        client,
		keyPrefix:     keyPrefix,
		refreshWindow: refreshWindow,
		log:           log,
	}
}

func (s *SessionStore) key(id string) string {
	return s.keyPrefix + "session:" + id
}

// Create generates a fresh session for the given identity and writes it with
// TTL equal to the refresh window.
func (s *SessionStore) Create(ctx context.Context, userID, email string, role domain.Role) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:             newSessionID(now),
		UserID:         userID,
		Email:          email,
		Role:           role,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(s.refreshWindow),
		IsActive:       true,
	}

	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session, or nil if it is missing or its stored blob cannot
// be decoded. A corrupt entry is treated as absent, not as a fault.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	sess := &Session{}
	if err := json.Unmarshal([]byte(data), sess); err != nil {
		s.log.Warn("discarding corrupt session entry",
			zap.String("session_id", id),
			zap.Error(err),
		)
		return nil, nil
	}
	return sess, nil
}

// Touch updates lastAccessedAt and rewrites the entry with its remaining
// lifetime. The TTL is never extended: total session lifetime stays bounded
// by the refresh window set at creation, this is not a sliding idle timeout.
func (s *SessionStore) Touch(ctx context.Context, id string) (bool, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}

	now := time.Now()
	if sess.Expired(now) {
		_ = s.Delete(ctx, id)
		return false, nil
	}

	sess.LastAccessedAt = now
	if err := s.write(ctx, sess); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Del(ctx, s.key(id))
	return err
}

// DeleteAllForUser removes every session belonging to userID and returns how
// many were deleted. It scans the whole session namespace and filters, so
// cost is O(total active sessions in the system), not O(sessions for the
// user). Acceptable while session counts stay small; a secondary per-user
// index would be the scaling fix.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	keys, err := s.client.ScanKeys(ctx, s.keyPrefix+"session:*")
	if err != nil {
		return 0, err
	}

	var matched []string
	for _, key := range keys {
		data, err := s.client.Get(ctx, key)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and fetch
			}
			return 0, err
		}

		sess := &Session{}
		if err := json.Unmarshal([]byte(data), sess); err != nil {
			continue
		}
		if sess.UserID == userID {
			matched = append(matched, key)
		}
	}

	if len(matched) == 0 {
		return 0, nil
	}

	n, err := s.client.Del(ctx, matched...)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// write serializes the session and stores it with TTL equal to the time left
// until its absolute expiry.
func (s *SessionStore) write(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	return s.client.SetWithTTL(ctx, s.key(sess.ID), string(data), ttl)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newSessionID builds an opaque identifier from the creation time and nine
// random base36 characters, e.g. "1735689600000-a1b2c3d4e".
func newSessionID(now time.Time) string {
	suffix := make([]byte, 9)
	max := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process is in a bad state;
			// fall back to a time-derived character rather than panic.
			suffix[i] = base36[int(now.UnixNano()+int64(i))%len(base36)]
			continue
		}
		suffix[i] = base36[n.Int64()]
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
