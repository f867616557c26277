package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medicalink/staff-backend/pkg/redis"
)

// Blacklist records revoked access tokens until their natural expiry. Entries
// self-evict via TTL, so the set never grows past the number of tokens
// revoked within one access-token lifetime.
type Blacklist struct {
	client    *redis.Client
	keyPrefix string
}

type blacklistEntry struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Reason    string    `json:"reason"`
}

func NewBlacklist(client *redis.Client, keyPrefix string) *Blacklist {
	return &Blacklist{client: client, keyPrefix: keyPrefix}
}

func (b *Blacklist) key(token string) string {
	return b.keyPrefix + "blacklist:" + token
}

// Add revokes a token until expiresAt. A token already past its expiry is a
// successful no-op: it can never verify again, so there is nothing to store.
func (b *Blacklist) Add(ctx context.Context, token string, expiresAt time.Time, reason string) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	entry := blacklistEntry{Token: token, ExpiresAt: expiresAt, Reason: reason}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize blacklist entry: %w", err)
	}

	return b.client.SetWithTTL(ctx, b.key(token), string(data), ttl)
}

// Contains reports whether the token has been revoked. Only key existence
// matters; the stored entry is for operator inspection.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	ok, err := b.client.Exists(ctx, b.key(token))
	if err != nil {
		return false, err
	}
	return ok, nil
}
