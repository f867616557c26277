package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/medicalink/staff-backend/pkg/redis"
)

// RateLimiter is a fixed-window counter keyed per caller identity under
// "{prefix}ratelimit:{identifier}". Windows are aligned to multiples of the
// window size, so every caller sharing a window size rolls over at the same
// instant. The counter is read-modify-write rather than atomic INCR:
// concurrent requests may each observe the same count and both pass, slightly
// undercounting. The limiter protects against sustained abuse, not exact
// admission control, so the race is an accepted trade for keeping the entry a
// self-describing JSON blob.
type RateLimiter struct {
	client    *redis.Client
	keyPrefix string
	log       *zap.Logger
}

type rateWindow struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"` // unix millis, aligned down to WindowSize
	WindowSize  int64 `json:"windowSize"`  // millis
}

func (w *rateWindow) expired(now time.Time) bool {
	return now.UnixMilli() >= w.WindowStart+w.WindowSize
}

func NewRateLimiter(client *redis.Client, keyPrefix string, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{client: client, keyPrefix: keyPrefix, log: log}
}

func (r *RateLimiter) key(identifier string) string {
	return r.keyPrefix + "ratelimit:" + identifier
}

// Allow counts one request against the identifier's current window and
// reports whether it is within limit. The first request of a window starts a
// fresh counter with TTL equal to the window length.
//
// When the cache itself is unreachable the limiter fails open: blocking all
// traffic because the counter store is down would turn a cache outage into a
// full outage. The failure is logged and the request admitted.
func (r *RateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	key := r.key(identifier)
	now := time.Now()

	data, err := r.client.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// fresh window
		r.start(ctx, key, now, window)
		return true, nil
	case err != nil:
		r.log.Warn("rate limiter unavailable, admitting request",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return true, nil
	}

	win := rateWindow{}
	if err := json.Unmarshal([]byte(data), &win); err != nil || win.expired(now) {
		// corrupt or stale entry: restart the window
		r.start(ctx, key, now, window)
		return true, nil
	}

	if win.Count >= limit {
		return false, nil
	}

	win.Count++
	ttl := time.Until(time.UnixMilli(win.WindowStart + win.WindowSize))
	if ttl <= 0 {
		r.start(ctx, key, now, window)
		return true, nil
	}
	if err := r.write(ctx, key, win, ttl); err != nil {
		r.log.Warn("rate limiter unavailable, admitting request",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
	}
	return true, nil
}

// start opens a window aligned down to the window size and counts the current
// request. Write failures are logged and swallowed: the request was admitted.
func (r *RateLimiter) start(ctx context.Context, key string, now time.Time, window time.Duration) {
	size := window.Milliseconds()
	win := rateWindow{
		Count:       1,
		WindowStart: now.UnixMilli() / size * size,
		WindowSize:  size,
	}
	if err := r.write(ctx, key, win, window); err != nil {
		r.log.Warn("rate limiter unavailable, admitting request", zap.Error(err))
	}
}

func (r *RateLimiter) write(ctx context.Context, key string, win rateWindow, ttl time.Duration) error {
	data, err := json.Marshal(win)
	if err != nil {
		return err
	}
	return r.client.SetWithTTL(ctx, key, string(data), ttl)
}
