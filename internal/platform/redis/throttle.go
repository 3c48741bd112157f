// Copyright (c) 2026 Identra. All rights reserved.

package redis

import (
	stdctx "context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identra/identra/internal/platform/constants"
)

// LoginThrottle is a fixed-window counter that bounds credential attempts
// per client across all API instances.
//
// # Fail Open
//
// If Redis is unreachable the throttle allows the request: losing brute-force
// protection briefly is preferable to locking every user out.
type LoginThrottle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLoginThrottle creates a throttle with the platform default limits.
func NewLoginThrottle(client *redis.Client) *LoginThrottle {
	return &LoginThrottle{
		client: client,
		limit:  constants.LoginThrottleLimit,
		window: constants.LoginThrottleWindow,
	}
}

// Allow records one attempt for the given client key and reports whether it
// is still within the window limit. retryAfter is meaningful only when the
// attempt is rejected.
func (throttle *LoginThrottle) Allow(context stdctx.Context, clientKey string) (allowed bool, retryAfter time.Duration, err error) {
	key := constants.RedisPrefixLoginThrottle + clientKey

	count, err := throttle.client.Incr(context, key).Result()
	if err != nil {
		return true, 0, fmt.Errorf("redis: throttle incr failed: %w", err)
	}

	// First attempt in a fresh window starts the expiry clock.
	if count == 1 {
		if err := throttle.client.Expire(context, key, throttle.window).Err(); err != nil {
			return true, 0, fmt.Errorf("redis: throttle expire failed: %w", err)
		}
	}

	if count > int64(throttle.limit) {
		ttl, err := throttle.client.TTL(context, key).Result()
		if err != nil || ttl < 0 {
			ttl = throttle.window
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
