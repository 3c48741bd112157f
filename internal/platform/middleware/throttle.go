// Copyright (c) 2026 Identra. All rights reserved.

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/ctxutil"
	"github.com/identra/identra/internal/platform/respond"
)

// AttemptLimiter is the contract for the distributed login throttle.
type AttemptLimiter interface {
	Allow(ctx context.Context, clientKey string) (allowed bool, retryAfter time.Duration, err error)
}

// ThrottleLogins bounds credential attempts per client IP on the routes it
// wraps. It is mounted on the authentication endpoints only; the global
// token-bucket [RateLimit] still applies on top.
func ThrottleLogins(limiter AttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			allowed, retryAfter, err := limiter.Allow(request.Context(), RealIP(request))
			if err != nil {
				// Fail open but leave a trace for operators.
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
					"login_throttle_unavailable")
			}

			if !allowed {
				respond.Error(writer, request, apperr.RateLimited(int(retryAfter.Seconds())))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
