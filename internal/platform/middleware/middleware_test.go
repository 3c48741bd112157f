// Copyright (c) 2026 Identra. All rights reserved.

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/platform/ctxutil"
	"github.com/identra/identra/internal/platform/middleware"
	"github.com/identra/identra/internal/platform/sec"
)

type staticVerifier struct {
	claims *sec.AuthClaims
	err    error
}

func (v *staticVerifier) VerifyToken(tokenStr string) (*sec.AuthClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

type staticLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (l *staticLimiter) Allow(ctx context.Context, clientKey string) (bool, time.Duration, error) {
	return l.allowed, l.retryAfter, l.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

func userClaims(subject string, roles ...string) *sec.AuthClaims {
	return &sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Roles:            roles,
	}
}

/*
TestAuthenticate_AnonymousPassthrough lets a request without a header
through unauthenticated.
*/
func TestAuthenticate_AnonymousPassthrough(t *testing.T) {
	var seen *sec.AuthClaims
	handler := middleware.Authenticate(&staticVerifier{})(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			seen = ctxutil.GetAuthUser(request.Context())
			writer.WriteHeader(http.StatusOK)
		}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Nil(t, seen)
}

/*
TestAuthenticate_ValidBearer injects the verified claims into context.
*/
func TestAuthenticate_ValidBearer(t *testing.T) {
	var seen *sec.AuthClaims
	verifier := &staticVerifier{claims: userClaims("auth-1", "user")}
	handler := middleware.Authenticate(verifier)(http.HandlerFunc(
		func(writer http.ResponseWriter, request *http.Request) {
			seen = ctxutil.GetAuthUser(request.Context())
			writer.WriteHeader(http.StatusOK)
		}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer some-token")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "auth-1", seen.Subject)
}

/*
TestAuthenticate_MalformedHeader rejects non-Bearer schemes.
*/
func TestAuthenticate_MalformedHeader(t *testing.T) {
	handler := middleware.Authenticate(&staticVerifier{})(okHandler())

	for _, header := range []string{"Basic abc", "Bearer", "Bearer a b"} {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", header)

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code, header)
	}
}

/*
TestRequireAuth blocks anonymous requests with a 401.
*/
func TestRequireAuth(t *testing.T) {
	handler := middleware.RequireAuth(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), userClaims("auth-1", "user")))

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestRequireRole distinguishes 401 (anonymous) from 403 (missing role).
*/
func TestRequireRole(t *testing.T) {
	handler := middleware.RequireRole(sec.RoleAdmin)(okHandler())

	// Anonymous.
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Authenticated without the role.
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), userClaims("auth-1", "user")))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Admin.
	request = httptest.NewRequest(http.MethodGet, "/", nil)
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), userClaims("auth-2", "user", "admin")))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestThrottleLogins_Blocks returns 429 with a retry hint when the limiter
says no.
*/
func TestThrottleLogins_Blocks(t *testing.T) {
	limiter := &staticLimiter{allowed: false, retryAfter: 42 * time.Second}
	handler := middleware.ThrottleLogins(limiter)(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "RATE_LIMITED")
}

/*
TestThrottleLogins_FailsOpen lets the request through when the limiter
backend is unreachable.
*/
func TestThrottleLogins_FailsOpen(t *testing.T) {
	limiter := &staticLimiter{allowed: true, err: context.DeadlineExceeded}
	handler := middleware.ThrottleLogins(limiter)(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/login", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
}
