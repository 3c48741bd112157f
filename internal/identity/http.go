// Copyright (c) 2026 Identra. All rights reserved.

// The handler is a thin mediation layer between the web and the domain
// services. It is strictly responsible for transport concerns (status
// codes, cookies, JSON); every rule lives behind [Service].
package identity

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/constants"
	"github.com/identra/identra/internal/platform/middleware"
	requestutil "github.com/identra/identra/internal/platform/request"
	"github.com/identra/identra/internal/platform/respond"
	"github.com/identra/identra/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
type Handler struct {
	authService   *Service
	loginThrottle func(http.Handler) http.Handler
	secureCookies bool
}

// NewHandler constructs a new [Handler]. The throttle middleware guards
// the credential-bearing endpoints; pass nil to leave them unthrottled.
func NewHandler(service *Service, loginThrottle func(http.Handler) http.Handler, secureCookies bool) *Handler {
	if loginThrottle == nil {
		loginThrottle = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		authService:   service,
		loginThrottle: loginThrottle,
		secureCookies: secureCookies,
	}
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /register        : Creates a new account (identity + profile).
//   - POST /login           : Authenticates and returns a JWT.
//   - POST /refresh         : Rotates the refresh token cookie.
//   - GET  /google          : Starts the Google login flow.
//   - GET  /google/callback : Finishes the Google login flow.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.With(handler.loginThrottle).Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.With(handler.loginThrottle).Get("/google", handler.googleBegin)
	router.Get("/google/callback", handler.googleCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
		r.Delete("/me", handler.deleteAccount)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Lastname string `json:"lastname"`
	Age      *int   `json:"age"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Cookie Helpers

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    value,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expires,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// The state cookie uses Lax, not Strict: the provider redirect is a
// cross-site navigation and a Strict cookie would not be sent with it.
func (handler *Handler) setStateCookie(writer http.ResponseWriter, value string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    value,
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   int(constants.OAuthStateCookieTTL / time.Second),
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (handler *Handler) clearStateCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionPayload shapes the JSON body returned by every endpoint that
// opens a session. The refresh token travels only in the cookie.
func sessionPayload(session *Session) map[string]any {
	return map[string]any{
		FieldAccessToken: session.Tokens.AccessToken,
		FieldTokenType:   "Bearer",
		"identity":       session.Identity,
		"profile":        session.Profile,
	}
}

// # Endpoints

/*
Register creates a new account.

POST /api/v1/auth/register

Description: Validates input, creates the identity and profile pair, and
opens the first session for the new account.

Request:
  - Body: registerRequest (Email, Password, Name, Lastname, Age)

Response:
  - 201: Session: Access token, identity and profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
		Lastname: input.Lastname,
		Age:      input.Age,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.Tokens.RefreshToken, session.Tokens.RefreshExpiresAt)
	respond.Created(writer, sessionPayload(session))
}

/*
Login authenticates an account and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials, generates JWT access tokens, and
injects a secure refresh token cookie into the response.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: Session: Access token, identity and profile
  - 401: ErrUnauthorized: Invalid credentials
  - 429: ErrRateLimited: Too many attempts from this address
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.Tokens.RefreshToken, session.Tokens.RefreshExpiresAt)
	respond.OK(writer, sessionPayload(session))
}

/*
Refresh issues a new token pair using a valid refresh token.

POST /api/v1/auth/refresh

Description: Rotates the session by validating the refresh token cookie
and issuing a fresh access token and an updated refresh token.

Response:
  - 200: Session: New access token credentials
  - 401: ErrUnauthorized: Missing or invalid refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token in cookies"))
		return
	}

	session, err := handler.authService.Refresh(request.Context(), cookie.Value)
	if err != nil {
		handler.clearRefreshCookie(writer)
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.Tokens.RefreshToken, session.Tokens.RefreshExpiresAt)
	respond.OK(writer, sessionPayload(session))
}

/*
Logout terminates the current session.

POST /api/v1/auth/logout

Description: Revokes the refresh credential and clears the security
cookie from the client.

Response:
  - 204: No Content: Session terminated
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredIdentityID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), identityID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

/*
ChangePassword updates the authenticated account's password.

POST /api/v1/auth/change-password

Description: Verifies the current password before applying the new one.
All refresh credentials are revoked so other sessions must log in again.

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 200: Success: Password changed
  - 400: ErrInvalidJSON: Weak password or validation failure
  - 401: ErrUnauthorized: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredIdentityID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(
		request.Context(),
		identityID,
		input.CurrentPassword,
		input.NewPassword,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.OK(writer, map[string]string{
		FieldMessage: "Password changed successfully",
	})
}

/*
DeleteAccount permanently removes the authenticated account.

DELETE /api/v1/auth/me

Description: Deletes the profile and then the identity. Once the call
returns 204 neither row exists any longer.

Response:
  - 204: No Content: Account removed
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Account already gone
*/
func (handler *Handler) deleteAccount(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredIdentityID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.DeleteAccount(request.Context(), identityID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

/*
GoogleBegin starts the Google login flow.

GET /api/v1/auth/google

Description: Generates a state value, stores it in a short-lived cookie
and redirects the browser to Google's consent screen.

Response:
  - 302: Redirect to the provider
  - 404: ErrNotFound: External login not configured
*/
func (handler *Handler) googleBegin(writer http.ResponseWriter, request *http.Request) {
	state, authURL, err := handler.authService.BeginExternalLogin()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setStateCookie(writer, state)
	http.Redirect(writer, request, authURL, http.StatusFound)
}

/*
GoogleCallback finishes the Google login flow.

GET /api/v1/auth/google/callback

Description: Verifies the echoed state against the cookie, exchanges the
authorization code, and signs in the matching account, creating it on
first contact. The state cookie is cleared after a single verification
attempt whatever the outcome.

Request:
  - state: string (query)
  - code: string (query)

Response:
  - 200: Session: Access token, identity and profile
  - 401: ErrUnauthorized: State mismatch
  - 502: ErrExternalService: Provider exchange failed
*/
func (handler *Handler) googleCallback(writer http.ResponseWriter, request *http.Request) {
	storedState := ""
	if cookie, err := request.Cookie(constants.OAuthStateCookieName); err == nil {
		storedState = cookie.Value
	}
	handler.clearStateCookie(writer)

	session, err := handler.authService.CompleteExternalLogin(
		request.Context(),
		request.URL.Query().Get(FieldCode),
		request.URL.Query().Get(FieldState),
		storedState,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.Tokens.RefreshToken, session.Tokens.RefreshExpiresAt)
	respond.OK(writer, sessionPayload(session))
}
