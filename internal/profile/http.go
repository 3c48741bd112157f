// Copyright (c) 2026 Identra. All rights reserved.

package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/identra/identra/internal/platform/request"
	"github.com/identra/identra/internal/platform/respond"
	"github.com/identra/identra/pkg/pagination"
)

// Handler implements the HTTP layer for profile management.
type Handler struct {
	profileService *Service
}

// NewHandler constructs a new profile [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{profileService: service}
}

// Routes returns a [chi.Router] configured with the profile domain's
// endpoints. Every route here sits behind RequireAuth; there is no
// profile creation route because profiles are created only by
// registration.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/me", handler.getMine)
	router.Get("/me/completeness", handler.getCompleteness)
	router.Get("/role/{role}", handler.listByRole)
	router.Get("/{id}", handler.get)
	router.Patch("/{id}", handler.update)

	return router
}

/*
GET /api/v1/profiles.

Description: Retrieves a page of profiles ordered by creation time.

Request:
  - page: int (query, optional)
  - limit: int (query, optional)

Response:
  - 200: []Profile with pagination metadata
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	profiles, total, err := handler.profileService.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, profiles, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/profiles/role/{role}.

Description: Retrieves profiles whose account carries the given role.

Request:
  - role: string (e.g. "admin")

Response:
  - 200: []Profile with pagination metadata
  - 400: Validation: Empty role
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) listByRole(writer http.ResponseWriter, request *http.Request) {
	role := requestutil.Param(request, "role")
	params := pagination.FromRequest(request)

	profiles, total, err := handler.profileService.ListByRole(request.Context(), role, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, profiles, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/profiles/me.

Description: Retrieves the profile of the authenticated account.

Response:
  - 200: Profile
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: No profile linked to this account
*/
func (handler *Handler) getMine(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredIdentityID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.profileService.GetByIdentity(request.Context(), identityID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// completenessResponse reports whether the caller's profile has every
// descriptive field filled in.
type completenessResponse struct {
	Complete bool `json:"complete"`
}

/*
GET /api/v1/profiles/me/completeness.

Description: Reports whether the caller's profile is fully filled in.

Response:
  - 200: completenessResponse
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getCompleteness(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredIdentityID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	complete, err := handler.profileService.IsComplete(request.Context(), identityID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, completenessResponse{Complete: complete})
}

/*
GET /api/v1/profiles/{id}.

Description: Retrieves a single profile by id.

Request:
  - id: string (prefixed UUID)

Response:
  - 200: Profile
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Profile not found
*/
func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	profile, err := handler.profileService.Get(request.Context(), requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// updateProfileRequest defines the expected JSON payload for profile updates.
type updateProfileRequest struct {
	Name     *string `json:"name"`
	Lastname *string `json:"lastname"`
	Age      *int    `json:"age"`
}

/*
PATCH /api/v1/profiles/{id}.

Description: Applies partial updates to a profile. Only the owner or an
admin may modify it.

Request:
  - id: string (prefixed UUID)
  - body: updateProfileRequest (Partial JSON)

Response:
  - 200: Profile: The updated profile
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Authentication required
  - 403: ErrForbidden: Not the owner and not an admin
  - 404: ErrNotFound: Profile not found
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.profileService.Update(request.Context(), claims, requestutil.Param(request, "id"), UpdateInput{
		Name:     input.Name,
		Lastname: input.Lastname,
		Age:      input.Age,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}
