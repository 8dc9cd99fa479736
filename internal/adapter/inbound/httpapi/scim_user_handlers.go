package httpapi

import (
	"net/http"

	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/domain/auth"
	"github.com/aegisgate/identityd/internal/service"
)

const scimUserSchema = "urn:ietf:params:scim:schemas:core:2.0:User"

// userResource wraps a domain User with the standardized schema URI every
// SCIM response carries.
type userResource struct {
	Schemas []string `json:"schemas"`
	*auth.User
}

func newUserResource(u *auth.User) userResource {
	return userResource{Schemas: []string{scimUserSchema}, User: u}
}

type userListResource struct {
	Schemas      []string       `json:"schemas"`
	TotalResults int            `json:"totalResults"`
	Resources    []userResource `json:"Resources"`
}

// handleCreateUser creates a new SCIM User. POST /scim/v2/Users
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if err := h.readJSON(r, &in); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}

	u, err := h.scimService.CreateUser(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, newUserResource(u))
}

// handleGetUser fetches a User by id. GET /scim/v2/Users/{id}
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")
	u, err := h.scimService.GetUser(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newUserResource(u))
}

// handleListUsers lists Users, optionally filtered. GET /scim/v2/Users
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "unsupported filter", err))
		return
	}

	list, err := h.scimService.ListUsers(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resources := make([]userResource, 0, len(list.Resources))
	for i := range list.Resources {
		resources = append(resources, newUserResource(&list.Resources[i]))
	}
	h.respondJSON(w, http.StatusOK, userListResource{
		Schemas:      []string{"urn:ietf:params:scim:api:messages:2.0:ListResponse"},
		TotalResults: list.TotalResults,
		Resources:    resources,
	})
}

// handlePatchUser applies a partial update. PATCH /scim/v2/Users/{id}
func (h *Handler) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")

	var in service.PatchUserInput
	if err := h.readJSON(r, &in); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}

	u, err := h.scimService.PatchUser(r.Context(), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newUserResource(u))
}

// handleDeleteUser deletes a User. DELETE /scim/v2/Users/{id}
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")
	if err := h.scimService.DeleteUser(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
