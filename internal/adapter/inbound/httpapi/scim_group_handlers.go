package httpapi

import (
	"net/http"

	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/domain/auth"
	"github.com/aegisgate/identityd/internal/service"
)

const scimGroupSchema = "urn:ietf:params:scim:schemas:core:2.0:Group"

// groupResource wraps a domain Group with the standardized schema URI every
// SCIM response carries.
type groupResource struct {
	Schemas []string `json:"schemas"`
	*auth.Group
}

func newGroupResource(g *auth.Group) groupResource {
	return groupResource{Schemas: []string{scimGroupSchema}, Group: g}
}

type groupListResource struct {
	Schemas      []string        `json:"schemas"`
	TotalResults int             `json:"totalResults"`
	Resources    []groupResource `json:"Resources"`
}

// handleCreateGroup creates a new SCIM Group. POST /scim/v2/Groups
func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGroupInput
	if err := h.readJSON(r, &in); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}

	g, err := h.scimService.CreateGroup(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, newGroupResource(g))
}

// handleGetGroup fetches a Group by id. GET /scim/v2/Groups/{id}
func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")
	g, err := h.scimService.GetGroup(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newGroupResource(g))
}

// handleListGroups lists Groups, optionally filtered. GET /scim/v2/Groups
func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "unsupported filter", err))
		return
	}

	list, err := h.scimService.ListGroups(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resources := make([]groupResource, 0, len(list.Resources))
	for i := range list.Resources {
		resources = append(resources, newGroupResource(&list.Resources[i]))
	}
	h.respondJSON(w, http.StatusOK, groupListResource{
		Schemas:      []string{"urn:ietf:params:scim:api:messages:2.0:ListResponse"},
		TotalResults: list.TotalResults,
		Resources:    resources,
	})
}

// handlePatchGroup applies a full member-list replacement. PATCH
// /scim/v2/Groups/{id}
func (h *Handler) handlePatchGroup(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")

	var in service.PatchGroupInput
	if err := h.readJSON(r, &in); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}

	g, err := h.scimService.PatchGroup(r.Context(), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, newGroupResource(g))
}

// handleDeleteGroup deletes a Group without deleting its member users.
// DELETE /scim/v2/Groups/{id}
func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")
	if err := h.scimService.DeleteGroup(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addMemberRequest is the JSON body for POST /scim/v2/Groups/{id}/members.
type addMemberRequest struct {
	Value   string `json:"value"`
	Display string `json:"display,omitempty"`
}

// handleAddMember adds a single member to a Group. POST
// /scim/v2/Groups/{id}/members
func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")

	var req addMemberRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}
	if req.Value == "" {
		h.respondError(w, apperr.New(apperr.KindBadRequest, "value is required"))
		return
	}

	g, err := h.scimService.PatchGroup(r.Context(), id, service.PatchGroupInput{
		Add: []auth.Member{{Value: req.Value, Display: req.Display}},
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, newGroupResource(g))
}

// handleRemoveMember removes a single member from a Group. DELETE
// /scim/v2/Groups/{id}/members/{userId}
func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id := h.pathParam(r, "id")
	userID := h.pathParam(r, "userId")

	_, err := h.scimService.PatchGroup(r.Context(), id, service.PatchGroupInput{
		Remove: []string{userID},
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
