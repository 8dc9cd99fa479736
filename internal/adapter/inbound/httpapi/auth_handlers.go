package httpapi

import (
	"net/http"

	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/service"
)

// tokenRequest is the JSON body for POST /auth/token. GrantType selects
// between "password" and "client_credentials"; the remaining fields are
// interpreted according to it.
type tokenRequest struct {
	GrantType    string   `json:"grant_type"`
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scope        []string `json:"scope,omitempty"`
}

// handleIssueToken issues a bearer token for a password or client_credentials
// grant. POST /auth/token
func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}

	grantType := req.GrantType
	if grantType == "" {
		grantType = "password"
	}

	var (
		result *service.TokenResult
		err    error
	)
	switch grantType {
	case "password":
		result, err = h.tokenService.IssuePassword(r.Context(), req.Username, req.Password)
	case "client_credentials":
		result, err = h.tokenService.IssueClientCredentials(r.Context(), req.ClientID, req.ClientSecret, req.Scope)
	default:
		h.respondError(w, apperr.New(apperr.KindBadRequest, "unsupported grant_type"))
		return
	}

	if h.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		h.metrics.TokensIssuedTotal.WithLabelValues(grantType, outcome).Inc()
	}
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// handleMe returns the caller's decoded claims. GET /auth/me
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(ClaimsKey).(*service.Claims)
	if !ok {
		h.respondError(w, apperr.New(apperr.KindBadCredentials, "missing bearer token"))
		return
	}
	h.respondJSON(w, http.StatusOK, claims)
}

// healthHandler reports liveness. GET /auth/health, GET /authz/health. Backed
// by the telemetry health checker when one is configured, otherwise a bare
// liveness response.
func (h *Handler) healthHandler() http.Handler {
	if h.healthChecker != nil {
		return h.healthChecker.Handler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
