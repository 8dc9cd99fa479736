// Package httpapi is the net/http inbound adapter exposing the token,
// SCIM provisioning, and authorization surfaces over JSON.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/service"
	"github.com/aegisgate/identityd/internal/telemetry"
)

// Handler serves the HTTP surface described in the external interfaces
// section: token issuance, SCIM provisioning, and policy evaluation.
type Handler struct {
	tokenService       *service.TokenService
	scimService        *service.SCIMService
	authzService       *service.AuthorizationService
	policyAdminService *service.PolicyAdminService
	healthChecker      *telemetry.HealthChecker
	metrics            *telemetry.Metrics
	logger             *slog.Logger
}

// Option configures a Handler dependency.
type Option func(*Handler)

// WithTokenService sets the token issuance/validation service.
func WithTokenService(s *service.TokenService) Option {
	return func(h *Handler) { h.tokenService = s }
}

// WithSCIMService sets the SCIM provisioning service.
func WithSCIMService(s *service.SCIMService) Option {
	return func(h *Handler) { h.scimService = s }
}

// WithAuthzService sets the authorization facade.
func WithAuthzService(s *service.AuthorizationService) Option {
	return func(h *Handler) { h.authzService = s }
}

// WithPolicyAdminService sets the policy reload service.
func WithPolicyAdminService(s *service.PolicyAdminService) Option {
	return func(h *Handler) { h.policyAdminService = s }
}

// WithHealthChecker sets the health checker backing /auth/health and
// /authz/health. When unset, those routes report a bare liveness "ok".
func WithHealthChecker(hc *telemetry.HealthChecker) Option {
	return func(h *Handler) { h.healthChecker = hc }
}

// WithMetrics sets the Prometheus metrics recorded by handlers that carry
// their own semantic labels (PDP decision, token grant outcome) beyond what
// the generic per-route request middleware captures.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New constructs a Handler with the given options.
func New(opts ...Option) *Handler {
	h := &Handler{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns an http.Handler with every route in the external interfaces
// surface registered, wrapped with the request-id and bearer-auth middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/token", h.handleIssueToken)
	mux.HandleFunc("GET /auth/me", h.requireBearer(h.handleMe))
	mux.Handle("GET /auth/health", h.healthHandler())
	mux.Handle("GET /authz/health", h.healthHandler())

	mux.HandleFunc("POST /scim/v2/Users", h.handleCreateUser)
	mux.HandleFunc("GET /scim/v2/Users", h.handleListUsers)
	mux.HandleFunc("GET /scim/v2/Users/{id}", h.handleGetUser)
	mux.HandleFunc("PATCH /scim/v2/Users/{id}", h.handlePatchUser)
	mux.HandleFunc("DELETE /scim/v2/Users/{id}", h.handleDeleteUser)

	mux.HandleFunc("POST /scim/v2/Groups", h.handleCreateGroup)
	mux.HandleFunc("GET /scim/v2/Groups", h.handleListGroups)
	mux.HandleFunc("GET /scim/v2/Groups/{id}", h.handleGetGroup)
	mux.HandleFunc("PATCH /scim/v2/Groups/{id}", h.handlePatchGroup)
	mux.HandleFunc("DELETE /scim/v2/Groups/{id}", h.handleDeleteGroup)
	mux.HandleFunc("POST /scim/v2/Groups/{id}/members", h.handleAddMember)
	mux.HandleFunc("DELETE /scim/v2/Groups/{id}/members/{userId}", h.handleRemoveMember)

	mux.HandleFunc("POST /authz/evaluate", h.requireBearer(h.handleEvaluate))
	mux.HandleFunc("POST /authz/policies/reload", h.requireBearer(h.requireAdmin(h.handleReload)))

	return h.requestID(mux)
}

// --- JSON helpers ---

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := apperr.StatusFor(err)
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) readJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
