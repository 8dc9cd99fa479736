package httpapi

import (
	"net/http"

	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/service"
)

// evaluateRequest is the JSON body for POST /authz/evaluate.
type evaluateRequest struct {
	Subject  map[string]interface{} `json:"subject"`
	Resource map[string]interface{} `json:"resource"`
	Context  map[string]interface{} `json:"context"`
	Action   string                 `json:"action"`
}

// handleEvaluate runs one authorization decision. POST /authz/evaluate
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondError(w, apperr.Wrap(apperr.KindBadRequest, "invalid JSON body", err))
		return
	}

	resp, err := h.authzService.Evaluate(r.Context(), service.EvaluateRequest{
		CorrelationID: r.Header.Get("X-Correlation-ID"),
		Subject:       req.Subject,
		Resource:      req.Resource,
		Context:       req.Context,
		Action:        req.Action,
	})
	if err != nil {
		if r.Context().Err() != nil {
			// Client gave up on the request; there is nothing to respond with,
			// and no audit record was emitted for this evaluation.
			return
		}
		h.respondError(w, apperr.Wrap(apperr.KindEvaluationError, "evaluation failed", err))
		return
	}

	if h.metrics != nil {
		h.metrics.PolicyEvaluationsTotal.WithLabelValues(string(resp.Decision)).Inc()
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// handleReload re-reads and republishes the policy document. POST
// /authz/policies/reload. Gated on the ADMINS group by requireAdmin.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.policyAdminService.Reload(r.Context()); err != nil {
		if h.metrics != nil {
			h.metrics.PolicyReloadsTotal.WithLabelValues("error").Inc()
		}
		// Parse/semantic/IO failures on reload surface as 500; the previously
		// published PolicySet stays live.
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.PolicyReloadsTotal.WithLabelValues("success").Inc()
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "reloaded",
		"rule_count": h.policyAdminService.RuleCount(),
	})
}
