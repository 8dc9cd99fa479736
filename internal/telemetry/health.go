package telemetry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/aegisgate/identityd/internal/service"
)

// HealthResponse is the JSON response from the /auth/health and /authz/health
// endpoints when a HealthChecker is wired in.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthChecker verifies the health of the audit pipeline and the live
// policy set. Pass nil for a component that isn't wired in; it is reported
// as "not configured" rather than failing the check.
type HealthChecker struct {
	audit       *service.AuditService
	policyAdmin *service.PolicyAdminService
}

// NewHealthChecker creates a HealthChecker over the given components.
func NewHealthChecker(audit *service.AuditService, policyAdmin *service.PolicyAdminService) *HealthChecker {
	return &HealthChecker{audit: audit, policyAdmin: policyAdmin}
}

// Check runs all configured component checks.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.audit != nil {
		depth := h.audit.ChannelDepth()
		capacity := h.audit.ChannelCapacity()
		percentFull := 0
		if capacity > 0 {
			percentFull = depth * 100 / capacity
		}
		if percentFull > 90 {
			checks["audit"] = fmt.Sprintf("degraded: %d/%d (%d%%)", depth, capacity, percentFull)
			healthy = false
		} else {
			checks["audit"] = fmt.Sprintf("ok: %d/%d (%d%%)", depth, capacity, percentFull)
		}
		if drops := h.audit.DroppedRecords(); drops > 0 {
			checks["audit_drops"] = fmt.Sprintf("%d dropped", drops)
		}
	} else {
		checks["audit"] = "not configured"
	}

	if h.policyAdmin != nil {
		checks["policy"] = fmt.Sprintf("ok: %d rules loaded", h.policyAdmin.RuleCount())
	} else {
		checks["policy"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{Status: status, Checks: checks}
}

// Handler returns an HTTP handler serving the health check as JSON.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
