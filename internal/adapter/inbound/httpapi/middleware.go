package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aegisgate/identityd/internal/ctxkey"
	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/domain/policy"
	"github.com/aegisgate/identityd/internal/service"
)

type requestIDContextKey struct{}

// RequestIDKey is the context key for the per-request correlation id.
var RequestIDKey = requestIDContextKey{}

type claimsContextKey struct{}

// ClaimsKey is the context key for the validated bearer token claims.
var ClaimsKey = claimsContextKey{}

// requestID extracts or generates a request id, enriches the logger, and
// echoes it back on the response so a caller can correlate logs/audit
// records with its own trace.
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		logger := h.logger.With("request_id", id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, logger)

		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireBearer validates the Authorization header and stores the resulting
// claims in the request context for downstream handlers.
func (h *Handler) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			h.respondError(w, apperr.New(apperr.KindBadCredentials, "missing bearer token"))
			return
		}
		token := strings.TrimPrefix(authz, "Bearer ")

		claims, err := h.tokenService.Validate(token)
		if err != nil {
			h.respondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin gates a route on the caller's token carrying the ADMINS
// group, decided by one evaluation against the live PolicySet rather than a
// hardcoded membership check, so the admin boundary follows the same
// precedence discipline as every other authorization decision.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(ClaimsKey).(*service.Claims)
		if !ok {
			h.respondError(w, apperr.New(apperr.KindForbidden, "admin access requires a bearer token"))
			return
		}

		resp, err := h.authzService.Evaluate(r.Context(), service.EvaluateRequest{
			Subject: map[string]interface{}{
				"sub":       claims.Subject,
				"groups":    toInterfaceSlice(claims.Groups),
				"dept":      claims.Dept,
				"riskScore": claims.RiskScore,
			},
			Resource: map[string]interface{}{"type": "policy"},
			Action:   "policies:reload",
		})
		if err != nil {
			h.respondError(w, apperr.Wrap(apperr.KindUnavailable, "admin authorization check failed", err))
			return
		}
		if resp.Decision != policy.EffectPermit {
			h.respondError(w, apperr.New(apperr.KindForbidden, "ADMINS group required"))
			return
		}

		next(w, r)
	}
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
