package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aegisgate/identityd/internal/domain/audit"
	"github.com/aegisgate/identityd/internal/domain/policy"
)

// EvaluateRequest is the input to an authorization evaluation. CorrelationID
// is optional; when empty, the facade generates one.
type EvaluateRequest struct {
	CorrelationID string
	Subject       map[string]interface{}
	Resource      map[string]interface{}
	Context       map[string]interface{}
	Action        string
}

// EvaluateResponse is the engine's Decision plus the correlation id the
// caller can log alongside it.
type EvaluateResponse struct {
	CorrelationID string        `json:"correlationId"`
	Decision      policy.Effect `json:"decision"`
	Reasons       []string      `json:"reasons"`
	Advice        []string      `json:"advice,omitempty"`
	Obligations   []string      `json:"obligations,omitempty"`
}

// AuthorizationService is the thin facade in front of the Rule Engine: it
// attaches a correlation id, invokes the engine, and emits an audit record
// for every completed evaluation without adding latency to the decision
// path. It never turns an internal failure into a Permit.
type AuthorizationService struct {
	engine *policy.Engine
	audit  *AuditService
}

// NewAuthorizationService constructs an AuthorizationService over the given
// engine. audit may be nil, in which case no audit record is emitted (used
// in tests that don't care about the audit side effect).
func NewAuthorizationService(engine *policy.Engine, audit *AuditService) *AuthorizationService {
	return &AuthorizationService{engine: engine, audit: audit}
}

// Evaluate runs one authorization decision. If ctx is already cancelled or
// is cancelled before the evaluation completes, Evaluate returns the
// context's error and emits no audit record, per the cancellation contract:
// partial side effects must not be observed for a request the caller gave
// up on.
func (s *AuthorizationService) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	start := time.Now()
	decision := s.engine.Evaluate(policy.Request{
		Subject:  req.Subject,
		Resource: req.Resource,
		Context:  req.Context,
		Action:   req.Action,
	})
	latency := time.Since(start)

	// Evaluation is CPU-only and cannot itself be cancelled mid-flight; this
	// check only guards against a deadline that expired while we were
	// computing, so we don't emit an audit record for a request the caller
	// has already abandoned.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(audit.AuditRecord{
			Timestamp:      time.Now().UTC(),
			CorrelationID:  correlationID,
			SubjectSub:     stringAttr(req.Subject, "sub"),
			Decision:       string(decision.Effect),
			MatchedRuleIDs: decision.Reasons,
			Reasons:        decision.Reasons,
			LatencyMicros:  latency.Microseconds(),
			Resource:       audit.RedactSensitiveArgs(req.Resource),
			Action:         req.Action,
		})
	}

	return &EvaluateResponse{
		CorrelationID: correlationID,
		Decision:      decision.Effect,
		Reasons:       decision.Reasons,
		Advice:        decision.Advice,
		Obligations:   decision.Obligations,
	}, nil
}

func stringAttr(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
