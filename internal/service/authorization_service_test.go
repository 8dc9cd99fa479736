package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aegisgate/identityd/internal/domain/audit"
	"github.com/aegisgate/identityd/internal/domain/policy"
	"github.com/aegisgate/identityd/internal/adapter/outbound/memory"
)

func newTestEngine(t *testing.T, policiesJSON string) *policy.Engine {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.json")
	if err := os.WriteFile(path, []byte(policiesJSON), 0o600); err != nil {
		t.Fatalf("write policies.json: %v", err)
	}
	loader := policy.NewLoader(path)
	if err := loader.Load(); err != nil {
		t.Fatalf("load policies: %v", err)
	}
	return policy.NewEngine(loader)
}

const permitAdminPolicy = `{
  "policies": [
    {
      "ruleId": "allow-admin",
      "effect": "Permit",
      "priority": 10,
      "condition": {"op": "eq", "path": "subject.role", "value": "admin"}
    }
  ]
}`

func newTestAuditService(t *testing.T) (*AuditService, *memory.MemoryAuditStore) {
	t.Helper()
	store := memory.NewAuditStoreWithWriter(io.Discard, 10)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAuditService(store, logger, WithChannelSize(10), WithBatchSize(1), WithFlushInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)
	t.Cleanup(svc.Stop)
	return svc, store
}

func TestAuthorizationService_Evaluate_PermitAndAudit(t *testing.T) {
	engine := newTestEngine(t, permitAdminPolicy)
	auditSvc, store := newTestAuditService(t)

	svc := NewAuthorizationService(engine, auditSvc)

	resp, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Subject:  map[string]interface{}{"sub": "alice", "role": "admin"},
		Resource: map[string]interface{}{"type": "document"},
		Action:   "read",
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if resp.Decision != policy.EffectPermit {
		t.Fatalf("expected Permit, got %v", resp.Decision)
	}
	if resp.CorrelationID == "" {
		t.Fatal("expected a generated correlation id")
	}

	auditSvc.Stop()
	recent := store.Recent(10)
	if len(recent) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(recent))
	}
	got := recent[0]
	if got.CorrelationID != resp.CorrelationID {
		t.Errorf("audit correlation id = %q, want %q", got.CorrelationID, resp.CorrelationID)
	}
	if got.SubjectSub != "alice" {
		t.Errorf("audit subject_sub = %q, want alice", got.SubjectSub)
	}
	if got.Decision != audit.DecisionPermit {
		t.Errorf("audit decision = %q, want %q", got.Decision, audit.DecisionPermit)
	}
}

func TestAuthorizationService_Evaluate_DenyByDefault(t *testing.T) {
	engine := newTestEngine(t, permitAdminPolicy)
	svc := NewAuthorizationService(engine, nil)

	resp, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Subject:  map[string]interface{}{"sub": "bob", "role": "guest"},
		Resource: map[string]interface{}{"type": "document"},
		Action:   "read",
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if resp.Decision != policy.EffectDeny {
		t.Fatalf("expected Deny, got %v", resp.Decision)
	}
}

func TestAuthorizationService_Evaluate_UsesSuppliedCorrelationID(t *testing.T) {
	engine := newTestEngine(t, permitAdminPolicy)
	svc := NewAuthorizationService(engine, nil)

	resp, err := svc.Evaluate(context.Background(), EvaluateRequest{
		CorrelationID: "corr-fixed-123",
		Subject:       map[string]interface{}{"sub": "carol", "role": "admin"},
		Action:        "read",
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if resp.CorrelationID != "corr-fixed-123" {
		t.Errorf("correlation id = %q, want corr-fixed-123", resp.CorrelationID)
	}
}

func TestAuthorizationService_Evaluate_CancelledContextEmitsNoAudit(t *testing.T) {
	engine := newTestEngine(t, permitAdminPolicy)
	auditSvc, store := newTestAuditService(t)
	svc := NewAuthorizationService(engine, auditSvc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.Evaluate(ctx, EvaluateRequest{
		Subject: map[string]interface{}{"sub": "dave", "role": "admin"},
		Action:  "read",
	})
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	if resp != nil {
		t.Fatalf("expected nil response, got %+v", resp)
	}

	auditSvc.Stop()
	if recent := store.Recent(10); len(recent) != 0 {
		t.Fatalf("expected no audit records for a cancelled evaluation, got %d", len(recent))
	}
}

func TestAuthorizationService_Evaluate_RedactsSensitiveResourceAttrs(t *testing.T) {
	engine := newTestEngine(t, permitAdminPolicy)
	auditSvc, store := newTestAuditService(t)
	svc := NewAuthorizationService(engine, auditSvc)

	_, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Subject:  map[string]interface{}{"sub": "erin", "role": "admin"},
		Resource: map[string]interface{}{"type": "document", "apiKey": "sk-12345"},
		Action:   "read",
	})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	auditSvc.Stop()
	recent := store.Recent(10)
	if len(recent) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(recent))
	}
	if recent[0].Resource["apiKey"] != "***REDACTED***" {
		t.Errorf("expected apiKey to be redacted, got %v", recent[0].Resource["apiKey"])
	}
}
