package audit

import (
	"context"
	"time"
)

// AuditStore persists audit records.
// Interface owned by domain per hexagonal architecture.
// Implementations handle batching and async writes; Append must be safe to
// call often and must not block the caller on slow storage for long.
type AuditStore interface {
	// Append stores audit records.
	Append(ctx context.Context, records ...AuditRecord) error

	// Recent returns up to n most recently appended records, newest first.
	Recent(n int) []AuditRecord

	// Flush forces pending records to storage. Called during shutdown.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// RetentionPolicy describes how long audit files are kept on disk.
type RetentionPolicy struct {
	MaxAge time.Duration
}
