// Package audit records management actions as events on a Redis stream
package audit

import "context"

// Auditor is the primary interface for audit logging operations.
//
// Implementations log asynchronously and degrade gracefully: when the
// backing stream is disabled or unavailable, LogEvent returns immediately
// and the calling request is never failed because of auditing.
type Auditor interface {
	// LogEvent records an audit event without blocking the caller
	LogEvent(ctx context.Context, event *AuditLogRequest)

	// IsEnabled lets callers skip building events when auditing is off
	IsEnabled() bool
}

// NoopAuditor discards every event
type NoopAuditor struct{}

func (NoopAuditor) LogEvent(context.Context, *AuditLogRequest) {}

func (NoopAuditor) IsEnabled() bool { return false }
