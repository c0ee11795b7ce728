package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StreamPublisher appends a flat record to a named stream.
// *redis.RedisClient satisfies it.
type StreamPublisher interface {
	PublishAuditEvent(ctx context.Context, streamName string, data map[string]interface{}) (string, error)
}

// StreamAuditor publishes events to a Redis stream in the background
type StreamAuditor struct {
	publisher  StreamPublisher
	streamName string
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewStreamAuditor creates an auditor writing to streamName.
// A nil publisher yields a disabled auditor.
func NewStreamAuditor(publisher StreamPublisher, streamName string) *StreamAuditor {
	if publisher == nil {
		slog.Info("Audit stream disabled",
			"reason", "REDIS_ADDR not configured",
			"impact", "Management actions will not be recorded")
	}
	return &StreamAuditor{
		publisher:  publisher,
		streamName: streamName,
		timeout:    5 * time.Second,
	}
}

// IsEnabled returns whether events are published
func (a *StreamAuditor) IsEnabled() bool {
	return a.publisher != nil
}

// LogEvent publishes the event asynchronously (fire-and-forget). The request
// context is not used so the write survives the response being sent.
func (a *StreamAuditor) LogEvent(_ context.Context, event *AuditLogRequest) {
	if !a.IsEnabled() || event == nil {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.publish(ctx, event)
	}()
}

func (a *StreamAuditor) publish(ctx context.Context, event *AuditLogRequest) {
	data := map[string]interface{}{
		"timestamp":   event.Timestamp,
		"eventType":   event.EventType,
		"eventAction": event.EventAction,
		"status":      event.Status,
		"actorType":   event.ActorType,
		"actorId":     event.ActorID,
		"targetType":  event.TargetType,
	}
	if event.TargetID != nil {
		data["targetId"] = *event.TargetID
	}
	if event.TraceID != nil {
		data["traceId"] = *event.TraceID
	}
	if len(event.AdditionalMetadata) > 0 {
		data["additionalMetadata"] = string(event.AdditionalMetadata)
	}

	if _, err := a.publisher.PublishAuditEvent(ctx, a.streamName, data); err != nil {
		slog.Error("Failed to publish audit event", "error", err, "eventType", event.EventType, "eventAction", event.EventAction)
		return
	}

	slog.Debug("Audit event published",
		"eventType", event.EventType,
		"eventAction", event.EventAction,
		"actorId", event.ActorID,
		"status", event.Status)
}

// Wait blocks until in-flight events are published or ctx ends.
// Called during shutdown.
func (a *StreamAuditor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
