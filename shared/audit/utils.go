package audit

import (
	"encoding/json"
	"log/slog"
	"time"
)

// MarshalMetadata safely marshals metadata to json.RawMessage.
// Returns "{}" on error and nil for nil metadata.
func MarshalMetadata(metadata map[string]interface{}) json.RawMessage {
	if metadata == nil {
		return nil
	}
	bytes, err := json.Marshal(metadata)
	if err != nil {
		slog.Error("Failed to marshal metadata for audit", "error", err)
		return json.RawMessage("{}")
	}
	return json.RawMessage(bytes)
}

// CurrentTimestamp returns current UTC time in RFC3339 format
func CurrentTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewEvent builds an event stamped with the current time
func NewEvent(eventType, action, status, actorType, actorID, targetType, targetID string, metadata map[string]interface{}) *AuditLogRequest {
	event := &AuditLogRequest{
		Timestamp:          CurrentTimestamp(),
		EventType:          eventType,
		EventAction:        action,
		Status:             status,
		ActorType:          actorType,
		ActorID:            actorID,
		TargetType:         targetType,
		AdditionalMetadata: MarshalMetadata(metadata),
	}
	if targetID != "" {
		event.TargetID = &targetID
	}
	return event
}

// StatusFor maps an operation error onto an audit status
func StatusFor(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
