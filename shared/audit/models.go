package audit

import "encoding/json"

// AuditLogRequest is one audit event
type AuditLogRequest struct {
	TraceID *string `json:"traceId,omitempty"`

	// Timestamp is ISO 8601 UTC
	Timestamp string `json:"timestamp"`

	EventType   string `json:"eventType"`
	EventAction string `json:"eventAction"`
	Status      string `json:"status"`

	ActorType string `json:"actorType"`
	ActorID   string `json:"actorId"`

	TargetType string  `json:"targetType"`
	TargetID   *string `json:"targetId,omitempty"`

	// Metadata never carries passwords or other secrets
	AdditionalMetadata json.RawMessage `json:"additionalMetadata,omitempty"`
}

// Audit log status constants
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Event types
const (
	EventTypeUserManagement = "USER_MANAGEMENT"
	EventTypeWhitelist      = "WHITELIST"
	EventTypeContent        = "CONTENT_MANAGEMENT"
)

// Event actions
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Actor types mirror the caller's effective role
const (
	ActorTypeAdmin          = "ADMIN"
	ActorTypeDepartmentHead = "DEPARTMENT_HEAD"
	ActorTypeMember         = "MEMBER"
	ActorTypeSystem         = "SYSTEM"
)

// Target types
const (
	TargetTypeUser           = "USER"
	TargetTypeWhitelistEntry = "WHITELIST_ENTRY"
	TargetTypeReport         = "REPORT"
	TargetTypeGalleryPhoto   = "GALLERY_PHOTO"
	TargetTypeContact        = "CONTACT"
	TargetTypeFile           = "FILE"
)
