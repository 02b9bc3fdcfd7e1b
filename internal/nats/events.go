package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every audit-relevant event the service emits.
const StreamEvents = "RESTYLE_EVENTS"

// SubjectAuditEvent carries audit events for the persister.
const SubjectAuditEvent = "restyle.events.audit"

// Audit event types.
const (
	EventGenerationCompleted     = "generation.completed"
	EventGenerationDenied        = "generation.denied"
	EventPaymentConfirmed        = "payment.confirmed"
	EventPaymentValidationFailed = "payment.validation_failed"
	EventPaymentActivationFailed = "payment.activation_failed"
)

// AuditEvent is published for compliance/audit logging. OwnerUID is the
// identity-provider identifier of the affected account.
type AuditEvent struct {
	OwnerUID     string    `json:"owner_uid"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
