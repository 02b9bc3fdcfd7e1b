package audit

import (
	"time"

	"github.com/google/uuid"
)

// Log is a persisted audit trail entry, written by the persister from
// events consumed off JetStream.
type Log struct {
	ID           uuid.UUID `json:"id"`
	OwnerUID     string    `json:"ownerUid"`
	EventType    string    `json:"eventType"`
	Severity     string    `json:"severity"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId,omitempty"`
	Details      string    `json:"details,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
	CreatedAt    time.Time `json:"createdAt"`
}
