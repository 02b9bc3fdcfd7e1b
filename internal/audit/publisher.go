package audit

import (
	"context"
	"log/slog"

	inats "github.com/restyle-platform/restyle/internal/nats"
)

// Publisher is a nil-safe wrapper around the JetStream publisher. The
// audit trail is best effort: when NATS is down or not configured,
// requests proceed and the event is only logged.
type Publisher struct {
	pub *inats.Publisher
}

func NewPublisher(pub *inats.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Publish(ctx context.Context, event inats.AuditEvent) {
	if p == nil || p.pub == nil {
		return
	}
	if err := p.pub.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("publishing audit event",
			"event_type", event.EventType,
			"owner_uid", event.OwnerUID,
			"error", err)
	}
}
