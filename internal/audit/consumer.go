package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/restyle-platform/restyle/internal/nats"
)

const (
	consumerName = "audit-persister"
	fetchBatch   = 50
)

// Persister consumes audit events from JetStream and writes them to
// the audit_logs table.
type Persister struct {
	consumers *inats.ConsumerManager
	repo      Repository
}

func NewPersister(consumers *inats.ConsumerManager, repo Repository) *Persister {
	return &Persister{consumers: consumers, repo: repo}
}

// Run blocks until ctx is cancelled, persisting audit events as they
// arrive. A message that cannot be decoded is acked and dropped; a
// failed insert is nacked so JetStream redelivers it.
func (p *Persister) Run(ctx context.Context) error {
	consumer, err := p.consumers.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectAuditEvent)
	if err != nil {
		return err
	}

	slog.Info("audit persister started", "consumer", consumerName)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := consumer.Fetch(fetchBatch, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			slog.Error("fetching audit events", "error", err)
			continue
		}

		for msg := range batch.Messages() {
			p.handle(ctx, msg)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			slog.Error("audit event batch", "error", err)
		}
	}
}

func (p *Persister) handle(ctx context.Context, msg jetstream.Msg) {
	var event inats.AuditEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("decoding audit event", "error", err)
		_ = msg.Ack()
		return
	}

	log := &Log{
		OwnerUID:     event.OwnerUID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      event.Details,
		OccurredAt:   event.Timestamp,
	}
	if err := p.repo.Insert(ctx, log); err != nil {
		slog.Error("persisting audit event", "event_type", event.EventType, "error", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}
