package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/audit"
	"github.com/restyle-platform/restyle/internal/config"
	"github.com/restyle-platform/restyle/internal/metrics"
	inats "github.com/restyle-platform/restyle/internal/nats"
	"github.com/restyle-platform/restyle/internal/profiles"
)

const subscriptionMonths = 1

// Service runs the payment confirmation protocol: validate the claimed
// amount against the server-known price, confirm with the gateway,
// cross-check the gateway-reported total, spend the reference, then
// activate the subscription.
type Service struct {
	gateway  Gateway
	repo     Repository
	profiles profiles.Repository
	auditor  *audit.Publisher
	proPrice int64
}

func NewService(gateway Gateway, repo Repository, profileRepo profiles.Repository, auditor *audit.Publisher, billing config.BillingConfig) *Service {
	return &Service{
		gateway:  gateway,
		repo:     repo,
		profiles: profileRepo,
		auditor:  auditor,
		proPrice: billing.ProPrice,
	}
}

func (s *Service) Confirm(ctx context.Context, uid string, req *ConfirmRequest) (*ConfirmResponse, error) {
	// The client-claimed amount is checked before the gateway sees the
	// reference at all. Whatever the client paid, only the server-known
	// price buys the plan.
	if req.Amount != s.proPrice {
		s.reject(ctx, uid, req, "claimed amount does not match plan price")
		return nil, api.ErrPaymentValidationFailed
	}

	// Make sure the profile row exists before asking the gateway to
	// capture anything. Activation is a keyed update, so a first-seen uid
	// without this step would capture money and then fail to turn on the
	// plan.
	if _, err := s.profiles.GetOrCreate(ctx, uid); err != nil {
		slog.Error("ensuring profile before payment confirmation", "uid", uid, "error", err)
		return nil, api.ErrInternalServer
	}

	result, err := s.gateway.Confirm(ctx, req.PaymentReference, req.OrderReference, req.Amount)
	if err != nil {
		metrics.PaymentConfirmationsTotal.WithLabelValues("gateway_rejected").Inc()
		return nil, err
	}

	// Second check against the amount the gateway actually captured. A
	// tampered client cannot make these disagree in its favour.
	if result.Amount != s.proPrice {
		s.reject(ctx, uid, req, "gateway-reported amount does not match plan price")
		return nil, api.ErrPaymentValidationFailed
	}

	rec := &ReferenceRecord{
		Reference:      req.PaymentReference,
		OrderReference: req.OrderReference,
		OwnerUID:       uid,
		Amount:         result.Amount,
	}
	if err := s.repo.Consume(ctx, rec); err != nil {
		if errors.Is(err, ErrReferenceConsumed) {
			metrics.PaymentConfirmationsTotal.WithLabelValues("replayed").Inc()
			return nil, api.ErrPaymentAlreadyUsed
		}
		slog.Error("consuming payment reference", "uid", uid, "error", err)
		return nil, api.ErrInternalServer
	}

	now := time.Now().UTC()
	endDate := now.AddDate(0, subscriptionMonths, 0)
	sub := profiles.Subscription{
		Plan:             profiles.PlanPro,
		StartDate:        &now,
		EndDate:          &endDate,
		PaymentReference: req.PaymentReference,
		OrderReference:   req.OrderReference,
	}

	if err := s.profiles.ActivateSubscription(ctx, uid, sub); err != nil {
		// The gateway captured the money but the plan did not turn on.
		// Record it for ops reconciliation instead of retrying blind.
		slog.Error("activating subscription after capture",
			"uid", uid, "payment_reference", req.PaymentReference, "error", err)
		if serr := s.repo.SetStatus(ctx, req.PaymentReference, StatusActivationFailed); serr != nil {
			slog.Error("recording activation failure", "payment_reference", req.PaymentReference, "error", serr)
		}
		s.auditor.Publish(ctx, inats.AuditEvent{
			OwnerUID:     uid,
			EventType:    inats.EventPaymentActivationFailed,
			Severity:     "error",
			ResourceType: "payment",
			ResourceID:   req.PaymentReference,
			Details:      "captured but subscription activation failed",
			Timestamp:    now,
		})
		metrics.PaymentConfirmationsTotal.WithLabelValues("activation_failed").Inc()
		return nil, api.ErrInternalServer
	}

	if err := s.repo.SetStatus(ctx, req.PaymentReference, StatusActivated); err != nil {
		slog.Warn("marking payment reference activated", "payment_reference", req.PaymentReference, "error", err)
	}

	s.auditor.Publish(ctx, inats.AuditEvent{
		OwnerUID:     uid,
		EventType:    inats.EventPaymentConfirmed,
		Severity:     "info",
		ResourceType: "payment",
		ResourceID:   req.PaymentReference,
		Details:      "pro subscription activated",
		Timestamp:    now,
	})
	metrics.PaymentConfirmationsTotal.WithLabelValues("confirmed").Inc()

	return &ConfirmResponse{
		Success: true,
		Plan:    profiles.PlanPro,
		EndDate: endDate,
	}, nil
}

func (s *Service) reject(ctx context.Context, uid string, req *ConfirmRequest, reason string) {
	slog.Warn("payment validation failed",
		"uid", uid, "payment_reference", req.PaymentReference, "reason", reason)
	s.auditor.Publish(ctx, inats.AuditEvent{
		OwnerUID:     uid,
		EventType:    inats.EventPaymentValidationFailed,
		Severity:     "warn",
		ResourceType: "payment",
		ResourceID:   req.PaymentReference,
		Details:      reason,
		Timestamp:    time.Now().UTC(),
	})
	metrics.PaymentConfirmationsTotal.WithLabelValues("validation_failed").Inc()
}
