package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restyle-platform/restyle/internal/api"
	"github.com/restyle-platform/restyle/internal/audit"
	"github.com/restyle-platform/restyle/internal/config"
	"github.com/restyle-platform/restyle/internal/profiles"
)

const proPrice int64 = 19900

type fakeGateway struct {
	result    *GatewayResult
	err       error
	calls     int
	lastOrder string
}

func (f *fakeGateway) Confirm(ctx context.Context, paymentReference, orderReference string, amount int64) (*GatewayResult, error) {
	f.calls++
	f.lastOrder = orderReference
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePaymentRepo struct {
	consumed   map[string]bool
	consumeErr error
	statuses   map[string]string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{consumed: map[string]bool{}, statuses: map[string]string{}}
}

func (f *fakePaymentRepo) Consume(ctx context.Context, rec *ReferenceRecord) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	if f.consumed[rec.Reference] {
		return ErrReferenceConsumed
	}
	f.consumed[rec.Reference] = true
	f.statuses[rec.Reference] = StatusConfirmed
	return nil
}

func (f *fakePaymentRepo) SetStatus(ctx context.Context, reference, status string) error {
	f.statuses[reference] = status
	return nil
}

func (f *fakePaymentRepo) ListActivationFailures(ctx context.Context, limit, offset int) ([]*ReferenceRecord, int, error) {
	return nil, 0, nil
}

// fakeProfileRepo mirrors the real repository's keyed-update behaviour:
// ActivateSubscription only works for a uid whose row exists.
type fakeProfileRepo struct {
	created      map[string]bool
	activated    map[string]profiles.Subscription
	activateErr  error
	getCreateErr error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{created: map[string]bool{}, activated: map[string]profiles.Subscription{}}
}

func (f *fakeProfileRepo) GetOrCreate(ctx context.Context, uid string) (*profiles.UserProfile, error) {
	if f.getCreateErr != nil {
		return nil, f.getCreateErr
	}
	f.created[uid] = true
	return &profiles.UserProfile{UID: uid}, nil
}

func (f *fakeProfileRepo) Get(ctx context.Context, uid string) (*profiles.UserProfile, error) {
	return &profiles.UserProfile{UID: uid}, nil
}

func (f *fakeProfileRepo) SetUsage(ctx context.Context, uid string, count int, lastReset time.Time) error {
	return nil
}

func (f *fakeProfileRepo) ActivateSubscription(ctx context.Context, uid string, sub profiles.Subscription) error {
	if f.activateErr != nil {
		return f.activateErr
	}
	if !f.created[uid] {
		return errors.New("no profile row for uid")
	}
	f.activated[uid] = sub
	return nil
}

func validRequest() *ConfirmRequest {
	return &ConfirmRequest{
		PaymentReference: "pay_abc123",
		OrderReference:   "order_xyz789",
		Amount:           proPrice,
	}
}

func newTestService(gw Gateway, repo Repository, profs profiles.Repository) *Service {
	return NewService(gw, repo, profs, audit.NewPublisher(nil), config.BillingConfig{ProPrice: proPrice})
}

func TestService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path activates for one month", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice, Status: "captured"}}
		repo := newFakePaymentRepo()
		profs := newFakeProfileRepo()
		svc := newTestService(gw, repo, profs)

		before := time.Now().UTC()
		resp, err := svc.Confirm(ctx, "uid-1", validRequest())
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, profiles.PlanPro, resp.Plan)

		sub, ok := profs.activated["uid-1"]
		require.True(t, ok)
		assert.Equal(t, profiles.PlanPro, sub.Plan)
		assert.Equal(t, "pay_abc123", sub.PaymentReference)
		assert.Equal(t, "order_xyz789", sub.OrderReference)
		require.NotNil(t, sub.StartDate)
		require.NotNil(t, sub.EndDate)
		assert.Equal(t, sub.StartDate.AddDate(0, 1, 0), *sub.EndDate)
		assert.False(t, sub.StartDate.Before(before))

		assert.Equal(t, StatusActivated, repo.statuses["pay_abc123"])
	})

	t.Run("first confirmation for an unseen uid still activates", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice, Status: "captured"}}
		profs := newFakeProfileRepo()
		svc := newTestService(gw, newFakePaymentRepo(), profs)

		resp, err := svc.Confirm(ctx, "uid-never-seen", validRequest())
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.True(t, profs.created["uid-never-seen"])
		assert.Contains(t, profs.activated, "uid-never-seen")
	})

	t.Run("profile ensure failure stops before the gateway", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice}}
		profs := newFakeProfileRepo()
		profs.getCreateErr = errors.New("db unavailable")
		svc := newTestService(gw, newFakePaymentRepo(), profs)

		_, err := svc.Confirm(ctx, "uid-1", validRequest())

		assert.ErrorIs(t, err, api.ErrInternalServer)
		assert.Zero(t, gw.calls)
	})

	t.Run("order reference is forwarded to the gateway", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice}}
		svc := newTestService(gw, newFakePaymentRepo(), newFakeProfileRepo())

		_, err := svc.Confirm(ctx, "uid-1", validRequest())
		require.NoError(t, err)

		assert.Equal(t, "order_xyz789", gw.lastOrder)
	})

	t.Run("claimed amount mismatch never reaches the gateway", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice}}
		svc := newTestService(gw, newFakePaymentRepo(), newFakeProfileRepo())

		req := validRequest()
		req.Amount = 100
		_, err := svc.Confirm(ctx, "uid-1", req)

		assert.ErrorIs(t, err, api.ErrPaymentValidationFailed)
		assert.Zero(t, gw.calls)
	})

	t.Run("gateway-reported amount mismatch blocks activation", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: 10000, Status: "captured"}}
		repo := newFakePaymentRepo()
		profs := newFakeProfileRepo()
		svc := newTestService(gw, repo, profs)

		_, err := svc.Confirm(ctx, "uid-1", validRequest())

		assert.ErrorIs(t, err, api.ErrPaymentValidationFailed)
		assert.Equal(t, 1, gw.calls)
		assert.Empty(t, profs.activated)
		assert.Empty(t, repo.consumed)
	})

	t.Run("gateway rejection passes through with its status", func(t *testing.T) {
		gw := &fakeGateway{err: api.NewUpstreamError(422, "payment gateway rejected the confirmation")}
		profs := newFakeProfileRepo()
		svc := newTestService(gw, newFakePaymentRepo(), profs)

		_, err := svc.Confirm(ctx, "uid-1", validRequest())

		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 422, appErr.Code)
		assert.Empty(t, profs.activated)
	})

	t.Run("replayed reference conflicts", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice}}
		repo := newFakePaymentRepo()
		profs := newFakeProfileRepo()
		svc := newTestService(gw, repo, profs)

		_, err := svc.Confirm(ctx, "uid-1", validRequest())
		require.NoError(t, err)

		_, err = svc.Confirm(ctx, "uid-2", validRequest())
		assert.ErrorIs(t, err, api.ErrPaymentAlreadyUsed)
		assert.NotContains(t, profs.activated, "uid-2")
	})

	t.Run("activation failure is recorded for reconciliation", func(t *testing.T) {
		gw := &fakeGateway{result: &GatewayResult{Amount: proPrice}}
		repo := newFakePaymentRepo()
		profs := newFakeProfileRepo()
		profs.activateErr = errors.New("db write lost")
		svc := newTestService(gw, repo, profs)

		_, err := svc.Confirm(ctx, "uid-1", validRequest())

		assert.ErrorIs(t, err, api.ErrInternalServer)
		assert.Equal(t, StatusActivationFailed, repo.statuses["pay_abc123"])
	})
}
