package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists user profiles. Every write statement is keyed by the
// verifier-resolved UID, never by client-supplied input: that is what scopes
// a caller to their own record.
type Repository interface {
	GetOrCreate(ctx context.Context, uid string) (*UserProfile, error)
	Get(ctx context.Context, uid string) (*UserProfile, error)
	SetUsage(ctx context.Context, uid string, count int, lastReset time.Time) error
	ActivateSubscription(ctx context.Context, uid string, sub Subscription) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, uid string) (*UserProfile, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_profiles (uid) VALUES ($1) ON CONFLICT (uid) DO NOTHING`, uid)
	if err != nil {
		return nil, fmt.Errorf("ensuring user profile: %w", err)
	}
	return r.Get(ctx, uid)
}

func (r *postgresRepository) Get(ctx context.Context, uid string) (*UserProfile, error) {
	query := `
		SELECT uid, plan, sub_start_date, sub_end_date, payment_reference, order_reference,
		       ai_generation_count, last_reset_date, created_at, updated_at
		FROM user_profiles WHERE uid = $1`

	p := &UserProfile{}
	var plan, payRef, orderRef *string
	err := r.pool.QueryRow(ctx, query, uid).Scan(
		&p.UID, &plan, &p.Subscription.StartDate, &p.Subscription.EndDate,
		&payRef, &orderRef,
		&p.Usage.AIGenerationCount, &p.Usage.LastResetDate,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user profile: %w", err)
	}
	if plan != nil {
		p.Subscription.Plan = *plan
	}
	if payRef != nil {
		p.Subscription.PaymentReference = *payRef
	}
	if orderRef != nil {
		p.Subscription.OrderReference = *orderRef
	}
	return p, nil
}

// SetUsage touches only the two usage fields.
func (r *postgresRepository) SetUsage(ctx context.Context, uid string, count int, lastReset time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles
		 SET ai_generation_count = $2,
		     last_reset_date = $3,
		     updated_at = NOW()
		 WHERE uid = $1`, uid, count, lastReset)
	if err != nil {
		return fmt.Errorf("updating usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating usage: no profile for uid")
	}
	return nil
}

// ActivateSubscription touches exactly the five subscription fields, leaving
// usage and anything else on the row untouched.
func (r *postgresRepository) ActivateSubscription(ctx context.Context, uid string, sub Subscription) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles
		 SET plan = $2,
		     sub_start_date = $3,
		     sub_end_date = $4,
		     payment_reference = $5,
		     order_reference = $6,
		     updated_at = NOW()
		 WHERE uid = $1`,
		uid, sub.Plan, sub.StartDate, sub.EndDate, sub.PaymentReference, sub.OrderReference)
	if err != nil {
		return fmt.Errorf("activating subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("activating subscription: no profile for uid")
	}
	return nil
}
