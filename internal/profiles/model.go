package profiles

import "time"

// Plan names as stored on the profile.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Subscription holds the paid-entitlement fields of a profile. It is only
// meaningful while Plan is set; an expired pro subscription stays on the row
// but no longer grants anything.
type Subscription struct {
	Plan             string     `json:"plan,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	OrderReference   string     `json:"order_reference,omitempty"`
}

// Active reports whether the subscription grants the pro plan at t.
func (s Subscription) Active(t time.Time) bool {
	return s.Plan == PlanPro && s.EndDate != nil && t.Before(*s.EndDate)
}

// Usage tracks AI generation consumption. The counter is scoped to the
// calendar month of LastResetDate.
type Usage struct {
	AIGenerationCount int        `json:"ai_generation_count"`
	LastResetDate     *time.Time `json:"last_reset_date,omitempty"`
}

// UserProfile is the per-account record keyed by the identity-provider UID.
type UserProfile struct {
	UID          string       `json:"uid"`
	Subscription Subscription `json:"subscription"`
	Usage        Usage        `json:"usage"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// EffectivePlan returns the plan the profile grants at t.
func (p *UserProfile) EffectivePlan(t time.Time) string {
	if p.Subscription.Active(t) {
		return PlanPro
	}
	return PlanFree
}
