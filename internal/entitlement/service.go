package entitlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/restyle-platform/restyle/internal/profiles"
)

// Service decides whether an account may run a generation this billing cycle
// and meters usage after a successful run.
type Service struct {
	repo            profiles.Repository
	freeGenerations int
}

func NewService(repo profiles.Repository, freeGenerations int) *Service {
	return &Service{repo: repo, freeGenerations: freeGenerations}
}

// Allowed reports whether the profile may run a generation at now.
// Pro subscribers are always allowed while the subscription is active; free
// accounts get the configured allowance per calendar month.
func (s *Service) Allowed(p *profiles.UserProfile, now time.Time) bool {
	if p.Subscription.Active(now) {
		return true
	}
	return s.usedThisMonth(p.Usage, now) < s.freeGenerations
}

// Remaining returns how many free generations the profile has left this
// month. Pro subscribers report -1 (unmetered).
func (s *Service) Remaining(p *profiles.UserProfile, now time.Time) int {
	if p.Subscription.Active(now) {
		return -1
	}
	left := s.freeGenerations - s.usedThisMonth(p.Usage, now)
	if left < 0 {
		return 0
	}
	return left
}

// RecordGeneration advances the usage counter after a successful generation.
// Within the month of the last reset the counter increments; a new calendar
// month resets it to 1 and stamps now. Persistence failures are logged and
// swallowed: the image was already produced and must still reach the user.
func (s *Service) RecordGeneration(ctx context.Context, p *profiles.UserProfile, now time.Time) {
	count := 1
	resetAt := now
	if p.Usage.LastResetDate != nil && sameMonth(*p.Usage.LastResetDate, now) {
		count = p.Usage.AIGenerationCount + 1
		resetAt = *p.Usage.LastResetDate
	}

	if err := s.repo.SetUsage(ctx, p.UID, count, resetAt); err != nil {
		slog.Error("usage counter update failed, generation result still returned",
			"uid", p.UID, "error", err)
		return
	}

	p.Usage.AIGenerationCount = count
	p.Usage.LastResetDate = &resetAt
}

func (s *Service) usedThisMonth(u profiles.Usage, now time.Time) int {
	if u.LastResetDate == nil || !sameMonth(*u.LastResetDate, now) {
		return 0
	}
	return u.AIGenerationCount
}

// sameMonth is keyed on calendar month+year equality, not elapsed days, so a
// rollover happens exactly once per new month.
func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
