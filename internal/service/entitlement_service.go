package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"design-studio-server/internal/domain"
)

const (
	// reconcileRetryAttempts bounds how often a reconciliation retries after
	// losing a conditional-write race before surfacing the conflict.
	reconcileRetryAttempts = 3

	// expiredSweepBatchSize caps how many lapsed subscriptions one sweep
	// pass picks up.
	expiredSweepBatchSize = 200
)

type entitlementService struct {
	repo    domain.EntitlementRepository
	billing domain.BillingClient
	logger  domain.Logger
}

// NewEntitlementService wires the reconciliation engine. All three trigger
// paths (lazy gate check, billing webhook, administrative tier change) plus
// the expiry sweep converge on Reconcile.
func NewEntitlementService(
	repo domain.EntitlementRepository,
	billing domain.BillingClient,
	logger domain.Logger,
) domain.EntitlementService {
	return &entitlementService{
		repo:    repo,
		billing: billing,
		logger:  logger,
	}
}

// firstOfNextMonth is the fixed monthly reset clock, used whenever the
// billing provider does not supply a cycle boundary.
func firstOfNextMonth(now time.Time) time.Time {
	year, month, _ := now.UTC().Date()
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
}

// newDefaultRecord is the lazily-created state for a first-seen user: free
// tier with a full allotment.
func newDefaultRecord(userID string, now time.Time) *domain.EntitlementRecord {
	next := firstOfNextMonth(now)
	return &domain.EntitlementRecord{
		UserID:          userID,
		Tier:            domain.TierFree,
		TokensRemaining: domain.AllotmentForTier(domain.TierFree),
		LastResetAt:     now,
		NextResetAt:     &next,
	}
}

// reconcileDue reports whether the record must be reconciled before any
// further decrement may proceed against it.
func reconcileDue(rec *domain.EntitlementRecord, now time.Time) bool {
	if rec.LastResetAt.IsZero() {
		return true
	}
	return rec.NextResetAt != nil && !now.Before(*rec.NextResetAt)
}

// loadOrCreate fetches the user's record, creating the default free record on
// first access. A lost create race falls back to reading the winner's row.
func (s *entitlementService) loadOrCreate(ctx context.Context, userID string) (*domain.EntitlementRecord, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrEntitlementNotFound) {
		return nil, err
	}

	created, err := s.repo.Create(ctx, newDefaultRecord(userID, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return s.repo.Get(ctx, userID)
		}
		return nil, err
	}
	return created, nil
}

// Reconcile refreshes tier and subscription metadata from the billing
// provider and resets the balance when due. It retries lost write races a
// bounded number of times; each retry restarts from a fresh read.
func (s *entitlementService) Reconcile(ctx context.Context, userID string, opts domain.ReconcileOptions) (*domain.EntitlementRecord, error) {
	var lastErr error
	for attempt := 0; attempt < reconcileRetryAttempts; attempt++ {
		rec, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		updated, err := s.reconcileOnce(ctx, rec, opts)
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			lastErr = err
			continue
		}
		return updated, err
	}
	return nil, lastErr
}

func (s *entitlementService) reconcileOnce(ctx context.Context, rec *domain.EntitlementRecord, opts domain.ReconcileOptions) (*domain.EntitlementRecord, error) {
	now := time.Now().UTC()

	var target domain.Tier
	var subEnd *time.Time

	if opts.RequestedTier != nil {
		// Administrative path. The request originates from a
		// provider-confirmed purchase upstream, so the provider must be
		// reachable to corroborate; otherwise the change is rejected.
		items, err := s.billing.GetActiveLineItems(ctx, rec.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTierChangeUnconfirmed, err)
		}
		target = *opts.RequestedTier
		if target != domain.TierFree {
			if _, end := domain.ResolveTier(items, now); end != nil {
				subEnd = end
			}
		}
	} else {
		// Lazy and webhook paths re-derive tier from a fresh provider read.
		// If the provider is down, keep serving the last-known record:
		// billing being unreachable must not lock every user out.
		items, err := s.billing.GetActiveLineItems(ctx, rec.UserID)
		if err != nil {
			s.logger.Warn("Billing provider unavailable, keeping last-known entitlement",
				"user_id", rec.UserID, "error", err)
			return rec, nil
		}
		target, subEnd = domain.ResolveTier(items, now)
	}

	reset := opts.ForceReset || reconcileDue(rec, now)

	next := rec.Clone()
	next.Tier = target
	next.SubscriptionEndAt = subEnd

	if reset {
		next.TokensRemaining = domain.AllotmentForTier(target)
		next.LastResetAt = now
		if target != domain.TierFree && subEnd != nil && subEnd.After(now) {
			// Prefer the provider's billing cycle over the fixed clock.
			cycleEnd := *subEnd
			next.NextResetAt = &cycleEnd
		} else {
			monthly := firstOfNextMonth(now)
			next.NextResetAt = &monthly
		}
	}
	// Without a reset the balance stays untouched. In particular a paid->free
	// downgrade keeps already-granted tokens until the next reset clamps them.

	if entitlementUnchanged(rec, next) {
		return rec, nil
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, err
	}

	if rec.Tier != updated.Tier || reset {
		s.logger.Info("Entitlement reconciled",
			"user_id", updated.UserID,
			"tier", updated.Tier,
			"tokens_remaining", updated.TokensRemaining,
			"reset", reset)
	}
	return updated, nil
}

// entitlementUnchanged reports whether a reconciliation produced no state
// change, in which case the store write is skipped entirely.
func entitlementUnchanged(old, next *domain.EntitlementRecord) bool {
	return old.Tier == next.Tier &&
		old.TokensRemaining == next.TokensRemaining &&
		old.LastResetAt.Equal(next.LastResetAt) &&
		timePtrEqual(old.NextResetAt, next.NextResetAt) &&
		timePtrEqual(old.SubscriptionEndAt, next.SubscriptionEndAt)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// GetStatus is a read-through: it reconciles lazily when a reset is due but
// never decrements.
func (s *entitlementService) GetStatus(ctx context.Context, userID string) (*domain.EntitlementRecord, error) {
	rec, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reconcileDue(rec, time.Now().UTC()) {
		return s.Reconcile(ctx, userID, domain.ReconcileOptions{})
	}
	return rec, nil
}

// RequestTierChange applies an explicit tier change, granting the new
// allotment immediately. Cancellation is a change to the free tier.
func (s *entitlementService) RequestTierChange(ctx context.Context, userID string, tier domain.Tier) (*domain.EntitlementRecord, error) {
	if !tier.Valid() {
		return nil, domain.ErrInvalidTier
	}
	return s.Reconcile(ctx, userID, domain.ReconcileOptions{ForceReset: true, RequestedTier: &tier})
}

// DowngradeExpired funnels every lapsed paid subscription through Reconcile.
// Users the provider still reports as active are left alone; provider
// failures skip the user until the next sweep.
func (s *entitlementService) DowngradeExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	records, err := s.repo.ListExpired(ctx, now, expiredSweepBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, rec := range records {
		if _, err := s.Reconcile(ctx, rec.UserID, domain.ReconcileOptions{}); err != nil {
			s.logger.Warn("Failed to reconcile expired subscription", "user_id", rec.UserID, "error", err)
			continue
		}
		count++
	}
	if count > 0 {
		s.logger.Info("Expired subscription sweep finished", "reconciled", count)
	}
	return count, nil
}
