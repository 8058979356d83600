package domain

import (
	"context"
	"time"
)

// EntitlementRecord is the per-user quota and tier state, one row per user
// in the entitlements table. It is mutated only by reconciliation and by the
// quota gate's decrement; all writes are conditional on Version.
type EntitlementRecord struct {
	UserID            string     `json:"user_id"`
	Tier              Tier       `json:"tier"`
	TokensRemaining   int        `json:"tokens_remaining"`
	LastResetAt       time.Time  `json:"last_reset_at"`
	NextResetAt       *time.Time `json:"next_reset_at"`
	SubscriptionEndAt *time.Time `json:"subscription_end_at"`
	Version           int64      `json:"version"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Clone returns a deep copy, so callers can stage a conditional write without
// mutating the loaded record.
func (r *EntitlementRecord) Clone() *EntitlementRecord {
	c := *r
	if r.NextResetAt != nil {
		next := *r.NextResetAt
		c.NextResetAt = &next
	}
	if r.SubscriptionEndAt != nil {
		end := *r.SubscriptionEndAt
		c.SubscriptionEndAt = &end
	}
	return &c
}

// ReconcileOptions parameterizes the single reconciliation entry point.
// RequestedTier is set only on the administrative tier-change path.
type ReconcileOptions struct {
	ForceReset    bool
	RequestedTier *Tier
}

// QuotaDecision is the outcome of a quota gate check. A denied decision is a
// normal outcome, not an error.
type QuotaDecision struct {
	Allowed         bool
	Tier            Tier
	TokensRemaining int
	NextResetAt     *time.Time
}

// EntitlementRepository persists entitlement records. Update must be applied
// as a conditional write against the stored Version and fail with
// ErrConcurrentUpdate on a lost race; Create must fail the same way when the
// record already exists.
type EntitlementRepository interface {
	Get(ctx context.Context, userID string) (*EntitlementRecord, error)
	Create(ctx context.Context, rec *EntitlementRecord) (*EntitlementRecord, error)
	Update(ctx context.Context, rec *EntitlementRecord) (*EntitlementRecord, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*EntitlementRecord, error)
}

// EntitlementService reconciles entitlement state with the billing provider.
type EntitlementService interface {
	Reconcile(ctx context.Context, userID string, opts ReconcileOptions) (*EntitlementRecord, error)
	GetStatus(ctx context.Context, userID string) (*EntitlementRecord, error)
	RequestTierChange(ctx context.Context, userID string, tier Tier) (*EntitlementRecord, error)
	DowngradeExpired(ctx context.Context) (int, error)
}

// QuotaService gates metered operations behind the per-user token balance.
type QuotaService interface {
	Authorize(ctx context.Context, userID string) (*QuotaDecision, error)
}
