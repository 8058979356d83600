package domain

import (
	"context"
	"time"
)

// LineItem is one active, non-expired subscription line item from the billing
// provider, validated at the client boundary before it reaches tier policy.
type LineItem struct {
	ProductID string
	ExpiresAt time.Time
}

// BillingClient reads the subscription-of-record service. Calls have no side
// effects and are safe to retry with a short timeout; unreachability is
// reported as ErrProviderUnavailable.
type BillingClient interface {
	GetActiveLineItems(ctx context.Context, userID string) ([]LineItem, error)
}

// RevenueCat webhook event types we care about. Every type triggers the same
// reconciliation; the constants exist for logging and tests.
const (
	WebhookEventInitialPurchase = "INITIAL_PURCHASE"
	WebhookEventRenewal         = "RENEWAL"
	WebhookEventProductChange   = "PRODUCT_CHANGE"
	WebhookEventCancellation    = "CANCELLATION"
	WebhookEventExpiration      = "EXPIRATION"
)

// WebhookEvent is the parsed body of an inbound billing provider webhook.
type WebhookEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	AppUserID string `json:"app_user_id"`
	ProductID string `json:"product_id"`
}

// ReplayCache remembers webhook event ids so retried deliveries do not
// reconcile twice. Seen records the id as a side effect of the check.
type ReplayCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}
