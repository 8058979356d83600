package domain

import (
	"strings"
	"time"
)

// Tier is a named subscription level determining the monthly token allotment.
type Tier string

const (
	TierFree         Tier = "free"
	TierCreator      Tier = "creator"
	TierProfessional Tier = "professional"
)

// Monthly token allotments per tier. These are policy configuration, not
// structural constants.
const (
	FreeMonthlyTokens         = 10
	CreatorMonthlyTokens      = 50
	ProfessionalMonthlyTokens = 125
)

// ParseTier converts a wire-format tier string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierFree:
		return TierFree, nil
	case TierCreator:
		return TierCreator, nil
	case TierProfessional:
		return TierProfessional, nil
	default:
		return "", ErrInvalidTier
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierCreator, TierProfessional:
		return true
	default:
		return false
	}
}

// tierRank orders tiers by privilege. Higher wins when multiple line items
// are concurrently active.
func tierRank(t Tier) int {
	switch t {
	case TierProfessional:
		return 2
	case TierCreator:
		return 1
	default:
		return 0
	}
}

// AllotmentForTier returns the monthly token allotment for a tier.
// Unknown tiers get the free allotment.
func AllotmentForTier(t Tier) int {
	switch t {
	case TierProfessional:
		return ProfessionalMonthlyTokens
	case TierCreator:
		return CreatorMonthlyTokens
	default:
		return FreeMonthlyTokens
	}
}

// TierForProduct maps a billing product identifier to a tier.
// Product ids follow the store convention "com.<app>.<tier>.<cycle>".
// Unknown products are ignored by tier resolution.
func TierForProduct(productID string) (Tier, bool) {
	p := strings.ToLower(productID)
	switch {
	case strings.Contains(p, string(TierProfessional)):
		return TierProfessional, true
	case strings.Contains(p, string(TierCreator)):
		return TierCreator, true
	default:
		return "", false
	}
}

// ResolveTier picks the winning tier among a user's active line items and
// returns the latest expiry among the items still active at now. Items that
// are expired or map to no known tier are skipped. With no qualifying item
// the user is on the free tier with no subscription end.
func ResolveTier(items []LineItem, now time.Time) (Tier, *time.Time) {
	winner := TierFree
	var end *time.Time
	for _, item := range items {
		if !item.ExpiresAt.After(now) {
			continue
		}
		tier, ok := TierForProduct(item.ProductID)
		if !ok {
			continue
		}
		if tierRank(tier) > tierRank(winner) {
			winner = tier
		}
		if end == nil || item.ExpiresAt.After(*end) {
			expires := item.ExpiresAt
			end = &expires
		}
	}
	if winner == TierFree {
		return TierFree, nil
	}
	return winner, end
}
