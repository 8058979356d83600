package service

import (
	"context"
	"errors"

	"design-studio-server/internal/domain"
)

// authorizeRetryAttempts bounds gate retries after a lost decrement race.
// Exhausting it surfaces ErrConcurrentUpdate; the gate never silently allows
// nor double-decrements.
const authorizeRetryAttempts = 3

type quotaService struct {
	repo         domain.EntitlementRepository
	entitlements domain.EntitlementService
	logger       domain.Logger
}

// NewQuotaService wires the quota gate invoked before every metered action.
func NewQuotaService(
	repo domain.EntitlementRepository,
	entitlements domain.EntitlementService,
	logger domain.Logger,
) domain.QuotaService {
	return &quotaService{
		repo:         repo,
		entitlements: entitlements,
		logger:       logger,
	}
}

// Authorize performs refresh-if-due then atomically decrements-or-rejects.
// The decrement is a conditional write against the record version; on a lost
// race the whole sequence restarts from a fresh read.
func (s *quotaService) Authorize(ctx context.Context, userID string) (*domain.QuotaDecision, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}

	for attempt := 0; attempt < authorizeRetryAttempts; attempt++ {
		// GetStatus loads (creating on first access) and reconciles lazily,
		// so a reached reset boundary is applied before we ever look at the
		// old balance.
		rec, err := s.entitlements.GetStatus(ctx, userID)
		if err != nil {
			return nil, err
		}

		if rec.TokensRemaining <= 0 {
			return &domain.QuotaDecision{
				Allowed:     false,
				Tier:        rec.Tier,
				NextResetAt: rec.NextResetAt,
			}, nil
		}

		next := rec.Clone()
		next.TokensRemaining--

		updated, err := s.repo.Update(ctx, next)
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			s.logger.Debug("Quota decrement lost a write race, retrying", "user_id", userID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		return &domain.QuotaDecision{
			Allowed:         true,
			Tier:            updated.Tier,
			TokensRemaining: updated.TokensRemaining,
			NextResetAt:     updated.NextResetAt,
		}, nil
	}

	s.logger.Warn("Quota authorize exhausted retries", "user_id", userID)
	return nil, domain.ErrConcurrentUpdate
}
