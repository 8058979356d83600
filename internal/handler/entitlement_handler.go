package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"design-studio-server/internal/domain"
	apperrors "design-studio-server/pkg/errors"
)

// EntitlementHandler exposes the read-only status endpoint and the
// administrative tier-change endpoint.
type EntitlementHandler struct {
	entitlements domain.EntitlementService
	logger       domain.Logger
}

func NewEntitlementHandler(entitlements domain.EntitlementService, logger domain.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		entitlements: entitlements,
		logger:       logger,
	}
}

type entitlementStatusResponse struct {
	Tier              string     `json:"tier"`
	TokensRemaining   int        `json:"tokens_remaining"`
	NextResetAt       *time.Time `json:"next_reset_at"`
	SubscriptionEndAt *time.Time `json:"subscription_end_at,omitempty"`
}

func statusResponse(rec *domain.EntitlementRecord) entitlementStatusResponse {
	return entitlementStatusResponse{
		Tier:              string(rec.Tier),
		TokensRemaining:   rec.TokensRemaining,
		NextResetAt:       rec.NextResetAt,
		SubscriptionEndAt: rec.SubscriptionEndAt,
	}
}

// GetStatus returns the caller's current entitlement, reconciling lazily when
// a reset is due. It never decrements.
func (h *EntitlementHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	rec, err := h.entitlements.GetStatus(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get entitlement status", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to get subscription status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse(rec))
}

type tierChangeRequest struct {
	Tier string `json:"tier"`
}

// UpdateTier applies an explicit tier change (purchase completion or
// cancellation, which is a change to free).
func (h *EntitlementHandler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req tierChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid subscription tier")
		return
	}

	rec, err := h.entitlements.RequestTierChange(r.Context(), user.ID, tier)
	if err != nil {
		if errors.Is(err, domain.ErrTierChangeUnconfirmed) {
			h.logger.Warn("Tier change not confirmed by billing provider", "user_id", user.ID, "tier", tier)
		} else if !errors.Is(err, domain.ErrInvalidTier) && !errors.Is(err, domain.ErrConcurrentUpdate) {
			h.logger.Error("Failed to update subscription", err, "user_id", user.ID, "tier", tier)
		}
		writeAppError(w, tierChangeError(err))
		return
	}

	writeJSON(w, http.StatusOK, statusResponse(rec))
}

// tierChangeError maps tier-change failures to their application error.
func tierChangeError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrTierChangeUnconfirmed):
		return apperrors.NewBadGatewayError("Could not confirm subscription with billing provider", err)
	case errors.Is(err, domain.ErrInvalidTier):
		return apperrors.NewValidationError("Invalid subscription tier")
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return apperrors.NewConflictError("Temporarily unable to update subscription, please retry", err)
	default:
		return apperrors.NewInternalError("Failed to update subscription", err)
	}
}
