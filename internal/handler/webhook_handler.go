package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"design-studio-server/internal/domain"
)

// WebhookHandler receives push notifications from the billing provider.
// RevenueCat authenticates webhooks by sending a configured value verbatim in
// the Authorization header; an unverified webhook must never mutate
// entitlement state.
type WebhookHandler struct {
	entitlements domain.EntitlementService
	replayCache  domain.ReplayCache
	secret       string
	logger       domain.Logger
}

func NewWebhookHandler(
	entitlements domain.EntitlementService,
	replayCache domain.ReplayCache,
	secret string,
	logger domain.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		entitlements: entitlements,
		replayCache:  replayCache,
		secret:       secret,
		logger:       logger,
	}
}

type webhookPayload struct {
	Event domain.WebhookEvent `json:"event"`
}

// HandleRevenueCat verifies, dedupes and processes one webhook delivery.
// Retried deliveries of the same event id are acknowledged without a second
// reconciliation.
func (h *WebhookHandler) HandleRevenueCat(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeError(w, http.StatusServiceUnavailable, "Webhook not configured")
		return
	}

	if !h.authorized(r.Header.Get("Authorization")) {
		h.logger.Warn("Rejected webhook with bad authorization")
		writeError(w, http.StatusUnauthorized, "Invalid webhook authorization")
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	event := payload.Event
	if event.AppUserID == "" {
		writeError(w, http.StatusBadRequest, "Missing app_user_id")
		return
	}

	if event.ID != "" {
		seen, err := h.replayCache.Seen(r.Context(), event.ID)
		if err != nil {
			h.logger.Warn("Replay cache unavailable, processing webhook anyway", "error", err)
		} else if seen {
			h.logger.Debug("Ignoring duplicate webhook delivery", "event_id", event.ID, "type", event.Type)
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	// The provider is the source of truth for tier even between scheduled
	// resets; every event type funnels into the same reconciliation.
	rec, err := h.entitlements.Reconcile(r.Context(), event.AppUserID, domain.ReconcileOptions{})
	if err != nil {
		h.logger.Error("Webhook reconciliation failed", err, "user_id", event.AppUserID, "type", event.Type)
		writeError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	h.logger.Info("Webhook processed", "user_id", event.AppUserID, "type", event.Type, "tier", rec.Tier)
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed", "tier": string(rec.Tier)})
}

// authorized compares the Authorization header against the shared secret in
// constant time, accepting both the bare value and a Bearer-prefixed form.
func (h *WebhookHandler) authorized(header string) bool {
	value := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(value), []byte(h.secret)) == 1
}
