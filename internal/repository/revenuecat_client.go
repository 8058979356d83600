package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"design-studio-server/internal/domain"
)

const (
	defaultRevenueCatBaseURL = "https://api.revenuecat.com/v1"
	defaultRevenueCatTimeout = 4 * time.Second
)

// RevenueCatClient reads a user's active subscription line items from the
// RevenueCat REST API. It implements domain.BillingClient. Reads have no side
// effects; any transport or server failure is ErrProviderUnavailable so
// callers can degrade to last-known entitlement state.
type RevenueCatClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     domain.Logger
}

// NewRevenueCatClient creates a new RevenueCat API client
func NewRevenueCatClient(config domain.Config, logger domain.Logger) domain.BillingClient {
	baseURL := config.GetRevenueCatBaseURL()
	if baseURL == "" {
		baseURL = defaultRevenueCatBaseURL
	}
	timeout := config.GetRevenueCatTimeout()
	if timeout <= 0 {
		timeout = defaultRevenueCatTimeout
	}

	return &RevenueCatClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     config.GetRevenueCatAPIKey(),
		logger:     logger,
	}
}

// subscriberResponse models the known shape of GET /subscribers/{id}.
// Only typed fields survive the boundary; everything else is dropped.
type subscriberResponse struct {
	Subscriber struct {
		Subscriptions map[string]struct {
			ExpiresDate *time.Time `json:"expires_date"`
		} `json:"subscriptions"`
		Entitlements map[string]struct {
			ExpiresDate       *time.Time `json:"expires_date"`
			ProductIdentifier string     `json:"product_identifier"`
		} `json:"entitlements"`
	} `json:"subscriber"`
}

// GetActiveLineItems resolves a user id to their active, non-expired
// subscription line items. An unknown subscriber is not an error; it simply
// has no line items.
func (c *RevenueCatClient) GetActiveLineItems(ctx context.Context, userID string) ([]domain.LineItem, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key not configured", domain.ErrProviderUnavailable)
	}

	endpoint := fmt.Sprintf("%s/subscribers/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build subscriber request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("RevenueCat returned unexpected status", "status", resp.StatusCode, "user_id", userID)
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var body subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed subscriber payload: %v", domain.ErrProviderUnavailable, err)
	}

	return lineItemsFromSubscriber(&body, time.Now().UTC()), nil
}

// lineItemsFromSubscriber merges subscriptions and entitlements into typed
// line items, keeping the latest expiry per product and dropping entries that
// are expired or missing an expiry.
func lineItemsFromSubscriber(body *subscriberResponse, now time.Time) []domain.LineItem {
	latest := make(map[string]time.Time)

	for productID, sub := range body.Subscriber.Subscriptions {
		if sub.ExpiresDate == nil || !sub.ExpiresDate.After(now) {
			continue
		}
		if existing, ok := latest[productID]; !ok || sub.ExpiresDate.After(existing) {
			latest[productID] = *sub.ExpiresDate
		}
	}
	for _, ent := range body.Subscriber.Entitlements {
		if ent.ExpiresDate == nil || ent.ProductIdentifier == "" || !ent.ExpiresDate.After(now) {
			continue
		}
		if existing, ok := latest[ent.ProductIdentifier]; !ok || ent.ExpiresDate.After(existing) {
			latest[ent.ProductIdentifier] = *ent.ExpiresDate
		}
	}

	items := make([]domain.LineItem, 0, len(latest))
	for productID, expiresAt := range latest {
		items = append(items, domain.LineItem{ProductID: productID, ExpiresAt: expiresAt})
	}
	return items
}
