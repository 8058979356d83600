package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"design-studio-server/internal/config"
	"design-studio-server/internal/domain"
)

func newTestContainer() *config.Container {
	return &config.Container{
		Config:             &config.AppConfig{RevenueCatWebhookSecret: testWebhookSecret},
		Logger:             NewMockHandlerLogger(),
		ReplayCache:        &mockReplayCache{},
		AuthService:        &mockAuthService{user: &domain.SupabaseUser{ID: "user-1"}},
		EntitlementService: &mockEntitlementService{record: testRecord(domain.TierFree, 10)},
		QuotaService:       &mockQuotaService{decision: &domain.QuotaDecision{Allowed: true, Tier: domain.TierFree, TokensRemaining: 9}},
	}
}

func TestNewRouter_Health(t *testing.T) {
	router := NewRouter(newTestContainer())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected response body: %s", rr.Body.String())
	}
}

func TestNewRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := NewRouter(newTestContainer())

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/entitlement/status"},
		{http.MethodPost, "/api/v1/entitlement/tier"},
		{http.MethodGet, "/api/v1/auth/profile"},
		{http.MethodPost, "/api/v1/designs/decorate"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without credentials, got %d", route.method, route.path, rr.Code)
		}
	}
}

func TestNewRouter_WebhookBypassesUserAuth(t *testing.T) {
	router := NewRouter(newTestContainer())

	body := `{"event":{"id":"e1","type":"RENEWAL","app_user_id":"user-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/revenuecat", strings.NewReader(body))
	req.Header.Set("Authorization", testWebhookSecret)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestNewRouter_StatusEndpointNotQuotaGated(t *testing.T) {
	container := newTestContainer()
	quota := container.QuotaService.(*mockQuotaService)
	router := NewRouter(container)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entitlement/status", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if quota.lastUserID != "" {
		t.Fatalf("status reads must not pass through the quota gate")
	}
}

func TestNewRouter_MeteredRouteQuotaGated(t *testing.T) {
	container := newTestContainer()
	container.QuotaService = &mockQuotaService{decision: &domain.QuotaDecision{Allowed: false, Tier: domain.TierFree}}
	router := NewRouter(container)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/designs/decorate", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer token")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 from the quota gate, got %d", rr.Code)
	}
}
