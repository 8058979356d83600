package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"design-studio-server/internal/domain"
)

// testConfig satisfies domain.Config for repository tests.
type testConfig struct {
	revenueCatBaseURL string
	revenueCatAPIKey  string
}

func (c *testConfig) GetServerPort() string               { return "8080" }
func (c *testConfig) GetLogLevel() string                 { return "error" }
func (c *testConfig) GetSupabaseURL() string              { return "" }
func (c *testConfig) GetSupabaseKey() string              { return "" }
func (c *testConfig) GetSupabaseServiceKey() string       { return "" }
func (c *testConfig) GetRevenueCatBaseURL() string        { return c.revenueCatBaseURL }
func (c *testConfig) GetRevenueCatAPIKey() string         { return c.revenueCatAPIKey }
func (c *testConfig) GetRevenueCatWebhookSecret() string  { return "" }
func (c *testConfig) GetRevenueCatTimeout() time.Duration { return time.Second }
func (c *testConfig) GetRedisAddr() string                { return "" }
func (c *testConfig) GetSweepSchedule() string            { return "@hourly" }
func (c *testConfig) GetGCPProjectID() string             { return "" }
func (c *testConfig) GetGCPLocation() string              { return "us-central1" }
func (c *testConfig) GetImageModel() string               { return "" }
func (c *testConfig) GetTextModel() string                { return "" }

// Mock logger used by repository package tests.
type mockRepoLogger struct{}

func (l *mockRepoLogger) Info(msg string, fields ...interface{})             {}
func (l *mockRepoLogger) Error(msg string, err error, fields ...interface{}) {}
func (l *mockRepoLogger) Debug(msg string, fields ...interface{})            {}
func (l *mockRepoLogger) Warn(msg string, fields ...interface{})             {}

func newTestRevenueCatClient(serverURL string) domain.BillingClient {
	cfg := &testConfig{revenueCatBaseURL: serverURL, revenueCatAPIKey: "sk_test"}
	return NewRevenueCatClient(cfg, &mockRepoLogger{})
}

func TestGetActiveLineItems_ParsesSubscriptions(t *testing.T) {
	future := time.Now().UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339)
	past := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscribers/user-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("missing api key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subscriber":{
			"subscriptions":{
				"com.designstudio.creator.monthly":{"expires_date":"` + future + `"},
				"com.designstudio.professional.monthly":{"expires_date":"` + past + `"}
			},
			"entitlements":{}
		}}`))
	}))
	defer server.Close()

	client := newTestRevenueCatClient(server.URL)
	items, err := client.GetActiveLineItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected expired subscription dropped, got %d items", len(items))
	}
	if items[0].ProductID != "com.designstudio.creator.monthly" {
		t.Fatalf("unexpected product: %s", items[0].ProductID)
	}
}

func TestGetActiveLineItems_MergesEntitlementsKeepingLatestExpiry(t *testing.T) {
	sooner := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	later := time.Now().UTC().Add(60 * 24 * time.Hour).Format(time.RFC3339)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"subscriber":{
			"subscriptions":{
				"com.designstudio.creator.monthly":{"expires_date":"` + sooner + `"}
			},
			"entitlements":{
				"creator":{"expires_date":"` + later + `","product_identifier":"com.designstudio.creator.monthly"}
			}
		}}`))
	}))
	defer server.Close()

	client := newTestRevenueCatClient(server.URL)
	items, err := client.GetActiveLineItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one merged line item, got %d", len(items))
	}
	wantExpiry, _ := time.Parse(time.RFC3339, later)
	if !items[0].ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected latest expiry %v, got %v", wantExpiry, items[0].ExpiresAt)
	}
}

func TestGetActiveLineItems_UnknownSubscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestRevenueCatClient(server.URL)
	items, err := client.GetActiveLineItems(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unknown subscriber must not be an error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestGetActiveLineItems_ServerErrorIsProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestRevenueCatClient(server.URL)
	_, err := client.GetActiveLineItems(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestGetActiveLineItems_NetworkErrorIsProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestRevenueCatClient(server.URL)
	_, err := client.GetActiveLineItems(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestGetActiveLineItems_MissingAPIKey(t *testing.T) {
	client := NewRevenueCatClient(&testConfig{}, &mockRepoLogger{})

	_, err := client.GetActiveLineItems(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
