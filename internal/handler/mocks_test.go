package handler

import (
	"context"
	"net/http"
	"net/http/httptest"

	"design-studio-server/internal/domain"
)

// mockEntitlementService returns canned records and captures the last call.
type mockEntitlementService struct {
	record *domain.EntitlementRecord
	err    error

	lastUserID string
	lastTier   domain.Tier
	calls      int
}

func (m *mockEntitlementService) Reconcile(ctx context.Context, userID string, opts domain.ReconcileOptions) (*domain.EntitlementRecord, error) {
	m.calls++
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockEntitlementService) GetStatus(ctx context.Context, userID string) (*domain.EntitlementRecord, error) {
	m.calls++
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockEntitlementService) RequestTierChange(ctx context.Context, userID string, tier domain.Tier) (*domain.EntitlementRecord, error) {
	m.calls++
	m.lastUserID = userID
	m.lastTier = tier
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockEntitlementService) DowngradeExpired(ctx context.Context) (int, error) {
	return 0, m.err
}

type mockQuotaService struct {
	decision *domain.QuotaDecision
	err      error

	lastUserID string
}

func (m *mockQuotaService) Authorize(ctx context.Context, userID string) (*domain.QuotaDecision, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.decision, nil
}

type mockAuthService struct {
	user *domain.SupabaseUser
	err  error
}

func (m *mockAuthService) ValidateToken(token string) (*domain.SupabaseUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

type mockReplayCache struct {
	seen map[string]bool
	err  error
}

func (m *mockReplayCache) Seen(ctx context.Context, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	was := m.seen[eventID]
	m.seen[eventID] = true
	return was, nil
}

// withTestUser injects an authenticated user into the request context the
// same way AuthMiddleware does.
func withTestUser(r *http.Request, userID string) *http.Request {
	user := &domain.SupabaseUser{ID: userID, Email: userID + "@example.com"}
	ctx := context.WithValue(r.Context(), userContextKey, user)
	ctx = context.WithValue(ctx, tokenContextKey, "test-token")
	return r.WithContext(ctx)
}

func doRequest(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}
