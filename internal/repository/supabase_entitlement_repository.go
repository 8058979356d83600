package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"design-studio-server/internal/domain"
)

const entitlementsTable = "entitlements"

// SupabaseEntitlementRepository implements domain.EntitlementRepository on top
// of the entitlements table. Every write is conditional: updates match on the
// stored version column and report an empty representation as a lost race, so
// two concurrent decrements can never both land on the same balance.
type SupabaseEntitlementRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

// NewSupabaseEntitlementRepository creates a new Supabase entitlement repository
func NewSupabaseEntitlementRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) domain.EntitlementRepository {
	return &SupabaseEntitlementRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

type entitlementRow struct {
	UserID            string     `json:"user_id"`
	Tier              string     `json:"tier"`
	TokensRemaining   int        `json:"tokens_remaining"`
	LastResetAt       time.Time  `json:"last_reset_at"`
	NextResetAt       *time.Time `json:"next_reset_at"`
	SubscriptionEndAt *time.Time `json:"subscription_end_at"`
	Version           int64      `json:"version"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (row *entitlementRow) toDomain() *domain.EntitlementRecord {
	return &domain.EntitlementRecord{
		UserID:            row.UserID,
		Tier:              domain.Tier(row.Tier),
		TokensRemaining:   row.TokensRemaining,
		LastResetAt:       row.LastResetAt,
		NextResetAt:       row.NextResetAt,
		SubscriptionEndAt: row.SubscriptionEndAt,
		Version:           row.Version,
		UpdatedAt:         row.UpdatedAt,
	}
}

func rowData(rec *domain.EntitlementRecord, version int64, now time.Time) map[string]interface{} {
	data := map[string]interface{}{
		"user_id":             rec.UserID,
		"tier":                string(rec.Tier),
		"tokens_remaining":    rec.TokensRemaining,
		"last_reset_at":       rec.LastResetAt.UTC().Format(time.RFC3339),
		"next_reset_at":       nil,
		"subscription_end_at": nil,
		"version":             version,
		"updated_at":          now.UTC().Format(time.RFC3339),
	}
	if rec.NextResetAt != nil {
		data["next_reset_at"] = rec.NextResetAt.UTC().Format(time.RFC3339)
	}
	if rec.SubscriptionEndAt != nil {
		data["subscription_end_at"] = rec.SubscriptionEndAt.UTC().Format(time.RFC3339)
	}
	return data
}

// Get retrieves the entitlement record for a user.
func (r *SupabaseEntitlementRepository) Get(ctx context.Context, userID string) (*domain.EntitlementRecord, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(entitlementsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	var rows []entitlementRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrEntitlementNotFound
	}

	return rows[0].toDomain(), nil
}

// Create inserts a fresh record. A duplicate key means another request created
// the record first, reported as ErrConcurrentUpdate so callers re-read.
func (r *SupabaseEntitlementRepository) Create(ctx context.Context, rec *domain.EntitlementRecord) (*domain.EntitlementRecord, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(entitlementsTable).
		Insert(rowData(rec, 1, time.Now()), false, "", "representation", "").
		Execute()
	if err != nil {
		if isDuplicateKey(err) {
			return nil, domain.ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("failed to create entitlement: %w", err)
	}

	var rows []entitlementRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrConcurrentUpdate
	}

	r.logger.Info("Entitlement record created", "user_id", rec.UserID, "tier", rec.Tier)
	return rows[0].toDomain(), nil
}

// Update applies a conditional write: the row must still carry rec.Version.
// An empty representation means the precondition failed.
func (r *SupabaseEntitlementRepository) Update(ctx context.Context, rec *domain.EntitlementRecord) (*domain.EntitlementRecord, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(entitlementsTable).
		Update(rowData(rec, rec.Version+1, time.Now()), "representation", "").
		Eq("user_id", rec.UserID).
		Eq("version", strconv.FormatInt(rec.Version, 10)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update entitlement: %w", err)
	}

	var rows []entitlementRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrConcurrentUpdate
	}

	return rows[0].toDomain(), nil
}

// ListExpired returns paid-tier records whose subscription end has passed.
func (r *SupabaseEntitlementRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*domain.EntitlementRecord, error) {
	client := r.supabaseClient.DB()
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	data, _, err := client.From(entitlementsTable).
		Select("*", "", false).
		Neq("tier", string(domain.TierFree)).
		Lte("subscription_end_at", cutoff.UTC().Format(time.RFC3339)).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired entitlements: %w", err)
	}

	var rows []entitlementRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	records := make([]*domain.EntitlementRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toDomain())
	}
	return records, nil
}

func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
