package domain

import "github.com/supabase-community/supabase-go"

type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)

	// DB returns the service-role client used for entitlement reads/writes.
	// Entitlement rows are mutated by webhook and cron paths that carry no
	// user token, so the table is owned by the backend role.
	DB() *supabase.Client
}
