package domain

// SupabaseUser represents an authenticated user from Supabase Auth.
// Identity issuance itself is external; this subsystem only consumes the
// verified user id.
type SupabaseUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

type AuthService interface {
	ValidateToken(token string) (*SupabaseUser, error)
}
