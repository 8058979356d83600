package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"design-studio-server/internal/domain"
)

// AuthMiddleware validates Supabase access tokens and stores the verified
// user in the request context.
func AuthMiddleware(authService domain.AuthService, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			token := parts[1]
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Token required")
				return
			}

			user, err := authService.ValidateToken(token)
			if err != nil {
				logger.Error("Token validation failed", err)
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// quotaDenyResponse is the 429 body returned when the balance is exhausted.
type quotaDenyResponse struct {
	Error       string     `json:"error"`
	Tier        string     `json:"tier"`
	NextResetAt *time.Time `json:"next_reset_at"`
}

// QuotaGateMiddleware runs after AuthMiddleware on every metered route. It
// authorizes against the user's token balance, denies with 429 when
// exhausted, and surfaces the post-decrement balance via response headers so
// clients can render it without a second round trip.
func QuotaGateMiddleware(quota domain.QuotaService, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "User not found in context")
				return
			}

			decision, err := quota.Authorize(r.Context(), user.ID)
			if err != nil {
				if errors.Is(err, domain.ErrConcurrentUpdate) {
					// Lost too many write races; the whole request is safe
					// to retry.
					writeError(w, http.StatusServiceUnavailable, "Temporarily unable to check token balance, please retry")
					return
				}
				logger.Error("Quota check failed", err, "user_id", user.ID)
				writeError(w, http.StatusServiceUnavailable, "Failed to check token usage")
				return
			}

			if !decision.Allowed {
				writeJSON(w, http.StatusTooManyRequests, quotaDenyResponse{
					Error:       "Token limit reached",
					Tier:        string(decision.Tier),
					NextResetAt: decision.NextResetAt,
				})
				return
			}

			w.Header().Set("X-Tokens-Remaining", strconv.Itoa(decision.TokensRemaining))
			if decision.NextResetAt != nil {
				w.Header().Set("X-Tokens-Reset-Date", decision.NextResetAt.UTC().Format(time.RFC3339))
			}
			next.ServeHTTP(w, r)
		})
	}
}
