package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/http/respond"
	"github.com/shedboard/shedboard-api/internal/repository"
)

// Auth returns the admin authentication middleware. It verifies the
// bearer token, checks the user still exists and is active, and rejects
// tokens minted for a different tenant with 403 rather than 401: the
// token is valid, it just belongs to another club.
func Auth(signer *auth.TokenSigner, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "missing bearer token")
				return
			}

			claims, err := signer.Verify(token)
			if err != nil {
				respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token")
				return
			}

			club := ClubFrom(r.Context())
			if club == nil || claims.ClubID != club.ID {
				respond.Error(w, r, http.StatusForbidden, respond.CodeForbidden, "token does not belong to this club")
				return
			}

			// Deactivation takes effect on the next request, not at the
			// next token expiry.
			user, err := users.GetByID(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token")
				return
			case err != nil:
				respond.Internal(w, r, err)
				return
			case !user.IsActive || user.ClubID != club.ID:
				respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "account is disabled")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom retrieves verified token claims from the request context.
func ClaimsFrom(ctx context.Context) *auth.TokenClaims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.TokenClaims)
	return claims
}
