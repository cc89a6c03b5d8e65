// Package reqctx holds the request-scoped context keys shared by the
// middleware chain, the handlers and the response envelope. Living in
// its own package keeps respond free of a dependency on mw.
package reqctx

import (
	"context"

	"github.com/shedboard/shedboard-api/internal/models"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ClubKey is the context key for the resolved tenant.
	ClubKey ContextKey = "club"
	// ClaimsKey is the context key for verified token claims.
	ClaimsKey ContextKey = "claims"
)

// ClubFrom retrieves the resolved club from the request context.
func ClubFrom(ctx context.Context) *models.Club {
	club, _ := ctx.Value(ClubKey).(*models.Club)
	return club
}
