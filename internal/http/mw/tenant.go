// Package mw contains the HTTP middleware chain: tenant resolution,
// per-tenant rate limiting and bearer authentication.
package mw

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/shedboard/shedboard-api/internal/http/reqctx"
	"github.com/shedboard/shedboard-api/internal/http/respond"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
)

const (
	// ClubKey is the context key for the resolved tenant.
	ClubKey = reqctx.ClubKey
	// ClaimsKey is the context key for verified token claims.
	ClaimsKey = reqctx.ClaimsKey
)

// TenantConfig drives Host header resolution.
type TenantConfig struct {
	BaseDomain       string // e.g. "shedboard.au"
	MarketingURL     string // 302 target for the bare and www hosts
	AllowLocalhost   bool
	DevClubSubdomain string
}

// TenantResolver resolves the Host header to a club and binds it to the
// request context. Precedence: exact custom domain, then subdomain of the
// base domain, then the marketing redirect, then the localhost dev club.
// Everything else is a 404.
func TenantResolver(clubs repository.ClubRepository, cfg TenantConfig) func(http.Handler) http.Handler {
	base := strings.ToLower(cfg.BaseDomain)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := normalizeHost(r.Host)

			if club, err := clubs.GetByCustomDomain(r.Context(), host); err == nil {
				serveClub(w, r, next, club)
				return
			} else if !errors.Is(err, repository.ErrNotFound) {
				respond.Internal(w, r, err)
				return
			}

			if host == base || host == "www."+base {
				http.Redirect(w, r, cfg.MarketingURL, http.StatusFound)
				return
			}

			if sub, ok := strings.CutSuffix(host, "."+base); ok && sub != "" && !strings.Contains(sub, ".") {
				resolveSubdomain(w, r, next, clubs, sub)
				return
			}

			if cfg.AllowLocalhost && isLocalhost(host) {
				resolveSubdomain(w, r, next, clubs, cfg.DevClubSubdomain)
				return
			}

			respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, "unknown host")
		})
	}
}

func resolveSubdomain(w http.ResponseWriter, r *http.Request, next http.Handler, clubs repository.ClubRepository, sub string) {
	club, err := clubs.GetBySubdomain(r.Context(), strings.ToLower(sub))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, "unknown club")
	case err != nil:
		respond.Internal(w, r, err)
	default:
		serveClub(w, r, next, club)
	}
}

func serveClub(w http.ResponseWriter, r *http.Request, next http.Handler, club *models.Club) {
	if !club.IsActive() {
		respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, "unknown club")
		return
	}
	if state, ok := r.Context().Value(accessLogKey{}).(*accessLogState); ok {
		state.club = club
	}
	ctx := context.WithValue(r.Context(), ClubKey, club)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// normalizeHost lowercases the Host header and strips any port, so
// "X.base:443" resolves identically to "X.base".
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// ClubFrom retrieves the resolved club from the request context.
func ClubFrom(ctx context.Context) *models.Club {
	return reqctx.ClubFrom(ctx)
}
