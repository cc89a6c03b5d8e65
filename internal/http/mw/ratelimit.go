package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/shedboard/shedboard-api/internal/http/respond"
)

// limitHandler writes the canonical 429 envelope. httprate has already
// set the X-RateLimit-* and Retry-After headers by the time this runs.
func limitHandler(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, http.StatusTooManyRequests, respond.CodeRateLimited, "rate limit exceeded, retry later")
}

// RateLimitByClub returns a per-tenant rate limiter: one bucket per
// {club, lane}, refilled per minute. Must run after TenantResolver.
// Requests with no resolved club (e.g. /health) fall back to IP keying.
func RateLimitByClub(lane string, requestsPerMinute int) func(http.Handler) http.Handler {
	limiter := httprate.NewRateLimiter(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if club := ClubFrom(r.Context()); club != nil {
				return lane + ":" + club.ID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(limitHandler),
	)
	return limiter.Handler
}

// RateLimitLoginByIP returns the brute-force guard on the login route:
// a per-IP bucket independent of the club buckets.
func RateLimitLoginByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	limiter := httprate.NewRateLimiter(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitHandler),
	)
	return limiter.Handler
}
