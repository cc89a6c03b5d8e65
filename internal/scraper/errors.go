package scraper

import (
	"errors"
	"fmt"
)

// ErrScrapeInProgress is returned when a scrape is requested for a club
// that already has one in flight. Enforced by the scheduler, not here.
var ErrScrapeInProgress = errors.New("scrape already in progress for this club")

// AuthError means the upstream rejected or never established the session:
// credentials failed to decrypt, the login form was unparseable, or the
// post-login verification still saw a login form. Never retried.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "upstream authentication failed: " + e.Reason
}

// UpstreamError means the upstream misbehaved after authentication:
// transport failure, unparseable calendar JSON, or an empty asset page.
type UpstreamError struct {
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error: %s: %v", e.Reason, e.Err)
	}
	return "upstream error: " + e.Reason
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ConfigError means the club is not scrapeable as configured: no data
// source URL or no encrypted credentials.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "scrape config error: " + e.Reason
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
