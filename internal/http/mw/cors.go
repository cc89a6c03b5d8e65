package mw

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/shedboard/shedboard-api/internal/repository"
)

// AllowOrigin returns the CORS origin check: the base domain and its
// subdomains over https, localhost on any port for development, and any
// club's registered custom domain over https.
func AllowOrigin(clubs repository.ClubRepository, baseDomain string) func(r *http.Request, origin string) bool {
	base := strings.ToLower(baseDomain)
	return func(r *http.Request, origin string) bool {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		host := normalizeHost(u.Host)

		if isLocalhost(host) {
			return true
		}
		if u.Scheme != "https" {
			return false
		}
		if host == base || strings.HasSuffix(host, "."+base) {
			return true
		}
		_, err = clubs.GetByCustomDomain(r.Context(), host)
		return err == nil
	}
}
