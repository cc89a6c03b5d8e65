package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/shedboard/shedboard-api/internal/crypto"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RevSportOptions configures one scrape session against a revsport upstream.
type RevSportOptions struct {
	BaseURL        string
	Credentials    crypto.Credentials
	RequestTimeout time.Duration
	PostLoginDelay time.Duration
	MaxRetries     int
	Logger         *slog.Logger
}

// RevSport talks to a Laravel-style booking site over a cookie session.
// One instance serves exactly one scrape: the collector's cookie jar is
// private to it, so sessions never leak across clubs or runs.
type RevSport struct {
	baseURL        string
	creds          crypto.Credentials
	collector      *colly.Collector
	postLoginDelay time.Duration
	maxRetries     int
	logger         *slog.Logger
}

// NewRevSport creates a session-scoped data source.
func NewRevSport(opts RevSportOptions) *RevSport {
	c := colly.NewCollector(
		colly.UserAgent(browserUserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		// Login POSTs come back 200, 302 or even 500 regardless of
		// outcome; the body is the only truth.
		colly.ParseHTTPErrorResponse(),
	)
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c.SetRequestTimeout(timeout)

	delay := opts.PostLoginDelay
	if delay <= 0 {
		delay = time.Second
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RevSport{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		creds:          opts.Credentials,
		collector:      c,
		postLoginDelay: delay,
		maxRetries:     retries,
		logger:         logger,
	}
}

// fetch performs one request on the shared cookie session and returns the
// captured body. Non-2xx statuses still yield their body.
func (rs *RevSport) fetch(ctx context.Context, method, target string, form url.Values) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var body []byte
	var status int

	c := rs.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && len(r.Body) > 0 {
			status = r.StatusCode
			body = r.Body
		}
	})

	var err error
	if method == http.MethodPost {
		hdr := http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}}
		err = c.Request(http.MethodPost, target, strings.NewReader(form.Encode()), nil, hdr)
	} else {
		err = c.Visit(target)
	}
	c.Wait()

	if body != nil {
		// A captured body trumps a transport-level error report.
		return body, status, nil
	}
	if err == nil {
		err = fmt.Errorf("empty response from %s", target)
	}
	return nil, status, err
}

// fetchRetry wraps fetch with bounded retries for transient transport
// failures. Auth outcomes are decided by the caller, never retried here.
func (rs *RevSport) fetchRetry(ctx context.Context, method, target string, form url.Values) ([]byte, int, error) {
	var body []byte
	var status int
	var err error
	for attempt := 0; attempt <= rs.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			rs.logger.Debug("retrying upstream request", "url", target, "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
		}
		body, status, err = rs.fetch(ctx, method, target, form)
		if err == nil {
			return body, status, nil
		}
	}
	return nil, status, err
}

// Login establishes the cookie session: GET the login form, extract the
// CSRF token, POST credentials, then wait briefly for the upstream to
// settle the session. Verification happens on the next protected fetch.
func (rs *RevSport) Login(ctx context.Context) error {
	page, _, err := rs.fetchRetry(ctx, http.MethodGet, rs.baseURL+"/login", nil)
	if err != nil {
		return &UpstreamError{Reason: "fetching login page", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return &UpstreamError{Reason: "parsing login page", Err: err}
	}

	token := csrfToken(doc)
	if token == "" {
		return &AuthError{Reason: "login page has no CSRF token"}
	}

	form := url.Values{
		"_token":   {token},
		"username": {rs.creds.Username},
		"password": {rs.creds.Password},
		"remember": {"on"},
	}
	// Status codes from this POST are meaningless; success is decided by
	// the protected-page check in ListAssets.
	if _, _, err := rs.fetch(ctx, http.MethodPost, rs.baseURL+"/login", form); err != nil {
		return &UpstreamError{Reason: "posting login form", Err: err}
	}

	// The upstream needs a moment before the session cookie is honoured.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(rs.postLoginDelay):
	}
	return nil
}

// ListAssets fetches the bookings page, verifies the session is really
// authenticated, and returns the boat cards.
func (rs *RevSport) ListAssets(ctx context.Context) ([]Asset, error) {
	page, _, err := rs.fetchRetry(ctx, http.MethodGet, rs.baseURL+"/bookings", nil)
	if err != nil {
		return nil, &UpstreamError{Reason: "fetching asset list", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &UpstreamError{Reason: "parsing asset list", Err: err}
	}

	if !isAuthenticated(doc) {
		reason := "login not accepted"
		if alert := alertText(doc); alert != "" {
			reason = "login not accepted: " + alert
		}
		return nil, &AuthError{Reason: reason}
	}

	var assets []Asset
	doc.Find(`a[href*="/bookings/calendar/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		id := assetID(href)
		if id == "" {
			return
		}

		name := strings.TrimSpace(link.Find(".mr-3").First().Text())
		if name == "" {
			card := link.Closest(".card")
			name = strings.TrimSpace(card.Find(".mr-3").First().Text())
		}
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}
		assets = append(assets, Asset{SourceID: id, RawName: name})
	})

	if len(assets) == 0 {
		return nil, &UpstreamError{Reason: "asset page has no boat cards"}
	}
	return assets, nil
}

// assetID extracts the boat id from a calendar link: the last path
// segment, minus any query string or fragment.
func assetID(href string) string {
	id := href[strings.LastIndex(href, "/")+1:]
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	return id
}

// ListBookings fetches one boat's calendar feed for the window.
func (rs *RevSport) ListBookings(ctx context.Context, asset Asset, w Window) ([]CalendarEntry, error) {
	target := fmt.Sprintf("%s/bookings/retrieve-calendar/%s?start=%s&end=%s",
		rs.baseURL, url.PathEscape(asset.SourceID), w.StartDate(), w.EndDate())

	body, status, err := rs.fetchRetry(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &UpstreamError{Reason: "fetching calendar for " + asset.SourceID, Err: err}
	}
	if status >= 400 {
		return nil, &UpstreamError{Reason: fmt.Sprintf("calendar for %s returned status %d", asset.SourceID, status)}
	}

	var entries []CalendarEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &UpstreamError{Reason: "calendar for " + asset.SourceID + " is not valid JSON", Err: err}
	}
	return entries, nil
}

// csrfToken pulls the Laravel CSRF token from either its hidden form
// input or the document meta tag.
func csrfToken(doc *goquery.Document) string {
	if v, ok := doc.Find(`input[name="_token"]`).First().Attr("value"); ok && v != "" {
		return v
	}
	if v, ok := doc.Find(`meta[name="csrf-token"]`).First().Attr("content"); ok {
		return v
	}
	return ""
}

// isAuthenticated applies the session check: a logout affordance must be
// present and no login form may be.
func isAuthenticated(doc *goquery.Document) bool {
	hasLogout := doc.Find(`a[href*="logout"], form[action*="logout"]`).Length() > 0
	hasLoginForm := doc.Find(`input[type="password"]`).Length() > 0
	return hasLogout && !hasLoginForm
}

// alertText collects upstream error banners for diagnostics.
func alertText(doc *goquery.Document) string {
	var parts []string
	doc.Find(".alert-danger, .invalid-feedback").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "; ")
}
