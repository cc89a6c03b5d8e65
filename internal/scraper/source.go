// Package scraper implements the authenticated harvesting engine: it logs
// into a club's upstream booking provider, enumerates boats, fetches
// per-boat calendars over a date window and commits the normalized
// snapshot in one transaction.
package scraper

import (
	"context"
	"time"
)

// Window is an inclusive date range, date-only.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFrom builds the scrape window [today, today+daysAhead] in the
// given location.
func WindowFrom(now time.Time, daysAhead int, loc *time.Location) Window {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, daysAhead)}
}

// Contains reports whether a YYYY-MM-DD date string falls inside the window.
func (w Window) Contains(date string) bool {
	return date >= w.StartDate() && date <= w.EndDate()
}

// StartDate returns the window start as YYYY-MM-DD.
func (w Window) StartDate() string { return w.Start.Format("2006-01-02") }

// EndDate returns the window end as YYYY-MM-DD.
func (w Window) EndDate() string { return w.End.Format("2006-01-02") }

// Asset is one bookable boat as listed by the upstream.
type Asset struct {
	SourceID string // upstream identifier from the calendar link
	RawName  string // display name, still un-parsed
}

// CalendarEntry is one booking as reported by the upstream calendar feed.
type CalendarEntry struct {
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	MemberName string `json:"member_name"`
}

// DataSource is the capability set a booking provider variant must offer.
// The engine, scheduler and persistence are oblivious to the variant;
// revsport is the only implementation today.
type DataSource interface {
	// Login establishes an authenticated session. Must be called before
	// ListAssets or ListBookings.
	Login(ctx context.Context) error
	// ListAssets returns the club's boats and verifies the session is
	// actually authenticated.
	ListAssets(ctx context.Context) ([]Asset, error)
	// ListBookings fetches one boat's calendar for the window.
	ListBookings(ctx context.Context, asset Asset, w Window) ([]CalendarEntry, error)
}
