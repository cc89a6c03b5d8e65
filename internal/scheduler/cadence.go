// Package scheduler decides when each club gets scraped and coordinates
// periodic and on-demand scrapes under per-club single-flight semantics
// and a global concurrency cap.
package scheduler

import (
	"time"

	"github.com/shedboard/shedboard-api/internal/models"
)

// Scrape cadence by club-local time of day. Peak hours are when members
// actually book and cancel; overnight the data barely moves.
const (
	PeakInterval  = 2 * time.Minute  // 05:00–09:00 and 17:00–21:00
	DayInterval   = 5 * time.Minute  // 09:00–17:00
	NightInterval = 10 * time.Minute // 21:00–05:00
)

// IntervalFor returns the scrape interval for a club at the given instant,
// evaluated in the club's own timezone. An unknown timezone falls back to
// UTC rather than skipping the club.
func IntervalFor(club *models.Club, now time.Time) time.Duration {
	loc, err := time.LoadLocation(club.Timezone)
	if err != nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()
	switch {
	case hour >= 5 && hour < 9:
		return PeakInterval
	case hour >= 17 && hour < 21:
		return PeakInterval
	case hour >= 9 && hour < 17:
		return DayInterval
	default:
		return NightInterval
	}
}

// Due reports whether a club should be scraped now given its last
// successful scrape. A club with no recorded success is always due.
func Due(club *models.Club, lastSuccess time.Time, now time.Time) bool {
	if lastSuccess.IsZero() {
		return true
	}
	return now.Sub(lastSuccess) >= IntervalFor(club, now)
}
