package scheduler

import (
	"testing"
	"time"

	"github.com/shedboard/shedboard-api/internal/models"
)

func TestIntervalFor(t *testing.T) {
	sydney := &models.Club{Timezone: "Australia/Sydney"}

	tests := []struct {
		name string
		club *models.Club
		utc  string
		want time.Duration
	}{
		// 2026-01-15 is AEDT, UTC+11.
		{"morning peak", sydney, "2026-01-14T19:30:00Z", PeakInterval},   // 06:30 local
		{"daytime", sydney, "2026-01-15T01:00:00Z", DayInterval},         // 12:00 local
		{"evening peak", sydney, "2026-01-15T07:00:00Z", PeakInterval},   // 18:00 local
		{"night", sydney, "2026-01-15T12:00:00Z", NightInterval},         // 23:00 local
		{"early morning", sydney, "2026-01-14T16:00:00Z", NightInterval}, // 03:00 local
		{"peak lower bound", sydney, "2026-01-14T18:00:00Z", PeakInterval},      // 05:00 local
		{"peak upper bound exclusive", sydney, "2026-01-14T22:00:00Z", DayInterval}, // 09:00 local
		{"day upper bound exclusive", sydney, "2026-01-15T06:00:00Z", PeakInterval}, // 17:00 local
		{"evening end exclusive", sydney, "2026-01-15T10:00:00Z", NightInterval},    // 21:00 local
		{
			// Same UTC instant reads as daytime in London.
			"timezone matters",
			&models.Club{Timezone: "Europe/London"},
			"2026-01-15T12:00:00Z",
			DayInterval,
		},
		{
			// Bad timezone falls back to UTC instead of dropping the club.
			"unknown timezone",
			&models.Club{Timezone: "Mars/Olympus_Mons"},
			"2026-01-15T06:00:00Z",
			PeakInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, err := time.Parse(time.RFC3339, tt.utc)
			if err != nil {
				t.Fatalf("bad test instant: %v", err)
			}
			if got := IntervalFor(tt.club, now); got != tt.want {
				t.Errorf("IntervalFor(%s) = %v, want %v", tt.utc, got, tt.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	club := &models.Club{Timezone: "UTC"}
	// 12:00 UTC puts the club in the 5 minute daytime bucket.
	now, _ := time.Parse(time.RFC3339, "2026-01-15T12:00:00Z")

	tests := []struct {
		name        string
		lastSuccess time.Time
		want        bool
	}{
		{"never scraped", time.Time{}, true},
		{"just scraped", now.Add(-30 * time.Second), false},
		{"interval elapsed", now.Add(-5 * time.Minute), true},
		{"well overdue", now.Add(-2 * time.Hour), true},
		{"just under", now.Add(-4*time.Minute - 59*time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Due(club, tt.lastSuccess, now); got != tt.want {
				t.Errorf("Due(last=%v) = %v, want %v", tt.lastSuccess, got, tt.want)
			}
		})
	}
}
