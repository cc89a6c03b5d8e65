// Package models defines the domain models for the application.
// Every tenant-owned row carries a ClubID; queries must always filter on it.
package models

import (
	"time"
)

// ClubStatus represents the lifecycle state of a club.
type ClubStatus string

const (
	ClubStatusActive    ClubStatus = "active"
	ClubStatusSuspended ClubStatus = "suspended"
	ClubStatusTrial     ClubStatus = "trial"
)

// DataSourceType identifies the upstream booking provider variant.
type DataSourceType string

const (
	// DataSourceRevsport is a Laravel-style booking site with cookie login.
	DataSourceRevsport DataSourceType = "revsport"
)

// DataSourceConfig holds the upstream connection settings for a club.
// CredentialsEncrypted is an AES-256-GCM blob (see internal/crypto).
type DataSourceConfig struct {
	URL                  string `json:"url"`
	CredentialsEncrypted string `json:"credentials_encrypted,omitempty"`
}

// Club represents a tenant: one rowing club with its own subdomain,
// upstream data source and display configuration.
type Club struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Subdomain       string           `json:"subdomain"` // unique, lowercased
	CustomDomain    *string          `json:"custom_domain,omitempty"`
	Status          ClubStatus       `json:"status"`
	Timezone        string           `json:"timezone"` // IANA name, drives scrape cadence buckets
	DataSourceType  DataSourceType   `json:"data_source_type"`
	DataSource      DataSourceConfig `json:"data_source_config"`
	Branding        map[string]any   `json:"branding,omitempty"`
	DisplayConfig   map[string]any   `json:"display_config,omitempty"`
	TVDisplayConfig map[string]any   `json:"tv_display_config,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsActive reports whether the club should be served and scraped.
func (c *Club) IsActive() bool {
	return c.Status == ClubStatusActive || c.Status == ClubStatusTrial
}

// UserRole represents an admin user's role.
type UserRole string

const (
	RoleClubAdmin  UserRole = "club_admin"
	RoleSuperAdmin UserRole = "super_admin"
)

// User represents an admin user belonging to exactly one club.
// Email is unique per club (case-insensitive).
type User struct {
	ID           string    `json:"id"`
	ClubID       string    `json:"club_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Argon2id encoded hash
	FullName     string    `json:"full_name"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BoatCategory splits the fleet into rowing shells and tinnies.
type BoatCategory string

const (
	BoatCategoryRace   BoatCategory = "race"
	BoatCategoryTinnie BoatCategory = "tinnie"
)

// Boat represents one asset scraped from the upstream.
// (ClubID, SourceID) is unique; scrape upserts key on that pair.
// Rows are never deleted so historical bookings keep a valid reference.
type Boat struct {
	ID             string         `json:"id"`
	ClubID         string         `json:"club_id"`
	SourceID       string         `json:"source_id"` // upstream identifier
	Name           string         `json:"name"`
	BoatType       string         `json:"boat_type"` // e.g. 2X, 4+, 8+
	BoatCategory   BoatCategory   `json:"boat_category"`
	Classification string         `json:"classification"` // RACER or CLUB
	WeightKg       int            `json:"weight_kg,omitempty"`
	IsDamaged      bool           `json:"is_damaged"`
	DamagedReason  string         `json:"damaged_reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"` // nickname, sweep_capable, image_url, ...
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BookingSlot is the time slot payload of a booking row.
type BookingSlot struct {
	StartTime  string `json:"start_time"` // HH:MM, 24-hour
	EndTime    string `json:"end_time"`   // HH:MM, 24-hour
	MemberName string `json:"member_name"`
}

// Booking represents one booked slot for a boat on a date.
// Unique per (BoatID, BookingDate, Slot.StartTime). The scraper owns these
// rows: each scrape replaces the full set within the scraped window.
type Booking struct {
	ID          string      `json:"id"`
	ClubID      string      `json:"club_id"`
	BoatID      string      `json:"boat_id"`
	BookingDate string      `json:"booking_date"` // YYYY-MM-DD
	SessionName *string     `json:"session_name,omitempty"`
	Slot        BookingSlot `json:"bookings"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ScrapeJobStatus represents the status of a scrape job.
type ScrapeJobStatus string

const (
	ScrapeJobRunning   ScrapeJobStatus = "running"
	ScrapeJobCompleted ScrapeJobStatus = "completed"
	ScrapeJobFailed    ScrapeJobStatus = "failed"
)

// ScrapeJob is an append-only record of one scrape attempt for a club.
type ScrapeJob struct {
	ID            string          `json:"id"`
	ClubID        string          `json:"club_id"`
	Status        ScrapeJobStatus `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	DurationMs    int64           `json:"duration_ms"`
	BoatsCount    int             `json:"boats_count"`
	BookingsCount int             `json:"bookings_count"`
	Error         string          `json:"error,omitempty"`
}

// ScrapeJobStats aggregates job outcomes over a window, served by the
// admin status endpoint.
type ScrapeJobStats struct {
	SuccessCount  int     `json:"success_count"`
	FailureCount  int     `json:"failure_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}
