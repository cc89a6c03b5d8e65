// Package repository contains the data access layer.
// Every query on a tenant-owned table includes club_id in its predicate;
// that is the tenant-isolation invariant and it is enforced here, not in
// the handlers.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shedboard/shedboard-api/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so scrape commits can run
// repository methods inside one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ClubRepository manages club rows.
type ClubRepository interface {
	Create(ctx context.Context, club *models.Club) error
	GetByID(ctx context.Context, id string) (*models.Club, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Club, error)
	GetByCustomDomain(ctx context.Context, domain string) (*models.Club, error)
	ListActive(ctx context.Context) ([]*models.Club, error)
	UpdateDataSource(ctx context.Context, clubID string, ds models.DataSourceConfig) error
	UpdateDisplay(ctx context.Context, clubID string, branding, display, tv map[string]any) error
}

// UserRepository manages admin users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, clubID, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, clubID, userID, hash string) error
	SetActive(ctx context.Context, clubID, userID string, active bool) error
}

// BoatRepository manages boats.
type BoatRepository interface {
	List(ctx context.Context, clubID string, limit, offset int) ([]*models.Boat, error)
	Count(ctx context.Context, clubID string) (int, error)
	GetByID(ctx context.Context, clubID, id string) (*models.Boat, error)
	// UpsertScraped inserts or updates a boat on (club_id, source_id),
	// merging scraped metadata into the existing JSON so manual overrides
	// survive. Runs on q so the caller can supply a transaction.
	UpsertScraped(ctx context.Context, q DBTX, boat *models.Boat) (string, error)
}

// BookingRepository manages bookings.
type BookingRepository interface {
	ListByDate(ctx context.Context, clubID, date string, limit int) ([]*models.Booking, error)
	ListRange(ctx context.Context, clubID, from, to, boatID string, limit int) ([]*models.Booking, error)
	// ReplaceWindow deletes every booking for the club in [from, to] and
	// inserts the given set. Runs on q so the caller can supply a transaction.
	ReplaceWindow(ctx context.Context, q DBTX, clubID, from, to string, bookings []*models.Booking) error
}

// ScrapeJobRepository manages the append-only scrape job log.
type ScrapeJobRepository interface {
	Insert(ctx context.Context, job *models.ScrapeJob) error
	Finish(ctx context.Context, q DBTX, job *models.ScrapeJob) error
	LastN(ctx context.Context, clubID string, n int) ([]*models.ScrapeJob, error)
	LastSuccessTimes(ctx context.Context) (map[string]time.Time, error)
	StatsSince(ctx context.Context, clubID string, since time.Time) (*models.ScrapeJobStats, error)
	MarkStaleRunningFailed(ctx context.Context, olderThan time.Duration) (int, error)
}

// Repositories bundles all repositories plus the shared handle for
// transactional scrape commits.
type Repositories struct {
	DB        *sql.DB
	Club      ClubRepository
	User      UserRepository
	Boat      BoatRepository
	Booking   BookingRepository
	ScrapeJob ScrapeJobRepository
}

// NewRepositories creates all repositories sharing one database handle.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		DB:        db,
		Club:      NewSQLiteClubRepository(db),
		User:      NewSQLiteUserRepository(db),
		Boat:      NewSQLiteBoatRepository(db),
		Booking:   NewSQLiteBookingRepository(db),
		ScrapeJob: NewSQLiteScrapeJobRepository(db),
	}
}
