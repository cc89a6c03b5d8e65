package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/shedboard/shedboard-api/internal/database/migrations"
	"github.com/shedboard/shedboard-api/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// setupTestRepos creates all repositories on a fresh test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	return NewRepositories(setupTestDB(t))
}

// insertTestClub creates a minimal club row and returns it.
func insertTestClub(t *testing.T, repos *Repositories, subdomain string) *models.Club {
	t.Helper()
	club := &models.Club{
		ID:        ulid.Make().String(),
		Name:      "Test Rowing Club " + subdomain,
		Subdomain: subdomain,
		Timezone:  "Australia/Sydney",
	}
	if err := repos.Club.Create(context.Background(), club); err != nil {
		t.Fatalf("failed to insert test club: %v", err)
	}
	return club
}

// insertTestBoat creates a boat via the scrape upsert path.
func insertTestBoat(t *testing.T, repos *Repositories, clubID, sourceID, name string) *models.Boat {
	t.Helper()
	boat := &models.Boat{
		ClubID:       clubID,
		SourceID:     sourceID,
		Name:         name,
		BoatType:     "2X",
		BoatCategory: models.BoatCategoryRace,
	}
	if _, err := repos.Boat.UpsertScraped(context.Background(), repos.DB, boat); err != nil {
		t.Fatalf("failed to insert test boat: %v", err)
	}
	return boat
}

func testBooking(clubID, boatID, date, start string) *models.Booking {
	return &models.Booking{
		ClubID:      clubID,
		BoatID:      boatID,
		BookingDate: date,
		Slot: models.BookingSlot{
			StartTime:  start,
			EndTime:    "23:59",
			MemberName: "A Member",
		},
	}
}
