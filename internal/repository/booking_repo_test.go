package repository

import (
	"context"
	"testing"

	"github.com/shedboard/shedboard-api/internal/models"
)

func TestBookingRepository_ReplaceWindow(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")
	boat := insertTestBoat(t, repos, club.ID, "src-1", "Ripple")

	initial := []*models.Booking{
		testBooking(club.ID, boat.ID, "2026-09-01", "06:00"),
		testBooking(club.ID, boat.ID, "2026-09-02", "06:00"),
		testBooking(club.ID, boat.ID, "2026-09-02", "07:00"),
	}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, club.ID, "2026-09-01", "2026-09-07", initial); err != nil {
		t.Fatalf("ReplaceWindow() error = %v", err)
	}

	// A second scrape reports a different set; the old rows in the window
	// must vanish, not accumulate.
	replacement := []*models.Booking{
		testBooking(club.ID, boat.ID, "2026-09-02", "08:00"),
	}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, club.ID, "2026-09-01", "2026-09-07", replacement); err != nil {
		t.Fatalf("second ReplaceWindow() error = %v", err)
	}

	got, err := repos.Booking.ListRange(ctx, club.ID, "2026-09-01", "2026-09-07", "", 100)
	if err != nil {
		t.Fatalf("ListRange() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListRange() returned %d bookings, want 1", len(got))
	}
	if got[0].BookingDate != "2026-09-02" || got[0].Slot.StartTime != "08:00" {
		t.Errorf("surviving booking = %+v", got[0])
	}
}

func TestBookingRepository_ReplaceWindow_KeepsRowsOutsideWindow(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")
	boat := insertTestBoat(t, repos, club.ID, "src-1", "Ripple")

	outside := []*models.Booking{testBooking(club.ID, boat.ID, "2026-10-15", "06:00")}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, club.ID, "2026-10-15", "2026-10-15", outside); err != nil {
		t.Fatalf("seed ReplaceWindow() error = %v", err)
	}

	inWindow := []*models.Booking{testBooking(club.ID, boat.ID, "2026-09-02", "06:00")}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, club.ID, "2026-09-01", "2026-09-07", inWindow); err != nil {
		t.Fatalf("ReplaceWindow() error = %v", err)
	}

	got, err := repos.Booking.ListRange(ctx, club.ID, "2026-09-01", "2026-10-31", "", 100)
	if err != nil {
		t.Fatalf("ListRange() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListRange() returned %d bookings, want the out-of-window row preserved", len(got))
	}
}

func TestBookingRepository_ReplaceWindow_TenantIsolation(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	clubA := insertTestClub(t, repos, "alpha")
	clubB := insertTestClub(t, repos, "bravo")
	boatA := insertTestBoat(t, repos, clubA.ID, "src-1", "Boat A")
	boatB := insertTestBoat(t, repos, clubB.ID, "src-1", "Boat B")

	seedB := []*models.Booking{testBooking(clubB.ID, boatB.ID, "2026-09-02", "06:00")}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, clubB.ID, "2026-09-01", "2026-09-07", seedB); err != nil {
		t.Fatalf("seed ReplaceWindow() error = %v", err)
	}

	// Replacing A's window must not touch B's rows on the same dates.
	seedA := []*models.Booking{testBooking(clubA.ID, boatA.ID, "2026-09-02", "07:00")}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, clubA.ID, "2026-09-01", "2026-09-07", seedA); err != nil {
		t.Fatalf("ReplaceWindow() error = %v", err)
	}

	gotB, err := repos.Booking.ListByDate(ctx, clubB.ID, "2026-09-02", 100)
	if err != nil {
		t.Fatalf("ListByDate() error = %v", err)
	}
	if len(gotB) != 1 {
		t.Fatalf("club B lost its bookings: %d rows", len(gotB))
	}
	if gotB[0].ClubID != clubB.ID {
		t.Errorf("row club_id = %s, want %s", gotB[0].ClubID, clubB.ID)
	}
}

func TestBookingRepository_ListRange_BoatFilter(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")
	boat1 := insertTestBoat(t, repos, club.ID, "src-1", "Ripple")
	boat2 := insertTestBoat(t, repos, club.ID, "src-2", "Swift")

	seed := []*models.Booking{
		testBooking(club.ID, boat1.ID, "2026-09-02", "06:00"),
		testBooking(club.ID, boat2.ID, "2026-09-02", "06:00"),
		testBooking(club.ID, boat1.ID, "2026-09-03", "06:00"),
	}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, club.ID, "2026-09-01", "2026-09-07", seed); err != nil {
		t.Fatalf("ReplaceWindow() error = %v", err)
	}

	got, err := repos.Booking.ListRange(ctx, club.ID, "2026-09-01", "2026-09-07", boat1.ID, 100)
	if err != nil {
		t.Fatalf("ListRange() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRange(boat filter) = %d rows, want 2", len(got))
	}
	for _, b := range got {
		if b.BoatID != boat1.ID {
			t.Errorf("row boat_id = %s, want %s", b.BoatID, boat1.ID)
		}
	}
}

func TestBookingRepository_OrderedByDateThenTime(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	club := insertTestClub(t, repos, "alpha")
	boat := insertTestBoat(t, repos, club.ID, "src-1", "Ripple")

	seed := []*models.Booking{
		testBooking(club.ID, boat.ID, "2026-09-03", "06:00"),
		testBooking(club.ID, boat.ID, "2026-09-02", "17:00"),
		testBooking(club.ID, boat.ID, "2026-09-02", "06:00"),
	}
	if err := repos.Booking.ReplaceWindow(ctx, repos.DB, club.ID, "2026-09-01", "2026-09-07", seed); err != nil {
		t.Fatalf("ReplaceWindow() error = %v", err)
	}

	got, err := repos.Booking.ListRange(ctx, club.ID, "2026-09-01", "2026-09-07", "", 100)
	if err != nil {
		t.Fatalf("ListRange() error = %v", err)
	}
	want := []string{"2026-09-02 06:00", "2026-09-02 17:00", "2026-09-03 06:00"}
	for i, b := range got {
		key := b.BookingDate + " " + b.Slot.StartTime
		if key != want[i] {
			t.Errorf("row %d = %s, want %s", i, key, want[i])
		}
	}
}
