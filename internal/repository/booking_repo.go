package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/models"
)

// SQLiteBookingRepository implements BookingRepository for SQLite/libsql.
type SQLiteBookingRepository struct {
	db *sql.DB
}

// NewSQLiteBookingRepository creates a new SQLite booking repository.
func NewSQLiteBookingRepository(db *sql.DB) *SQLiteBookingRepository {
	return &SQLiteBookingRepository{db: db}
}

const bookingColumns = `id, club_id, boat_id, booking_date, session_name,
	start_time, end_time, member_name, created_at`

// ListByDate returns the club's bookings on a single date.
func (r *SQLiteBookingRepository) ListByDate(ctx context.Context, clubID, date string, limit int) ([]*models.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE club_id = ? AND booking_date = ?
		 ORDER BY booking_date, start_time LIMIT ?`,
		clubID, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListRange returns the club's bookings with booking_date in [from, to],
// optionally filtered to one boat.
func (r *SQLiteBookingRepository) ListRange(ctx context.Context, clubID, from, to, boatID string, limit int) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE club_id = ? AND booking_date >= ? AND booking_date <= ?`
	args := []any{clubID, from, to}
	if boatID != "" {
		query += ` AND boat_id = ?`
		args = append(args, boatID)
	}
	query += ` ORDER BY booking_date, start_time LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ReplaceWindow deletes every booking for the club with booking_date in
// [from, to] and inserts the given set. Window-replace semantics: rows the
// upstream no longer reports simply disappear.
func (r *SQLiteBookingRepository) ReplaceWindow(ctx context.Context, q DBTX, clubID, from, to string, bookings []*models.Booking) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM bookings WHERE club_id = ? AND booking_date >= ? AND booking_date <= ?`,
		clubID, from, to); err != nil {
		return err
	}

	now := time.Now().Format(time.RFC3339)
	for _, b := range bookings {
		if b.ID == "" {
			b.ID = ulid.Make().String()
		}
		var sessionName any
		if b.SessionName != nil {
			sessionName = *b.SessionName
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO bookings (id, club_id, boat_id, booking_date, session_name,
				start_time, end_time, member_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			b.ID,
			clubID,
			b.BoatID,
			b.BookingDate,
			sessionName,
			b.Slot.StartTime,
			b.Slot.EndTime,
			b.Slot.MemberName,
			now,
		); err != nil {
			return err
		}
	}
	return nil
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		var sessionName sql.NullString
		var createdAt string
		if err := rows.Scan(
			&b.ID,
			&b.ClubID,
			&b.BoatID,
			&b.BookingDate,
			&sessionName,
			&b.Slot.StartTime,
			&b.Slot.EndTime,
			&b.Slot.MemberName,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if sessionName.Valid {
			b.SessionName = &sessionName.String
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}
