package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/models"
)

// SQLiteBoatRepository implements BoatRepository for SQLite/libsql.
type SQLiteBoatRepository struct {
	db *sql.DB
}

// NewSQLiteBoatRepository creates a new SQLite boat repository.
func NewSQLiteBoatRepository(db *sql.DB) *SQLiteBoatRepository {
	return &SQLiteBoatRepository{db: db}
}

const boatColumns = `id, club_id, source_id, name, boat_type, boat_category,
	classification, weight_kg, is_damaged, damaged_reason, metadata, created_at, updated_at`

// List returns the club's boats ordered by name.
func (r *SQLiteBoatRepository) List(ctx context.Context, clubID string, limit, offset int) ([]*models.Boat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+boatColumns+` FROM boats WHERE club_id = ? ORDER BY name LIMIT ? OFFSET ?`,
		clubID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boats []*models.Boat
	for rows.Next() {
		boat, err := scanBoat(rows)
		if err != nil {
			return nil, err
		}
		boats = append(boats, boat)
	}
	return boats, rows.Err()
}

// Count returns the number of boats for a club.
func (r *SQLiteBoatRepository) Count(ctx context.Context, clubID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM boats WHERE club_id = ?`, clubID).Scan(&count)
	return count, err
}

// GetByID retrieves a boat by ID within a club. A boat belonging to another
// club is reported as not found.
func (r *SQLiteBoatRepository) GetByID(ctx context.Context, clubID, id string) (*models.Boat, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+boatColumns+` FROM boats WHERE club_id = ? AND id = ?`, clubID, id)
	return scanBoat(row)
}

// UpsertScraped inserts or updates a boat keyed on (club_id, source_id).
// Scraped metadata keys overlay the stored JSON; keys the scrape did not
// produce (manual nickname overrides, image_url) are preserved. Returns
// the boat's row ID.
func (r *SQLiteBoatRepository) UpsertScraped(ctx context.Context, q DBTX, boat *models.Boat) (string, error) {
	now := time.Now()

	var existingID, existingMeta string
	err := q.QueryRowContext(ctx,
		`SELECT id, metadata FROM boats WHERE club_id = ? AND source_id = ?`,
		boat.ClubID, boat.SourceID).Scan(&existingID, &existingMeta)
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	if err == sql.ErrNoRows {
		if boat.ID == "" {
			boat.ID = ulid.Make().String()
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO boats (id, club_id, source_id, name, boat_type, boat_category,
				classification, weight_kg, is_damaged, damaged_reason, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			boat.ID,
			boat.ClubID,
			boat.SourceID,
			boat.Name,
			boat.BoatType,
			string(boat.BoatCategory),
			boat.Classification,
			boat.WeightKg,
			boolToInt(boat.IsDamaged),
			boat.DamagedReason,
			marshalMap(boat.Metadata),
			now.Format(time.RFC3339),
			now.Format(time.RFC3339),
		)
		return boat.ID, err
	}

	merged := unmarshalMap(existingMeta)
	for k, v := range boat.Metadata {
		merged[k] = v
	}

	_, err = q.ExecContext(ctx, `
		UPDATE boats SET name = ?, boat_type = ?, boat_category = ?, classification = ?,
			weight_kg = ?, metadata = ?, updated_at = ?
		WHERE club_id = ? AND source_id = ?
	`,
		boat.Name,
		boat.BoatType,
		string(boat.BoatCategory),
		boat.Classification,
		boat.WeightKg,
		marshalMap(merged),
		now.Format(time.RFC3339),
		boat.ClubID,
		boat.SourceID,
	)
	boat.ID = existingID
	return existingID, err
}

func scanBoat(row rowScanner) (*models.Boat, error) {
	var boat models.Boat
	var isDamaged int
	var metaJSON, createdAt, updatedAt string

	err := row.Scan(
		&boat.ID,
		&boat.ClubID,
		&boat.SourceID,
		&boat.Name,
		&boat.BoatType,
		&boat.BoatCategory,
		&boat.Classification,
		&boat.WeightKg,
		&isDamaged,
		&boat.DamagedReason,
		&metaJSON,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	boat.IsDamaged = isDamaged != 0
	boat.Metadata = unmarshalMap(metaJSON)
	boat.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	boat.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &boat, nil
}
