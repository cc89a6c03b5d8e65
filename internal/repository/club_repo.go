package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/models"
)

// ErrNotFound is returned when a row does not exist (or belongs to
// another tenant, which is indistinguishable by design).
var ErrNotFound = errors.New("not found")

// SQLiteClubRepository implements ClubRepository for SQLite/libsql.
type SQLiteClubRepository struct {
	db *sql.DB
}

// NewSQLiteClubRepository creates a new SQLite club repository.
func NewSQLiteClubRepository(db *sql.DB) *SQLiteClubRepository {
	return &SQLiteClubRepository{db: db}
}

const clubColumns = `id, name, subdomain, custom_domain, status, timezone,
	data_source_type, data_source_config, branding, display_config,
	tv_display_config, created_at, updated_at`

// Create inserts a new club. Subdomains are stored lowercased.
func (r *SQLiteClubRepository) Create(ctx context.Context, club *models.Club) error {
	now := time.Now()
	if club.ID == "" {
		club.ID = ulid.Make().String()
	}
	club.Subdomain = strings.ToLower(club.Subdomain)
	if club.Status == "" {
		club.Status = models.ClubStatusActive
	}
	if club.Timezone == "" {
		club.Timezone = "Local"
	}
	if club.DataSourceType == "" {
		club.DataSourceType = models.DataSourceRevsport
	}
	club.CreatedAt = now
	club.UpdatedAt = now

	dsJSON, err := json.Marshal(club.DataSource)
	if err != nil {
		return fmt.Errorf("failed to marshal data source config: %w", err)
	}

	var customDomain any
	if club.CustomDomain != nil {
		customDomain = strings.ToLower(*club.CustomDomain)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clubs (
			id, name, subdomain, custom_domain, status, timezone,
			data_source_type, data_source_config, branding, display_config,
			tv_display_config, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		club.ID,
		club.Name,
		club.Subdomain,
		customDomain,
		string(club.Status),
		club.Timezone,
		string(club.DataSourceType),
		string(dsJSON),
		marshalMap(club.Branding),
		marshalMap(club.DisplayConfig),
		marshalMap(club.TVDisplayConfig),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	return err
}

// GetByID retrieves a club by ID.
func (r *SQLiteClubRepository) GetByID(ctx context.Context, id string) (*models.Club, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE id = ?`, id)
	return scanClub(row)
}

// GetBySubdomain retrieves a club by its (lowercased) subdomain.
func (r *SQLiteClubRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Club, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE subdomain = ?`,
		strings.ToLower(subdomain))
	return scanClub(row)
}

// GetByCustomDomain retrieves a club by exact custom domain match.
func (r *SQLiteClubRepository) GetByCustomDomain(ctx context.Context, domain string) (*models.Club, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE custom_domain = ?`,
		strings.ToLower(domain))
	return scanClub(row)
}

// ListActive returns all clubs in active or trial status.
func (r *SQLiteClubRepository) ListActive(ctx context.Context) ([]*models.Club, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clubColumns+` FROM clubs WHERE status IN ('active', 'trial') ORDER BY subdomain`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clubs []*models.Club
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, club)
	}
	return clubs, rows.Err()
}

// UpdateDataSource swaps the club's upstream config, including the
// encrypted credentials blob. The previous blob is discarded.
func (r *SQLiteClubRepository) UpdateDataSource(ctx context.Context, clubID string, ds models.DataSourceConfig) error {
	dsJSON, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal data source config: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE clubs SET data_source_config = ?, updated_at = ? WHERE id = ?
	`, string(dsJSON), time.Now().Format(time.RFC3339), clubID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateDisplay persists the merged branding and display config maps.
func (r *SQLiteClubRepository) UpdateDisplay(ctx context.Context, clubID string, branding, display, tv map[string]any) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clubs SET branding = ?, display_config = ?, tv_display_config = ?, updated_at = ?
		WHERE id = ?
	`,
		marshalMap(branding),
		marshalMap(display),
		marshalMap(tv),
		time.Now().Format(time.RFC3339),
		clubID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanClub(row rowScanner) (*models.Club, error) {
	var club models.Club
	var customDomain sql.NullString
	var dsJSON, brandingJSON, displayJSON, tvJSON string
	var createdAt, updatedAt string

	err := row.Scan(
		&club.ID,
		&club.Name,
		&club.Subdomain,
		&customDomain,
		&club.Status,
		&club.Timezone,
		&club.DataSourceType,
		&dsJSON,
		&brandingJSON,
		&displayJSON,
		&tvJSON,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if customDomain.Valid {
		club.CustomDomain = &customDomain.String
	}
	if err := json.Unmarshal([]byte(dsJSON), &club.DataSource); err != nil {
		return nil, fmt.Errorf("corrupt data_source_config for club %s: %w", club.ID, err)
	}
	club.Branding = unmarshalMap(brandingJSON)
	club.DisplayConfig = unmarshalMap(displayJSON)
	club.TVDisplayConfig = unmarshalMap(tvJSON)
	club.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	club.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &club, nil
}

func marshalMap(m map[string]any) string {
	if m == nil {
		return "{}"
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func unmarshalMap(s string) map[string]any {
	m := map[string]any{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &m)
	}
	return m
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
