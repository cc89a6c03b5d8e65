package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/models"
)

// SQLiteUserRepository implements UserRepository for SQLite/libsql.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = `id, club_id, email, password_hash, full_name, role, is_active, created_at, updated_at`

// Create inserts a new user. Emails are stored lowercased; (club_id, email)
// is unique.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Role == "" {
		user.Role = models.RoleClubAdmin
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, club_id, email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.ClubID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		string(user.Role),
		boolToInt(user.IsActive),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	return err
}

// GetByID retrieves a user by ID. Used by token verification, which
// compares the row's club_id against the resolved tenant afterwards.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by club and case-insensitive email.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, clubID, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE club_id = ? AND email = ?`,
		clubID, strings.ToLower(email))
	return scanUser(row)
}

// UpdatePasswordHash replaces a user's password hash (rotation or
// rehash-on-login after parameter changes).
func (r *SQLiteUserRepository) UpdatePasswordHash(ctx context.Context, clubID, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE club_id = ? AND id = ?
	`, hash, time.Now().Format(time.RFC3339), clubID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetActive toggles a user's active flag. Deactivated users fail token
// verification on their next request.
func (r *SQLiteUserRepository) SetActive(ctx context.Context, clubID, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_active = ?, updated_at = ? WHERE club_id = ? AND id = ?
	`, boolToInt(active), time.Now().Format(time.RFC3339), clubID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.ClubID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.IsActive = isActive != 0
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
