package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/models"
)

// SQLiteScrapeJobRepository implements ScrapeJobRepository for SQLite/libsql.
type SQLiteScrapeJobRepository struct {
	db *sql.DB
}

// NewSQLiteScrapeJobRepository creates a new SQLite scrape job repository.
func NewSQLiteScrapeJobRepository(db *sql.DB) *SQLiteScrapeJobRepository {
	return &SQLiteScrapeJobRepository{db: db}
}

// Insert appends a new job row, normally in running status.
func (r *SQLiteScrapeJobRepository) Insert(ctx context.Context, job *models.ScrapeJob) error {
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	if job.Status == "" {
		job.Status = models.ScrapeJobRunning
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scrape_jobs (id, club_id, status, started_at, duration_ms, boats_count, bookings_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		job.ClubID,
		string(job.Status),
		job.StartedAt.UTC().Format(time.RFC3339),
		job.DurationMs,
		job.BoatsCount,
		job.BookingsCount,
		job.Error,
	)
	return err
}

// Finish records a job's terminal status. Runs on q so the scrape commit
// can update the job in the same transaction as the data it describes.
func (r *SQLiteScrapeJobRepository) Finish(ctx context.Context, q DBTX, job *models.ScrapeJob) error {
	now := time.Now()
	job.CompletedAt = &now
	job.DurationMs = now.Sub(job.StartedAt).Milliseconds()

	res, err := q.ExecContext(ctx, `
		UPDATE scrape_jobs SET status = ?, completed_at = ?, duration_ms = ?,
			boats_count = ?, bookings_count = ?, error = ?
		WHERE id = ? AND club_id = ?
	`,
		string(job.Status),
		now.UTC().Format(time.RFC3339),
		job.DurationMs,
		job.BoatsCount,
		job.BookingsCount,
		job.Error,
		job.ID,
		job.ClubID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// LastN returns the club's most recent jobs, newest first.
func (r *SQLiteScrapeJobRepository) LastN(ctx context.Context, clubID string, n int) ([]*models.ScrapeJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, club_id, status, started_at, completed_at, duration_ms, boats_count, bookings_count, error
		FROM scrape_jobs WHERE club_id = ?
		ORDER BY started_at DESC LIMIT ?
	`, clubID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ScrapeJob
	for rows.Next() {
		var job models.ScrapeJob
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(
			&job.ID,
			&job.ClubID,
			&job.Status,
			&startedAt,
			&completedAt,
			&job.DurationMs,
			&job.BoatsCount,
			&job.BookingsCount,
			&job.Error,
		); err != nil {
			return nil, err
		}
		job.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			job.CompletedAt = &t
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// LastSuccessTimes returns, per club, the completion time of the most
// recent completed job. The scheduler uses this for cadence decisions.
func (r *SQLiteScrapeJobRepository) LastSuccessTimes(ctx context.Context) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT club_id, MAX(completed_at) FROM scrape_jobs
		WHERE status = 'completed' GROUP BY club_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := make(map[string]time.Time)
	for rows.Next() {
		var clubID string
		var completedAt sql.NullString
		if err := rows.Scan(&clubID, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				times[clubID] = t
			}
		}
	}
	return times, rows.Err()
}

// StatsSince aggregates success/failure counts and average duration for
// completed jobs started after the given instant.
func (r *SQLiteScrapeJobRepository) StatsSince(ctx context.Context, clubID string, since time.Time) (*models.ScrapeJobStats, error) {
	var stats models.ScrapeJobStats
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN status = 'completed' THEN duration_ms END)
		FROM scrape_jobs
		WHERE club_id = ? AND started_at >= ?
	`, clubID, since.UTC().Format(time.RFC3339)).Scan(&stats.SuccessCount, &stats.FailureCount, &avg)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.AvgDurationMs = avg.Float64
	}
	return &stats, nil
}

// MarkStaleRunningFailed fails running jobs older than the given age.
// Called on scheduler startup so a crash can't wedge the single-flight
// state forever.
func (r *SQLiteScrapeJobRepository) MarkStaleRunningFailed(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		UPDATE scrape_jobs SET status = 'failed', error = 'stale: process restarted mid-scrape', completed_at = ?
		WHERE status = 'running' AND started_at < ?
	`, time.Now().UTC().Format(time.RFC3339), cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
