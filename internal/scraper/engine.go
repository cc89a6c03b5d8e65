package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
)

// EngineConfig tunes one engine instance; zero values fall back to the
// documented defaults.
type EngineConfig struct {
	DaysAhead       int           // scrape window length, default 7
	CalendarWorkers int           // bounded calendar fetch concurrency, default 4
	RequestTimeout  time.Duration // per upstream request
	PostLoginDelay  time.Duration // settle time after the login POST
	MaxRetries      int           // transport retries per GET
}

// ScrapeResult summarizes one finished scrape. The ScrapeJob row is
// already committed by the time a result is returned.
type ScrapeResult struct {
	JobID         string
	Success       bool
	DurationMs    int64
	BoatsCount    int
	BookingsCount int
	FailedAssets  int
	Err           error
}

// Engine runs full scrape cycles: login, asset list, bounded parallel
// calendar fetches, normalization and a single transactional commit.
type Engine struct {
	repos     *repository.Repositories
	encryptor *crypto.Encryptor
	cfg       EngineConfig
	logger    *slog.Logger

	// newSource is swapped in tests to point at a fake upstream.
	newSource func(opts RevSportOptions) DataSource
}

// NewEngine creates a scrape engine.
func NewEngine(repos *repository.Repositories, encryptor *crypto.Encryptor, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.DaysAhead <= 0 {
		cfg.DaysAhead = 7
	}
	if cfg.CalendarWorkers <= 0 {
		cfg.CalendarWorkers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repos:     repos,
		encryptor: encryptor,
		cfg:       cfg,
		logger:    logger,
		newSource: func(opts RevSportOptions) DataSource { return NewRevSport(opts) },
	}
}

// ScrapeClub runs one complete scrape for a club. It is synchronous and
// never returns before the ScrapeJob record is committed. Single-flight
// is the scheduler's job; callers must not invoke this concurrently for
// the same club.
func (e *Engine) ScrapeClub(ctx context.Context, club *models.Club) ScrapeResult {
	log := e.logger.With("club_id", club.ID, "subdomain", club.Subdomain)
	started := time.Now()

	job := &models.ScrapeJob{
		ID:        ulid.Make().String(),
		ClubID:    club.ID,
		Status:    models.ScrapeJobRunning,
		StartedAt: started.UTC(),
	}

	if err := e.repos.ScrapeJob.Insert(ctx, job); err != nil {
		log.Error("scrape could not start", "error", err)
		return ScrapeResult{JobID: job.ID, Err: err, DurationMs: time.Since(started).Milliseconds()}
	}

	source, window, err := e.prepare(club)
	if err != nil {
		e.finishFailed(ctx, job, err)
		log.Error("scrape failed", "job_id", job.ID, "error", err)
		return ScrapeResult{JobID: job.ID, Err: err, DurationMs: time.Since(started).Milliseconds()}
	}

	boats, bookings, failedAssets, scrapeErr := e.harvest(ctx, log, club, source, window)

	var commitErr error
	if scrapeErr == nil {
		commitErr = e.commit(ctx, club.ID, window, boats, bookings, job)
	}

	result := ScrapeResult{
		JobID:         job.ID,
		DurationMs:    time.Since(started).Milliseconds(),
		BoatsCount:    len(boats),
		BookingsCount: len(bookings),
		FailedAssets:  failedAssets,
	}

	switch {
	case scrapeErr != nil:
		result.Err = scrapeErr
		e.finishFailed(ctx, job, scrapeErr)
	case commitErr != nil:
		result.Err = commitErr
		e.finishFailed(ctx, job, commitErr)
	default:
		result.Success = true
	}

	if result.Success {
		log.Info("scrape completed",
			"job_id", job.ID,
			"boats", result.BoatsCount,
			"bookings", result.BookingsCount,
			"failed_assets", failedAssets,
			"duration_ms", result.DurationMs)
	} else {
		log.Error("scrape failed", "job_id", job.ID, "error", result.Err, "duration_ms", result.DurationMs)
	}
	return result
}

// prepare validates the club's source config and builds the session.
func (e *Engine) prepare(club *models.Club) (DataSource, Window, error) {
	var w Window
	if club.DataSource.URL == "" {
		return nil, w, &ConfigError{Reason: "club has no data source URL"}
	}
	if club.DataSource.CredentialsEncrypted == "" {
		return nil, w, &ConfigError{Reason: "club has no stored credentials"}
	}

	creds, err := e.encryptor.DecryptCredentials(club.DataSource.CredentialsEncrypted)
	if err != nil {
		return nil, w, &AuthError{Reason: "stored credentials failed to decrypt"}
	}

	loc, err := time.LoadLocation(club.Timezone)
	if err != nil {
		loc = time.UTC
	}
	w = WindowFrom(time.Now(), e.cfg.DaysAhead, loc)

	source := e.newSource(RevSportOptions{
		BaseURL:        club.DataSource.URL,
		Credentials:    creds,
		RequestTimeout: e.cfg.RequestTimeout,
		PostLoginDelay: e.cfg.PostLoginDelay,
		MaxRetries:     e.cfg.MaxRetries,
		Logger:         e.logger.With("club_id", club.ID),
	})
	return source, w, nil
}

// harvest logs in, lists assets and fetches calendars with a bounded
// worker pool. Individual asset failures are tolerated as long as at
// least one asset succeeds.
func (e *Engine) harvest(ctx context.Context, log *slog.Logger, club *models.Club, source DataSource, w Window) ([]*models.Boat, []*models.Booking, int, error) {
	if err := source.Login(ctx); err != nil {
		return nil, nil, 0, err
	}

	assets, err := source.ListAssets(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	log.Debug("assets listed", "count", len(assets))

	type assetResult struct {
		asset   Asset
		entries []CalendarEntry
		err     error
	}

	jobs := make(chan Asset)
	results := make(chan assetResult, len(assets))

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.CalendarWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range jobs {
				entries, err := source.ListBookings(ctx, asset, w)
				results <- assetResult{asset: asset, entries: entries, err: err}
			}
		}()
	}
	for _, asset := range assets {
		jobs <- asset
	}
	close(jobs)
	wg.Wait()
	close(results)

	now := time.Now().UTC()
	var boats []*models.Boat
	var bookings []*models.Booking
	failed := 0
	succeeded := 0
	seen := make(map[string]bool)

	for res := range results {
		if res.err != nil {
			failed++
			log.Warn("calendar fetch failed", "source_id", res.asset.SourceID, "error", res.err)
			continue
		}
		succeeded++

		parsed := ParseBoatName(res.asset.RawName)
		boat := &models.Boat{
			ClubID:         club.ID,
			SourceID:       res.asset.SourceID,
			Name:           parsed.Name,
			BoatType:       parsed.BoatType,
			BoatCategory:   parsed.Category,
			Classification: parsed.Classification,
			WeightKg:       parsed.WeightKg,
			Metadata:       map[string]any{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if parsed.Nickname != "" {
			boat.Metadata["nickname"] = parsed.Nickname
		}
		boats = append(boats, boat)

		for _, entry := range res.entries {
			booking, err := normalizeEntry(club.ID, res.asset.SourceID, entry, w, now)
			if err != nil {
				log.Debug("dropping booking entry", "source_id", res.asset.SourceID, "error", err)
				continue
			}
			key := res.asset.SourceID + "|" + booking.BookingDate + "|" + booking.Slot.StartTime
			if seen[key] {
				continue
			}
			seen[key] = true
			bookings = append(bookings, booking)
		}
	}

	if succeeded == 0 {
		return nil, nil, failed, &UpstreamError{Reason: "every calendar fetch failed"}
	}
	return boats, bookings, failed, nil
}

// normalizeEntry converts one upstream calendar entry into a booking row,
// normalizing times to HH:MM and rejecting dates outside the window.
// BoatID temporarily carries the upstream source id; commit swaps in the
// row id after the boat upsert.
func normalizeEntry(clubID, sourceID string, entry CalendarEntry, w Window, now time.Time) (*models.Booking, error) {
	if _, err := time.Parse("2006-01-02", entry.Date); err != nil {
		return nil, fmt.Errorf("bad date %q", entry.Date)
	}
	if !w.Contains(entry.Date) {
		return nil, fmt.Errorf("date %s outside window", entry.Date)
	}
	start, err := NormalizeTime(entry.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := NormalizeTime(entry.EndTime)
	if err != nil {
		return nil, err
	}
	return &models.Booking{
		ID:          ulid.Make().String(),
		ClubID:      clubID,
		BoatID:      sourceID,
		BookingDate: entry.Date,
		Slot: models.BookingSlot{
			StartTime:  start,
			EndTime:    end,
			MemberName: entry.MemberName,
		},
		CreatedAt: now,
	}, nil
}

// commit writes the snapshot in one transaction: boat upserts, a
// window-replace of bookings, and the completed job record.
func (e *Engine) commit(ctx context.Context, clubID string, w Window, boats []*models.Boat, bookings []*models.Booking, job *models.ScrapeJob) error {
	tx, err := e.repos.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scrape transaction: %w", err)
	}
	defer tx.Rollback()

	idBySource := make(map[string]string, len(boats))
	for _, boat := range boats {
		rowID, err := e.repos.Boat.UpsertScraped(ctx, tx, boat)
		if err != nil {
			return fmt.Errorf("upsert boat %s: %w", boat.SourceID, err)
		}
		idBySource[boat.SourceID] = rowID
	}

	kept := bookings[:0]
	for _, b := range bookings {
		rowID, ok := idBySource[b.BoatID]
		if !ok {
			continue
		}
		b.BoatID = rowID
		kept = append(kept, b)
	}

	if err := e.repos.Booking.ReplaceWindow(ctx, tx, clubID, w.StartDate(), w.EndDate(), kept); err != nil {
		return fmt.Errorf("replace bookings: %w", err)
	}

	completed := time.Now().UTC()
	job.Status = models.ScrapeJobCompleted
	job.CompletedAt = &completed
	job.DurationMs = completed.Sub(job.StartedAt).Milliseconds()
	job.BoatsCount = len(boats)
	job.BookingsCount = len(kept)
	if err := e.repos.ScrapeJob.Finish(ctx, tx, job); err != nil {
		return fmt.Errorf("finish scrape job: %w", err)
	}

	return tx.Commit()
}

// finishFailed records a failed job outside any transaction. A failed
// commit after a rollback still gets its job row updated here.
func (e *Engine) finishFailed(ctx context.Context, job *models.ScrapeJob, cause error) {
	completed := time.Now().UTC()
	job.Status = models.ScrapeJobFailed
	job.CompletedAt = &completed
	job.DurationMs = completed.Sub(job.StartedAt).Milliseconds()
	job.Error = cause.Error()
	if err := e.repos.ScrapeJob.Finish(ctx, e.repos.DB, job); err != nil {
		e.logger.Error("failed to record scrape failure", "job_id", job.ID, "error", err)
	}
}
