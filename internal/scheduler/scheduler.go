package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

// ClubScraper runs one scrape cycle for a club. Satisfied by
// *scraper.Engine; tests substitute a stub.
type ClubScraper interface {
	ScrapeClub(ctx context.Context, club *models.Club) scraper.ScrapeResult
}

// Options configures the scheduler.
type Options struct {
	TickInterval     time.Duration // how often due clubs are evaluated, <= 1m
	MaxConcurrent    int           // global cap on in-flight scrapes
	ShutdownDeadline time.Duration // drain window on Stop
	StaleJobAge      time.Duration // running jobs older than this are swept on Start
	Logger           *slog.Logger

	// Now is the clock; tests substitute a fixed one.
	Now func() time.Time
}

// Scheduler runs the periodic scrape loop and serves on-demand requests.
// It owns the two concurrency invariants: at most one scrape per club at
// any time, and at most MaxConcurrent scrapes overall.
type Scheduler struct {
	repos  *repository.Repositories
	engine ClubScraper
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	cron *cron.Cron
	sem  chan struct{}

	mu       sync.Mutex
	inFlight map[string]bool

	wg sync.WaitGroup
}

// New creates a scheduler. Start must be called before it does anything.
func New(repos *repository.Repositories, engine ClubScraper, opts Options) *Scheduler {
	if opts.TickInterval <= 0 || opts.TickInterval > time.Minute {
		opts.TickInterval = 30 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.ShutdownDeadline <= 0 {
		opts.ShutdownDeadline = 30 * time.Second
	}
	if opts.StaleJobAge <= 0 {
		opts.StaleJobAge = time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		repos:    repos,
		engine:   engine,
		opts:     opts,
		logger:   logger,
		now:      now,
		cron:     cron.New(cron.WithSeconds()),
		sem:      make(chan struct{}, opts.MaxConcurrent),
		inFlight: make(map[string]bool),
	}
}

// Start sweeps stale jobs, runs one immediate pass so a fresh deploy does
// not wait a full tick, and begins the periodic loop.
func (s *Scheduler) Start(ctx context.Context) error {
	swept, err := s.repos.ScrapeJob.MarkStaleRunningFailed(ctx, s.opts.StaleJobAge)
	if err != nil {
		return fmt.Errorf("sweeping stale jobs: %w", err)
	}
	if swept > 0 {
		s.logger.Warn("failed stale running jobs from a previous process", "count", swept)
	}

	spec := fmt.Sprintf("@every %s", s.opts.TickInterval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("registering tick: %w", err)
	}

	s.tick(ctx)
	s.cron.Start()
	s.logger.Info("scheduler started",
		"tick_interval", s.opts.TickInterval,
		"max_concurrent", s.opts.MaxConcurrent)
	return nil
}

// Stop halts the periodic loop and waits for in-flight scrapes to drain,
// up to the shutdown deadline.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(s.opts.ShutdownDeadline):
		s.logger.Warn("scheduler stopped with scrapes still in flight", "deadline", s.opts.ShutdownDeadline)
	}
}

// tick evaluates every active club and launches scrapes for the due ones.
// A club already in flight or a full semaphore just skips until the next
// tick; there is no queue to back up.
func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	clubs, err := s.repos.Club.ListActive(ctx)
	if err != nil {
		s.logger.Error("tick: listing active clubs", "error", err)
		return
	}
	lastSuccess, err := s.repos.ScrapeJob.LastSuccessTimes(ctx)
	if err != nil {
		s.logger.Error("tick: loading last success times", "error", err)
		return
	}

	now := s.now()
	for _, club := range clubs {
		if !Due(club, lastSuccess[club.ID], now) {
			continue
		}
		s.tryScrapeAsync(ctx, club)
	}
}

// tryScrapeAsync launches a background scrape if the club is idle and a
// global slot is free; otherwise it does nothing.
func (s *Scheduler) tryScrapeAsync(ctx context.Context, club *models.Club) {
	if !s.acquireClub(club.ID) {
		return
	}
	select {
	case s.sem <- struct{}{}:
	default:
		s.releaseClub(club.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()
		defer s.releaseClub(club.ID)
		s.engine.ScrapeClub(ctx, club)
	}()
}

// RequestOnDemand runs a scrape for the club right now, synchronously.
// Returns scraper.ErrScrapeInProgress if the club already has one in
// flight; otherwise it waits for a global slot (or ctx cancellation).
func (s *Scheduler) RequestOnDemand(ctx context.Context, club *models.Club) (scraper.ScrapeResult, error) {
	if !s.acquireClub(club.ID) {
		return scraper.ScrapeResult{}, scraper.ErrScrapeInProgress
	}
	defer s.releaseClub(club.ID)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return scraper.ScrapeResult{}, ctx.Err()
	}
	defer func() { <-s.sem }()

	s.wg.Add(1)
	defer s.wg.Done()
	return s.engine.ScrapeClub(ctx, club), nil
}

// InFlight reports whether a scrape for the club is currently running.
func (s *Scheduler) InFlight(clubID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[clubID]
}

func (s *Scheduler) acquireClub(clubID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[clubID] {
		return false
	}
	s.inFlight[clubID] = true
	return true
}

func (s *Scheduler) releaseClub(clubID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, clubID)
}
