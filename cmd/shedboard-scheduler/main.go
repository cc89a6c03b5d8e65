// Package main is the entry point for the shedboard-scheduler process.
// It runs the adaptive scrape loop: peak-hours clubs every 2 minutes,
// daytime every 5, overnight every 10, all in each club's own timezone.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shedboard/shedboard-api/internal/config"
	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/database"
	"github.com/shedboard/shedboard-api/internal/logging"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scheduler"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

func main() {
	logger := logging.SetDefault()

	cfg, err := config.LoadScheduler()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize encryptor", "error", err)
		os.Exit(1)
	}

	engine := scraper.NewEngine(repos, encryptor, scraper.EngineConfig{
		DaysAhead:       cfg.Scraper.DaysAhead,
		CalendarWorkers: cfg.Scraper.CalendarWorkers,
		RequestTimeout:  cfg.Scraper.RequestTimeout,
		PostLoginDelay:  cfg.Scraper.PostLoginDelay,
		MaxRetries:      2,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(repos, engine, scheduler.Options{
		TickInterval:     cfg.TickInterval,
		MaxConcurrent:    cfg.MaxConcurrent,
		ShutdownDeadline: cfg.ShutdownDeadline,
		StaleJobAge:      cfg.StaleJobAge,
		Logger:           logger,
	})
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	// Stop the loop first and let in-flight scrapes drain; cancelling the
	// context up front would abort their upstream requests mid-commit.
	logger.Info("shutting down scheduler")
	sched.Stop()
	cancel()
}
