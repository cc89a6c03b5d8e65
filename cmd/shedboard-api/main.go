// Package main is the entry point for the shedboard-api server.
// The periodic scrape loop lives in shedboard-scheduler; this process
// only runs on-demand scrapes triggered through /admin/sync.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/config"
	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/database"
	"github.com/shedboard/shedboard-api/internal/http/handlers"
	"github.com/shedboard/shedboard-api/internal/http/routes"
	"github.com/shedboard/shedboard-api/internal/logging"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scheduler"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

func main() {
	logger := logging.SetDefault()

	cfg, err := config.LoadServer()
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
	signer := auth.NewTokenSigner(cfg.JWTSecret, cfg.JWTExpiry)

	engine := scraper.NewEngine(repos, encryptor, scraper.EngineConfig{
		DaysAhead:       cfg.Scraper.DaysAhead,
		CalendarWorkers: cfg.Scraper.CalendarWorkers,
		RequestTimeout:  cfg.Scraper.RequestTimeout,
		PostLoginDelay:  cfg.Scraper.PostLoginDelay,
		MaxRetries:      2,
	}, logger)

	// Never started: serves only RequestOnDemand, with its own
	// single-flight map and a small concurrency cap.
	sched := scheduler.New(repos, engine, scheduler.Options{
		MaxConcurrent: 2,
		Logger:        logger,
	})

	h := handlers.New(repos, signer, encryptor, sched, logger)
	router := routes.New(cfg, h, repos, signer, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_domain", cfg.BaseDomain)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
