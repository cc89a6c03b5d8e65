// Package main is the shedboard-provision CLI: operational commands for
// onboarding clubs without going through the HTTP API.
//
//	shedboard-provision create-club -name "Mosman RC" -subdomain mosman -timezone Australia/Sydney
//	shedboard-provision create-admin -club mosman -email admin@example.com -password secret123
//	shedboard-provision set-credentials -club mosman -url https://rev.example.com -username bookings -password hunter2
//	shedboard-provision seed-display -club mosman -file display.json
//	shedboard-provision force-sync -club mosman
//	shedboard-provision genkey
//
// Commands are idempotent: re-running create-club or create-admin with
// the same identity reports the existing row instead of failing.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/config"
	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/database"
	"github.com/shedboard/shedboard-api/internal/displaycfg"
	"github.com/shedboard/shedboard-api/internal/logging"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scheduler"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

func main() {
	logger := logging.SetDefault()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "genkey" {
		key, err := crypto.GenerateKey()
		if err != nil {
			logger.Error("failed to generate key", "error", err)
			os.Exit(1)
		}
		fmt.Println(hex.EncodeToString(key))
		return
	}

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

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize encryptor", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	switch cmd {
	case "create-club":
		err = createClub(ctx, repos, args)
	case "create-admin":
		err = createAdmin(ctx, repos, args)
	case "set-credentials":
		err = setCredentials(ctx, repos, encryptor, args)
	case "seed-display":
		err = seedDisplay(ctx, repos, args)
	case "force-sync":
		err = forceSync(ctx, repos, encryptor, cfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: shedboard-provision <create-club|create-admin|set-credentials|seed-display|force-sync|genkey> [flags]")
}

func createClub(ctx context.Context, repos *repository.Repositories, args []string) error {
	fs := flag.NewFlagSet("create-club", flag.ExitOnError)
	name := fs.String("name", "", "club display name")
	subdomain := fs.String("subdomain", "", "unique subdomain")
	timezone := fs.String("timezone", "Australia/Sydney", "IANA timezone")
	customDomain := fs.String("custom-domain", "", "optional custom domain")
	fs.Parse(args)

	if *name == "" || *subdomain == "" {
		return errors.New("-name and -subdomain are required")
	}
	if _, err := time.LoadLocation(*timezone); err != nil {
		return fmt.Errorf("invalid timezone %q", *timezone)
	}

	if existing, err := repos.Club.GetBySubdomain(ctx, *subdomain); err == nil {
		fmt.Printf("club already exists: %s (%s)\n", existing.ID, existing.Subdomain)
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	club := &models.Club{
		ID:             ulid.Make().String(),
		Name:           *name,
		Subdomain:      *subdomain,
		Status:         models.ClubStatusTrial,
		Timezone:       *timezone,
		DataSourceType: models.DataSourceRevsport,
	}
	if *customDomain != "" {
		club.CustomDomain = customDomain
	}
	if err := repos.Club.Create(ctx, club); err != nil {
		return err
	}
	fmt.Printf("created club %s (%s)\n", club.ID, club.Subdomain)
	return nil
}

func createAdmin(ctx context.Context, repos *repository.Repositories, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	clubSub := fs.String("club", "", "club subdomain")
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "password, min 8 chars")
	fullName := fs.String("full-name", "", "display name")
	fs.Parse(args)

	if *clubSub == "" || *email == "" || *password == "" {
		return errors.New("-club, -email and -password are required")
	}

	club, err := repos.Club.GetBySubdomain(ctx, *clubSub)
	if err != nil {
		return fmt.Errorf("club %q: %w", *clubSub, err)
	}

	if existing, err := repos.User.GetByEmail(ctx, club.ID, *email); err == nil {
		fmt.Printf("user already exists: %s (%s)\n", existing.ID, existing.Email)
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           ulid.Make().String(),
		ClubID:       club.ID,
		Email:        *email,
		PasswordHash: hash,
		FullName:     *fullName,
		Role:         models.RoleClubAdmin,
		IsActive:     true,
	}
	if err := repos.User.Create(ctx, user); err != nil {
		return err
	}
	fmt.Printf("created admin %s (%s)\n", user.ID, user.Email)
	return nil
}

func setCredentials(ctx context.Context, repos *repository.Repositories, encryptor *crypto.Encryptor, args []string) error {
	fs := flag.NewFlagSet("set-credentials", flag.ExitOnError)
	clubSub := fs.String("club", "", "club subdomain")
	url := fs.String("url", "", "upstream base URL")
	username := fs.String("username", "", "upstream login")
	password := fs.String("password", "", "upstream password")
	fs.Parse(args)

	if *clubSub == "" || *url == "" || *username == "" || *password == "" {
		return errors.New("-club, -url, -username and -password are required")
	}

	club, err := repos.Club.GetBySubdomain(ctx, *clubSub)
	if err != nil {
		return fmt.Errorf("club %q: %w", *clubSub, err)
	}

	blob, err := encryptor.EncryptCredentials(crypto.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	ds := models.DataSourceConfig{URL: *url, CredentialsEncrypted: blob}
	if err := repos.Club.UpdateDataSource(ctx, club.ID, ds); err != nil {
		return err
	}
	fmt.Printf("credentials updated for %s\n", club.Subdomain)
	return nil
}

// seedDisplay loads a full display configuration document from a JSON
// file and stores it, replacing whatever the club had. Same validation
// as PUT /admin/config.
func seedDisplay(ctx context.Context, repos *repository.Repositories, args []string) error {
	fs := flag.NewFlagSet("seed-display", flag.ExitOnError)
	clubSub := fs.String("club", "", "club subdomain")
	file := fs.String("file", "", "JSON file with branding, display_config and tv_display_config")
	fs.Parse(args)

	if *clubSub == "" || *file == "" {
		return errors.New("-club and -file are required")
	}

	club, err := repos.Club.GetBySubdomain(ctx, *clubSub)
	if err != nil {
		return fmt.Errorf("club %q: %w", *clubSub, err)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var doc struct {
		Branding        map[string]any `json:"branding"`
		DisplayConfig   map[string]any `json:"display_config"`
		TVDisplayConfig map[string]any `json:"tv_display_config"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", *file, err)
	}
	if doc.Branding == nil {
		doc.Branding = map[string]any{}
	}
	if doc.DisplayConfig == nil {
		doc.DisplayConfig = map[string]any{}
	}
	if doc.TVDisplayConfig == nil {
		doc.TVDisplayConfig = map[string]any{}
	}

	for _, section := range []map[string]any{doc.Branding, doc.DisplayConfig, doc.TVDisplayConfig} {
		if errs := displaycfg.Validate(section); errs != nil {
			return fmt.Errorf("invalid display config: %v", errs)
		}
	}

	if err := repos.Club.UpdateDisplay(ctx, club.ID, doc.Branding, doc.DisplayConfig, doc.TVDisplayConfig); err != nil {
		return err
	}
	fmt.Printf("display config seeded for %s\n", club.Subdomain)
	return nil
}

// forceSync runs one synchronous scrape, equivalent to POST /admin/sync.
func forceSync(ctx context.Context, repos *repository.Repositories, encryptor *crypto.Encryptor, cfg *config.SchedulerConfig, args []string) error {
	fs := flag.NewFlagSet("force-sync", flag.ExitOnError)
	clubSub := fs.String("club", "", "club subdomain")
	fs.Parse(args)

	if *clubSub == "" {
		return errors.New("-club is required")
	}

	club, err := repos.Club.GetBySubdomain(ctx, *clubSub)
	if err != nil {
		return fmt.Errorf("club %q: %w", *clubSub, err)
	}

	engine := scraper.NewEngine(repos, encryptor, scraper.EngineConfig{
		DaysAhead:       cfg.Scraper.DaysAhead,
		CalendarWorkers: cfg.Scraper.CalendarWorkers,
		RequestTimeout:  cfg.Scraper.RequestTimeout,
		PostLoginDelay:  cfg.Scraper.PostLoginDelay,
		MaxRetries:      2,
	}, nil)
	sched := scheduler.New(repos, engine, scheduler.Options{MaxConcurrent: 1})

	result, err := sched.RequestOnDemand(ctx, club)
	if err != nil {
		return err
	}
	if result.Err != nil {
		return result.Err
	}
	fmt.Printf("scrape %s completed: %d boats, %d bookings in %dms\n",
		result.JobID, result.BoatsCount, result.BookingsCount, result.DurationMs)
	return nil
}
