package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/database/migrations"
	"github.com/shedboard/shedboard-api/internal/http/mw"
	"github.com/shedboard/shedboard-api/internal/http/respond"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

// stubSyncer satisfies Syncer with a canned outcome.
type stubSyncer struct {
	result scraper.ScrapeResult
	err    error
	calls  int
}

func (s *stubSyncer) RequestOnDemand(ctx context.Context, club *models.Club) (scraper.ScrapeResult, error) {
	s.calls++
	return s.result, s.err
}

type fixture struct {
	h      *Handler
	repos  *repository.Repositories
	enc    *crypto.Encryptor
	signer *auth.TokenSigner
	syncer *stubSyncer
	club   *models.Club
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}

	repos := repository.NewRepositories(db)
	signer := auth.NewTokenSigner("test-secret", time.Hour)
	syncer := &stubSyncer{}

	club := &models.Club{
		ID:        ulid.Make().String(),
		Name:      "Test Rowing Club",
		Subdomain: "test",
		Timezone:  "Australia/Sydney",
		Branding:  map[string]any{"primary_color": "#003366", "logo_url": "/logo.png"},
	}
	if err := repos.Club.Create(context.Background(), club); err != nil {
		t.Fatalf("failed to create test club: %v", err)
	}

	return &fixture{
		h:      New(repos, signer, enc, syncer, nil),
		repos:  repos,
		enc:    enc,
		signer: signer,
		syncer: syncer,
		club:   club,
	}
}

// reloadClub refreshes the fixture's club from the database, as the
// tenant middleware would on the next request.
func (f *fixture) reloadClub(t *testing.T) {
	t.Helper()
	club, err := f.repos.Club.GetByID(context.Background(), f.club.ID)
	if err != nil {
		t.Fatalf("reloading club: %v", err)
	}
	f.club = club
}

// do routes one request through a chi router with the club bound to the
// context, mirroring what the middleware chain provides in production.
func (f *fixture) do(method, pattern, target string, body any, handler http.HandlerFunc, header http.Header) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req = req.WithContext(context.WithValue(req.Context(), mw.ClubKey, f.club))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return env
}

func (f *fixture) insertBoat(t *testing.T, sourceID, name string) string {
	t.Helper()
	boat := &models.Boat{
		ClubID:       f.club.ID,
		SourceID:     sourceID,
		Name:         name,
		BoatType:     "2X",
		BoatCategory: models.BoatCategoryRace,
	}
	id, err := f.repos.Boat.UpsertScraped(context.Background(), f.repos.DB, boat)
	if err != nil {
		t.Fatalf("failed to insert test boat: %v", err)
	}
	return id
}

func (f *fixture) insertUser(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := &models.User{
		ClubID:       f.club.ID,
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test Admin",
		IsActive:     active,
	}
	if err := f.repos.User.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
	return user
}
