package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/displaycfg"
	"github.com/shedboard/shedboard-api/internal/http/mw"
	"github.com/shedboard/shedboard-api/internal/http/respond"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

const statusJobHistory = 10

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/admin/login. Bad email and bad password are
// indistinguishable in the response.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "email and password are required")
		return
	}

	user, err := h.repos.User.GetByEmail(r.Context(), club.ID, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match || !user.IsActive {
		respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid email or password")
		return
	}

	// Opportunistic rehash when the Argon2 parameters have been raised.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.repos.User.UpdatePasswordHash(r.Context(), club.ID, user.ID, newHash); err != nil {
				h.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
			}
		}
	}

	token, err := h.signer.Mint(user)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OK(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresIn": int(h.signer.Expiry().Seconds()),
		"user":      user,
	})
}

// Status handles GET /api/v1/admin/status: recent scrape jobs plus 24h
// success/failure aggregates.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	jobs, err := h.repos.ScrapeJob.LastN(r.Context(), club.ID, statusJobHistory)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	stats, err := h.repos.ScrapeJob.StatsSince(r.Context(), club.ID, time.Now().Add(-24*time.Hour))
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OK(w, http.StatusOK, map[string]any{
		"recentJobs": jobs,
		"last24h":    stats,
		"inProgress": hasRunning(jobs),
	})
}

func hasRunning(jobs []*models.ScrapeJob) bool {
	for _, j := range jobs {
		if j.Status == models.ScrapeJobRunning {
			return true
		}
	}
	return false
}

type credentialsRequest struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateCredentials handles PUT /api/v1/admin/credentials. Password is
// optional: omitting it updates the URL/username without rotating the
// stored secret. Rotation always produces a fresh nonce.
func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "invalid JSON body")
		return
	}
	if req.URL == "" || req.Username == "" {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "url and username are required")
		return
	}

	password := req.Password
	if password == "" {
		if club.DataSource.CredentialsEncrypted == "" {
			respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "password is required when no credentials are stored")
			return
		}
		current, err := h.encryptor.DecryptCredentials(club.DataSource.CredentialsEncrypted)
		if err != nil {
			respond.Internal(w, r, err)
			return
		}
		password = current.Password
	}

	blob, err := h.encryptor.EncryptCredentials(crypto.Credentials{Username: req.Username, Password: password})
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	ds := models.DataSourceConfig{URL: req.URL, CredentialsEncrypted: blob}
	if err := h.repos.Club.UpdateDataSource(r.Context(), club.ID, ds); err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OK(w, http.StatusOK, map[string]any{"url": req.URL, "username": req.Username})
}

type displayRequest struct {
	Branding        map[string]any `json:"branding"`
	DisplayConfig   map[string]any `json:"display_config"`
	TVDisplayConfig map[string]any `json:"tv_display_config"`
}

// UpdateDisplay handles PUT /api/v1/admin/display: a partial patch that
// deep-merges into the stored config, so unspecified keys survive.
func (h *Handler) UpdateDisplay(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "invalid JSON body")
		return
	}

	branding := displaycfg.Merge(club.Branding, req.Branding)
	display := displaycfg.Merge(club.DisplayConfig, req.DisplayConfig)
	tv := displaycfg.Merge(club.TVDisplayConfig, req.TVDisplayConfig)

	if !h.validateDisplay(w, r, branding, display, tv) {
		return
	}

	if err := h.repos.Club.UpdateDisplay(r.Context(), club.ID, branding, display, tv); err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OK(w, http.StatusOK, displayRequest{Branding: branding, DisplayConfig: display, TVDisplayConfig: tv})
}

// GetAdminConfig handles GET /api/v1/admin/config.
func (h *Handler) GetAdminConfig(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())
	respond.OK(w, http.StatusOK, map[string]any{
		"branding":          club.Branding,
		"display_config":    club.DisplayConfig,
		"tv_display_config": club.TVDisplayConfig,
		"data_source_url":   club.DataSource.URL,
	})
}

// UpdateAdminConfig handles PUT /api/v1/admin/config: a full replace of
// the configuration document, unlike the merging /admin/display.
func (h *Handler) UpdateAdminConfig(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	var req displayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "invalid JSON body")
		return
	}
	if req.Branding == nil {
		req.Branding = map[string]any{}
	}
	if req.DisplayConfig == nil {
		req.DisplayConfig = map[string]any{}
	}
	if req.TVDisplayConfig == nil {
		req.TVDisplayConfig = map[string]any{}
	}

	if !h.validateDisplay(w, r, req.Branding, req.DisplayConfig, req.TVDisplayConfig) {
		return
	}

	if err := h.repos.Club.UpdateDisplay(r.Context(), club.ID, req.Branding, req.DisplayConfig, req.TVDisplayConfig); err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OK(w, http.StatusOK, req)
}

// validateDisplay runs the shared validation and writes the field-level
// 400 on failure. Returns false when the response was already written.
func (h *Handler) validateDisplay(w http.ResponseWriter, r *http.Request, sections ...map[string]any) bool {
	details := map[string]string{}
	for _, section := range sections {
		for field, msg := range displaycfg.Validate(section) {
			details[field] = msg
		}
	}
	if len(details) > 0 {
		respond.ErrorDetails(w, r, http.StatusBadRequest, respond.CodeValidation, "display config is invalid", details)
		return false
	}
	return true
}

// Sync handles POST /api/v1/admin/sync: a synchronous on-demand scrape.
// The scrape outlives a client disconnect so the data still lands; only
// the response is lost.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	result, err := h.syncer.RequestOnDemand(context.WithoutCancel(r.Context()), club)
	if errors.Is(err, scraper.ErrScrapeInProgress) {
		respond.Error(w, r, http.StatusConflict, respond.CodeScrapeInProgress, "a scrape for this club is already running")
		return
	}
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	if result.Err != nil {
		code := respond.CodeUpstreamError
		status := http.StatusBadGateway
		if scraper.IsConfigError(result.Err) {
			code = respond.CodeValidation
			status = http.StatusBadRequest
		}
		respond.ErrorDetails(w, r, status, code, "scrape failed", map[string]any{
			"jobId":  result.JobID,
			"reason": result.Err.Error(),
		})
		return
	}

	respond.OK(w, http.StatusOK, map[string]any{
		"jobId":         result.JobID,
		"durationMs":    result.DurationMs,
		"boatsCount":    result.BoatsCount,
		"bookingsCount": result.BookingsCount,
		"failedAssets":  result.FailedAssets,
	})
}
