// Package handlers contains the HTTP handlers for the public and admin API.
package handlers

import (
	"context"
	"log/slog"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/crypto"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
	"github.com/shedboard/shedboard-api/internal/scraper"
)

// Syncer runs an on-demand scrape for a club. Implemented by the
// scheduler; swapped for a stub in handler tests.
type Syncer interface {
	RequestOnDemand(ctx context.Context, club *models.Club) (scraper.ScrapeResult, error)
}

// Handler bundles the dependencies shared by all route handlers.
type Handler struct {
	repos     *repository.Repositories
	signer    *auth.TokenSigner
	encryptor *crypto.Encryptor
	syncer    Syncer
	logger    *slog.Logger
}

// New creates a handler set.
func New(repos *repository.Repositories, signer *auth.TokenSigner, encryptor *crypto.Encryptor, syncer Syncer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repos:     repos,
		signer:    signer,
		encryptor: encryptor,
		syncer:    syncer,
		logger:    logger,
	}
}
