package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shedboard/shedboard-api/internal/http/mw"
	"github.com/shedboard/shedboard-api/internal/http/respond"
	"github.com/shedboard/shedboard-api/internal/repository"
)

const (
	defaultBoatLimit    = 100
	maxBoatLimit        = 500
	defaultBookingLimit = 500
	maxBookingRangeDays = 31
)

// pageMeta is the pagination block on list responses.
type pageMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListBoats handles GET /api/v1/boats.
func (h *Handler) ListBoats(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	limit, ok := intQuery(r, "limit", defaultBoatLimit)
	if !ok || limit < 1 {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "limit must be a positive integer")
		return
	}
	if limit > maxBoatLimit {
		limit = maxBoatLimit
	}
	offset, ok := intQuery(r, "offset", 0)
	if !ok || offset < 0 {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "offset must be a non-negative integer")
		return
	}

	boats, err := h.repos.Boat.List(r.Context(), club.ID, limit, offset)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	total, err := h.repos.Boat.Count(r.Context(), club.ID)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.OKMeta(w, http.StatusOK, boats, pageMeta{Total: total, Limit: limit, Offset: offset})
}

// GetBoat handles GET /api/v1/boats/{id}. A boat belonging to another
// club is indistinguishable from one that does not exist.
func (h *Handler) GetBoat(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	boat, err := h.repos.Boat.GetByID(r.Context(), club.ID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, "boat not found")
	case err != nil:
		respond.Internal(w, r, err)
	default:
		respond.OK(w, http.StatusOK, boat)
	}
}

// ListBookings handles GET /api/v1/bookings. Accepts either date= or a
// from=/to= pair (max 31 days), plus an optional boat filter. With no
// window given it returns today's bookings.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())
	q := r.URL.Query()

	limit, ok := intQuery(r, "limit", defaultBookingLimit)
	if !ok || limit < 1 {
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "limit must be a positive integer")
		return
	}
	if limit > defaultBookingLimit {
		limit = defaultBookingLimit
	}

	date := q.Get("date")
	from, to := q.Get("from"), q.Get("to")
	boatID := q.Get("boat")

	switch {
	case date != "":
		if !validDate(date) {
			respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "date must be YYYY-MM-DD")
			return
		}
		bookings, err := h.repos.Booking.ListByDate(r.Context(), club.ID, date, limit)
		if err != nil {
			respond.Internal(w, r, err)
			return
		}
		respond.OK(w, http.StatusOK, bookings)

	case from != "" || to != "":
		if from == "" || to == "" {
			respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "from and to are both required")
			return
		}
		fromT, okFrom := parseDate(from)
		toT, okTo := parseDate(to)
		if !okFrom || !okTo {
			respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "from and to must be YYYY-MM-DD")
			return
		}
		if toT.Before(fromT) {
			respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "from must not be after to")
			return
		}
		if toT.Sub(fromT) > maxBookingRangeDays*24*time.Hour {
			respond.Error(w, r, http.StatusBadRequest, respond.CodeValidation, "range must not exceed 31 days")
			return
		}
		bookings, err := h.repos.Booking.ListRange(r.Context(), club.ID, from, to, boatID, limit)
		if err != nil {
			respond.Internal(w, r, err)
			return
		}
		respond.OK(w, http.StatusOK, bookings)

	default:
		today := time.Now().Format("2006-01-02")
		bookings, err := h.repos.Booking.ListByDate(r.Context(), club.ID, today, limit)
		if err != nil {
			respond.Internal(w, r, err)
			return
		}
		respond.OK(w, http.StatusOK, bookings)
	}
}

// displayPayload is the club-facing configuration document.
type displayPayload struct {
	Name            string         `json:"name"`
	Branding        map[string]any `json:"branding"`
	DisplayConfig   map[string]any `json:"display_config"`
	TVDisplayConfig map[string]any `json:"tv_display_config"`
}

// GetConfig handles GET /api/v1/config with ETag revalidation: the tag
// is the hex SHA-256 of the JSON body, so any config change invalidates.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	club := mw.ClubFrom(r.Context())

	payload := displayPayload{
		Name:            club.Name,
		Branding:        club.Branding,
		DisplayConfig:   club.DisplayConfig,
		TVDisplayConfig: club.TVDisplayConfig,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	respond.OK(w, http.StatusOK, json.RawMessage(body))
}

// Health handles GET /api/v1/health. Works without tenant context so
// platform monitors can probe any host.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dbStatus := "ok"
	status := "ok"
	httpStatus := http.StatusOK
	if err := h.repos.DB.PingContext(r.Context()); err != nil {
		dbStatus = "unavailable"
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.OK(w, httpStatus, map[string]any{
		"status": status,
		"checks": map[string]any{
			"database": map[string]any{
				"status":    dbStatus,
				"latencyMs": time.Since(start).Milliseconds(),
			},
		},
	})
}

func intQuery(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}

func validDate(s string) bool {
	_, ok := parseDate(s)
	return ok
}
