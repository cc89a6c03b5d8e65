package mw

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shedboard/shedboard-api/internal/models"
)

// accessLogKey carries the mutable log state through the middleware
// chain so the tenant resolver, which runs later, can attach the club.
type accessLogKey struct{}

type accessLogState struct {
	club *models.Club
}

// AccessLog logs one line per request: request id, method, matched route,
// status, bytes written and duration. When the tenant resolver has run,
// the resolved club id is included.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			state := &accessLogState{}
			ctx := context.WithValue(r.Context(), accessLogKey{}, state)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []any{
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if state.club != nil {
				attrs = append(attrs, "club_id", state.club.ID)
			}
			logger.Info("request", attrs...)
		})
	}
}
