// Package respond implements the canonical response envelope shared by
// handlers and middleware. Every response body is
// {success, data?, error?, meta?}; error codes form a closed set.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shedboard/shedboard-api/internal/http/reqctx"
)

// ErrorCode is the closed set of API error codes.
type ErrorCode string

const (
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeScrapeInProgress ErrorCode = "SCRAPE_IN_PROGRESS"
	CodeUpstreamError    ErrorCode = "UPSTREAM_ERROR"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	RequestID string    `json:"requestId"`
}

// Envelope is the top-level response shape.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    any        `json:"meta,omitempty"`
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// OKMeta writes a success envelope with a meta block (pagination etc).
func OKMeta(w http.ResponseWriter, status int, data, meta any) {
	writeJSON(w, status, Envelope{Success: true, Data: data, Meta: meta})
}

// Error writes an error envelope. The request id comes from the request
// context so clients can quote it for support lookups.
func Error(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	ErrorDetails(w, r, status, code, message, nil)
}

// ErrorDetails writes an error envelope with field-level details.
func ErrorDetails(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string, details any) {
	writeJSON(w, status, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: middleware.GetReqID(r.Context()),
		},
	})
}

// Internal logs the cause and writes an opaque INTERNAL_ERROR envelope.
// Technical detail stays in the logs; the client gets the request id.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	attrs := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"status", http.StatusInternalServerError,
		"error", err,
	}
	if club := reqctx.ClubFrom(r.Context()); club != nil {
		attrs = append(attrs, "club_id", club.ID)
	}
	slog.Error("request failed", attrs...)
	Error(w, r, http.StatusInternalServerError, CodeInternalError, "something went wrong")
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
