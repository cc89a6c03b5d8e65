package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shedboard/shedboard-api/internal/http/respond"
	"github.com/shedboard/shedboard-api/internal/models"
)

func hitWithClub(handler http.Handler, club *models.Club) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/boats", nil)
	if club != nil {
		req = req.WithContext(context.WithValue(req.Context(), ClubKey, club))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByClub(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitByClub("public", 3)(inner)

	clubA := &models.Club{ID: "club-a"}
	clubB := &models.Club{ID: "club-b"}

	for i := 0; i < 3; i++ {
		if rec := hitWithClub(handler, clubA); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := hitWithClub(handler, clubA)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", rec.Code)
	}
	var env respond.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("429 body is not an envelope: %v", err)
	}
	if env.Success || env.Error == nil || env.Error.Code != respond.CodeRateLimited {
		t.Errorf("envelope = %+v", env)
	}

	// Another tenant has its own bucket and is unaffected.
	if rec := hitWithClub(handler, clubB); rec.Code != http.StatusOK {
		t.Errorf("other club status = %d, want 200", rec.Code)
	}
}

func TestRateLimitByClub_LanesAreIndependent(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	public := RateLimitByClub("public", 1)(inner)
	admin := RateLimitByClub("admin", 1)(inner)
	club := &models.Club{ID: "club-a"}

	if rec := hitWithClub(public, club); rec.Code != http.StatusOK {
		t.Fatalf("public status = %d, want 200", rec.Code)
	}
	if rec := hitWithClub(public, club); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("public over-limit status = %d, want 429", rec.Code)
	}
	// Exhausting the public lane leaves the admin lane untouched.
	if rec := hitWithClub(admin, club); rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}

func TestRateLimitLoginByIP(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitLoginByIP(2)(inner)

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if hit("10.0.0.1:1234") != http.StatusOK || hit("10.0.0.1:5678") != http.StatusOK {
		t.Fatal("initial requests should pass")
	}
	if code := hit("10.0.0.1:9999"); code != http.StatusTooManyRequests {
		t.Errorf("third request from same IP = %d, want 429", code)
	}
	if code := hit("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("request from different IP = %d, want 200", code)
	}
}
