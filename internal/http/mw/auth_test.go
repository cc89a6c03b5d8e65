package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/models"
	"github.com/shedboard/shedboard-api/internal/repository"
)

type stubUserRepo struct {
	byID map[string]*models.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, clubID, email string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, clubID, userID, hash string) error {
	return nil
}

func (s *stubUserRepo) SetActive(ctx context.Context, clubID, userID string, active bool) error {
	return nil
}

func authFixture(t *testing.T) (*auth.TokenSigner, *stubUserRepo, *models.Club) {
	t.Helper()
	signer := auth.NewTokenSigner("test-secret", time.Hour)
	club := &models.Club{ID: "club-1", Subdomain: "mosman", Status: models.ClubStatusActive}
	users := &stubUserRepo{byID: map[string]*models.User{
		"user-1": {ID: "user-1", ClubID: "club-1", Email: "admin@example.com", IsActive: true},
		"user-2": {ID: "user-2", ClubID: "club-1", Email: "former@example.com", IsActive: false},
	}}
	return signer, users, club
}

// doAuth runs a request with the given Authorization header through the
// middleware, with the club already bound to the context.
func doAuth(t *testing.T, signer *auth.TokenSigner, users *stubUserRepo, club *models.Club, header string) (*httptest.ResponseRecorder, *auth.TokenClaims) {
	t.Helper()
	var claims *auth.TokenClaims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/status", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	if club != nil {
		req = req.WithContext(context.WithValue(req.Context(), ClubKey, club))
	}
	rec := httptest.NewRecorder()
	Auth(signer, users)(inner).ServeHTTP(rec, req)
	return rec, claims
}

func mintFor(t *testing.T, signer *auth.TokenSigner, userID, clubID string) string {
	t.Helper()
	token, err := signer.Mint(&models.User{ID: userID, ClubID: clubID, Role: models.RoleClubAdmin})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	return token
}

func TestAuth_ValidToken(t *testing.T) {
	signer, users, club := authFixture(t)
	token := mintFor(t, signer, "user-1", "club-1")

	rec, claims := doAuth(t, signer, users, club, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if claims == nil || claims.UserID != "user-1" || claims.ClubID != "club-1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAuth_MissingOrMalformedHeader(t *testing.T) {
	signer, users, club := authFixture(t)

	for _, header := range []string{"", "Bearer ", "Basic dXNlcjpwYXNz", "not-a-bearer"} {
		rec, _ := doAuth(t, signer, users, club, header)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	signer, users, club := authFixture(t)
	rec, _ := doAuth(t, signer, users, club, "Bearer not.a.token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_WrongTenantIsForbidden(t *testing.T) {
	signer, users, club := authFixture(t)
	// A perfectly valid token for another club. The distinction matters:
	// 401 would invite a re-login that cannot help.
	token := mintFor(t, signer, "user-9", "club-other")

	rec, _ := doAuth(t, signer, users, club, "Bearer "+token)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAuth_DeletedUser(t *testing.T) {
	signer, users, club := authFixture(t)
	token := mintFor(t, signer, "user-deleted", "club-1")

	rec, _ := doAuth(t, signer, users, club, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_DeactivatedUser(t *testing.T) {
	signer, users, club := authFixture(t)
	// The token is still within its lifetime; deactivation must win anyway.
	token := mintFor(t, signer, "user-2", "club-1")

	rec, _ := doAuth(t, signer, users, club, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
