package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash = %q, want $argon2id$ prefix", hash)
	}

	ok, err := VerifyPassword("correct horse battery", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("correct password did not verify")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("wrong password verified")
	}
}

func TestHashPassword_RejectsShortPasswords(t *testing.T) {
	for _, pw := range []string{"", "short", "1234567"} {
		if _, err := HashPassword(pw); !errors.Is(err, ErrPasswordTooWeak) {
			t.Errorf("HashPassword(%q) error = %v, want ErrPasswordTooWeak", pw, err)
		}
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	b, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	malformed := []string{
		"",
		"plainhash",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!$aGFzaA",
	}
	for _, h := range malformed {
		if _, err := VerifyPassword("whatever1", h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("VerifyPassword(hash=%q) error = %v, want ErrInvalidHash", h, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	fresh, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if NeedsRehash(fresh) {
		t.Error("fresh hash reported as needing rehash")
	}

	weak, err := hashWithParams("password123", Argon2Params{
		Memory:      16 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("hashWithParams() error = %v", err)
	}
	if !NeedsRehash(weak) {
		t.Error("weak-parameter hash not reported as needing rehash")
	}

	// Weak params still verify; migration happens at login, not in bulk.
	ok, err := VerifyPassword("password123", weak)
	if err != nil || !ok {
		t.Errorf("VerifyPassword(weak hash) = %v, %v; want true, nil", ok, err)
	}

	if !NeedsRehash("garbage") {
		t.Error("undecodable hash should need rehash")
	}
}
