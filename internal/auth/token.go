package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shedboard/shedboard-api/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the payload of an admin bearer token.
type TokenClaims struct {
	UserID string          `json:"user_id"`
	ClubID string          `json:"club_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies HMAC-signed admin tokens.
// The algorithm is pinned to HS256; tokens with any other alg are rejected.
type TokenSigner struct {
	secret []byte
	expiry time.Duration
}

// NewTokenSigner creates a signer from the process-wide JWT secret.
func NewTokenSigner(secret string, expiry time.Duration) *TokenSigner {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &TokenSigner{secret: []byte(secret), expiry: expiry}
}

// Expiry returns the configured token lifetime.
func (s *TokenSigner) Expiry() time.Duration {
	return s.expiry
}

// Mint issues a token for a user.
func (s *TokenSigner) Mint(user *models.User) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: user.ID,
		ClubID: user.ClubID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string.
func (s *TokenSigner) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.ClubID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
