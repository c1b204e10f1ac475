package auth

import (
	"fmt"
	"time"

	"livebid-service/internal/domain/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenVerifier verifies bearer tokens issued by the identity subsystem and
// extracts the caller identity. Issuance lives with that subsystem; this
// service only shares the HMAC secret.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for HS256-signed tokens
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

type claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Verify parses and validates a token string, returning the identity it
// carries. Expired, malformed, or wrongly-signed tokens return
// shared.ErrInvalidToken.
func (v *TokenVerifier) Verify(tokenString string) (shared.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return shared.Identity{}, shared.ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return shared.Identity{}, shared.ErrInvalidToken
	}

	return shared.Identity{
		UserID:   userID,
		Username: c.Username,
		IsAdmin:  c.IsAdmin,
	}, nil
}

// Sign mints a token for the given identity. It exists for the boundary with
// the identity subsystem and for tests; production tokens come from the
// identity service sharing the same secret.
func (v *TokenVerifier) Sign(identity shared.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: identity.Username,
		IsAdmin:  identity.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
