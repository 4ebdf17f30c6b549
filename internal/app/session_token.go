package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionSigner signs and verifies the session cookie value. The cookie
// carries the server-side session token as the JWT ID so a forged or
// tampered cookie is rejected before the session store is consulted.
type SessionSigner struct {
	secret []byte
}

// NewSessionSigner creates a signer keyed by secret.
func NewSessionSigner(secret string) *SessionSigner {
	return &SessionSigner{secret: []byte(secret)}
}

// Sign returns the cookie value for a session.
func (s *SessionSigner) Sign(token, userID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        token,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies a cookie value and returns the session token and user id.
func (s *SessionSigner) Parse(value string) (token, userID string, err error) {
	parsed, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return "", "", errors.New("invalid session claims")
	}
	return claims.ID, claims.Subject, nil
}
