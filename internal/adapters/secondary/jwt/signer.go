package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer mints tokens the same way the forum API does. It backs the token
// command and the tests; production tokens come from the API.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewSigner(secret []byte, issuer string, ttl time.Duration) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &Signer{secret: secret, issuer: issuer, ttl: ttl}, nil
}

func (s *Signer) Sign(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)

	claims := jwtlib.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwtlib.NewNumericDate(now),
		NotBefore: jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(exp),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token.SignedString: %w", err)
	}

	return signed, exp, nil
}
