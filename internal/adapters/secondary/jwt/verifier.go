package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/arthurdotwork/forumlive/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("empty signing secret")

// Verifier checks HMAC-signed tokens issued by the forum API.
type Verifier struct {
	secret []byte
	issuer string
	parser *jwtlib.Parser
}

func NewVerifier(secret []byte, issuer string) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(5 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(issuer))
	}

	return &Verifier{
		secret: secret,
		issuer: issuer,
		parser: jwtlib.NewParser(opts...),
	}, nil
}

func (v *Verifier) Verify(token string) (domain.Claims, error) {
	var claims jwtlib.RegisteredClaims

	parsed, err := v.parser.ParseWithClaims(token, &claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}

		return v.secret, nil
	})
	if err != nil {
		return domain.Claims{}, fmt.Errorf("parser.ParseWithClaims: %w", err)
	}

	if !parsed.Valid {
		return domain.Claims{}, errors.New("invalid token")
	}

	if claims.Subject == "" {
		return domain.Claims{}, errors.New("token has no subject")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return domain.Claims{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		ExpiresAt: expiresAt,
	}, nil
}
