package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const bearerScheme = "bearer"

type Authenticator struct {
	verifier TokenVerifier
	users    UserDirectory
}

func NewAuthenticator(verifier TokenVerifier, users UserDirectory) *Authenticator {
	return &Authenticator{verifier: verifier, users: users}
}

// BearerToken accepts either "Bearer <token>" or a bare token.
func BearerToken(credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if strings.EqualFold(credential, bearerScheme) {
		return "", ErrMissingCredential
	}

	if scheme, rest, ok := strings.Cut(credential, " "); ok && strings.EqualFold(scheme, bearerScheme) {
		credential = strings.TrimSpace(rest)
	}

	if credential == "" {
		return "", ErrMissingCredential
	}

	if strings.ContainsAny(credential, " \t") {
		return "", fmt.Errorf("%w: malformed token", ErrInvalidCredential)
	}

	return credential, nil
}

func (a *Authenticator) Authenticate(ctx context.Context, credential string) (Identity, error) {
	token, err := BearerToken(credential)
	if err != nil {
		return Identity{}, err
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: verifier.Verify: %w", ErrInvalidCredential, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject %q", ErrInvalidCredential, claims.Subject)
	}

	user, err := a.users.ResolveUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Identity{}, fmt.Errorf("%w: %s", ErrUnknownSubject, userID)
		}

		return Identity{}, fmt.Errorf("users.ResolveUser: %w", err)
	}

	return NewIdentity(user), nil
}
