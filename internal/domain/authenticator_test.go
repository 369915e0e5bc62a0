package domain_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/arthurdotwork/forumlive/internal/domain/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	t.Run("it should strip the bearer scheme", func(t *testing.T) {
		t.Parallel()

		token, err := domain.BearerToken("Bearer abc.def.ghi")
		require.NoError(t, err)
		require.Equal(t, "abc.def.ghi", token)

		token, err = domain.BearerToken("bearer   abc.def.ghi ")
		require.NoError(t, err)
		require.Equal(t, "abc.def.ghi", token)
	})

	t.Run("it should accept a bare token", func(t *testing.T) {
		t.Parallel()

		token, err := domain.BearerToken("abc.def.ghi")
		require.NoError(t, err)
		require.Equal(t, "abc.def.ghi", token)
	})

	t.Run("it should refuse an empty credential", func(t *testing.T) {
		t.Parallel()

		for _, credential := range []string{"", "   ", "Bearer ", "Bearer", "bearer", "BEARER   ", " Bearer \t"} {
			_, err := domain.BearerToken(credential)
			require.ErrorIs(t, err, domain.ErrMissingCredential, credential)
			require.ErrorIs(t, err, domain.ErrUnauthorized, credential)
		}
	})

	t.Run("it should refuse a token with whitespace", func(t *testing.T) {
		t.Parallel()

		_, err := domain.BearerToken("Bearer abc def")
		require.ErrorIs(t, err, domain.ErrInvalidCredential)
	})
}

func TestAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verifier := mocks.NewMockTokenVerifier(t)
	users := mocks.NewMockUserDirectory(t)
	authenticator := domain.NewAuthenticator(verifier, users)

	user := domain.User{
		ID:       uuid.New(),
		Username: "arthur",
		Roles:    []domain.Role{{ID: uuid.New(), Name: "admin"}},
	}

	t.Run("it should refuse a missing credential without verifying it", func(t *testing.T) {
		for _, credential := range []string{"", "Bearer "} {
			_, err := authenticator.Authenticate(ctx, credential)
			require.ErrorIs(t, err, domain.ErrMissingCredential)
			require.ErrorIs(t, err, domain.ErrUnauthorized)
		}
	})

	t.Run("it should refuse a credential the verifier rejects", func(t *testing.T) {
		verifier.On("Verify", "expired").Return(domain.Claims{}, fmt.Errorf("token is expired")).Once()

		_, err := authenticator.Authenticate(ctx, "Bearer expired")
		require.ErrorIs(t, err, domain.ErrInvalidCredential)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("it should refuse a subject that is not a user id", func(t *testing.T) {
		verifier.On("Verify", "not-a-uuid").Return(domain.Claims{Subject: "arthur"}, nil).Once()

		_, err := authenticator.Authenticate(ctx, "not-a-uuid")
		require.ErrorIs(t, err, domain.ErrInvalidCredential)
	})

	t.Run("it should refuse a subject the directory does not know", func(t *testing.T) {
		unknown := uuid.New()
		verifier.On("Verify", "unknown").Return(domain.Claims{Subject: unknown.String()}, nil).Once()
		users.On("ResolveUser", ctx, unknown).Return(domain.User{}, domain.ErrUserNotFound).Once()

		_, err := authenticator.Authenticate(ctx, "Bearer unknown")
		require.ErrorIs(t, err, domain.ErrUnknownSubject)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("it should not report a directory outage as unauthorized", func(t *testing.T) {
		verifier.On("Verify", "valid").Return(domain.Claims{Subject: user.ID.String()}, nil).Once()
		users.On("ResolveUser", ctx, user.ID).Return(domain.User{}, fmt.Errorf("connection refused")).Once()

		_, err := authenticator.Authenticate(ctx, "Bearer valid")
		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("it should resolve the identity of a valid credential", func(t *testing.T) {
		verifier.On("Verify", "valid").Return(domain.Claims{Subject: user.ID.String()}, nil).Once()
		users.On("ResolveUser", ctx, user.ID).Return(user, nil).Once()

		identity, err := authenticator.Authenticate(ctx, "Bearer valid")
		require.NoError(t, err)
		require.Equal(t, domain.Identity{UserID: user.ID, Username: "arthur", Roles: []string{"admin"}}, identity)
	})
}
