package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrUnauthorized)
	ErrInvalidCredential = fmt.Errorf("%w: invalid credential", ErrUnauthorized)
	ErrUnknownSubject    = fmt.Errorf("%w: unknown subject", ErrUnauthorized)

	ErrUserNotFound = errors.New("user not found")

	ErrInvalidRoom          = errors.New("invalid room")
	ErrInvalidEvent         = errors.New("invalid event")
	ErrConnectionClosed     = errors.New("connection closed")
	ErrConnectionSuperseded = errors.New("connection superseded by a newer one")
	ErrBusClosed            = errors.New("event bus closed")
	ErrShuttingDown         = errors.New("server is shutting down")
)
