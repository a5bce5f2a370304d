package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already registered")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrPersistence        = errors.New("persistence failure")
	ErrConfiguration      = errors.New("invalid configuration")
)

// ErrInvalidToken is the only token failure callers outside the codec see.
// The sub-kinds below wrap it so errors.Is(err, ErrInvalidToken) holds for all.
var (
	ErrInvalidToken   = errors.New("could not validate credentials")
	ErrTokenMalformed = fmt.Errorf("%w: malformed token", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrInvalidToken)
)
