package ports

import (
	"context"
	"time"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords. Verify collapses every failure
// (mismatch, malformed hash, unsupported algorithm) into false.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// TokenCodec issues and verifies signed, self-contained access tokens.
type TokenCodec interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Parse(token string) (*domain.Claims, error)
}

// ProfileCache is an optional read-through cache of public profiles.
type ProfileCache interface {
	Get(ctx context.Context, username string) (*UserProfile, bool, error)
	Set(ctx context.Context, profile *UserProfile) error
}
