package ports

import (
	"context"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// UserRepository is the credential store contract.
//
// Find* return domain.ErrUserNotFound when no record matches. Create must
// enforce uniqueness at the storage layer and report a violation as
// domain.ErrDuplicateUsername or domain.ErrDuplicateEmail; the service's own
// existence checks are only a pre-check.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
