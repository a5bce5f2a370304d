package ports

import (
	"context"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "bearer"

// RegisterInput is the DTO passed from the transport layer on registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	RemoteIP string
}

// LoginInput is the DTO passed from the transport layer on login.
type LoginInput struct {
	Username string
	Password string
	RemoteIP string
}

// UserProfile is the public view of a user record.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AccessToken is the login result.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*UserProfile, error)
	Login(ctx context.Context, in LoginInput) (*AccessToken, error)
	// Profile loads the current record for an identity resolved from a token.
	Profile(ctx context.Context, id domain.Identity) (*UserProfile, error)
}

// AccessGuard resolves an Authorization header value to a caller identity.
type AccessGuard interface {
	Resolve(authorization string) (domain.Identity, error)
}
