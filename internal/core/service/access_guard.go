package service

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/credential-service/internal/core/domain"
	"github.com/99minutos/credential-service/internal/core/ports"
)

const bearerScheme = "bearer"

// AccessGuard resolves "Authorization: Bearer <token>" header values to an
// identity. It trusts the token's subject and does not consult the store.
type AccessGuard struct {
	tokens ports.TokenCodec
	log    zerolog.Logger
}

func NewAccessGuard(tokens ports.TokenCodec, log zerolog.Logger) *AccessGuard {
	return &AccessGuard{tokens: tokens, log: log}
}

// Resolve returns ErrUnauthenticated when no bearer credential is present and
// ErrInvalidToken for any codec failure. The specific codec failure is only
// logged.
func (g *AccessGuard) Resolve(authorization string) (domain.Identity, error) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	claims, err := g.tokens.Parse(raw)
	if err != nil {
		g.log.Debug().Err(err).Msg("bearer token rejected")
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{Username: claims.Subject}, nil
}
