// Package token issues and verifies HMAC-signed JWT access tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// DefaultAlgorithm is used when Config.Algorithm is empty.
const DefaultAlgorithm = "HS256"

// Config holds the process-wide signing settings.
type Config struct {
	Secret    []byte
	Algorithm string
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// Codec implements ports.TokenCodec. Immutable after construction.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	parser *jwt.Parser
	now    func() time.Time
}

// NewCodec validates cfg. An empty secret or a non-HMAC algorithm is a
// configuration error.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is empty", domain.ErrConfiguration)
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", domain.ErrConfiguration, cfg.Algorithm)
	}

	c := &Codec{
		secret: append([]byte(nil), cfg.Secret...),
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Algorithm returns the JWT alg identifier in use.
func (c *Codec) Algorithm() string { return c.method.Alg() }

// Issue signs a token for subject valid for ttl. ttl must be at least one
// second because JWT timestamps have second precision.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("issue token: empty subject")
	}
	if ttl < time.Second {
		return "", fmt.Errorf("issue token: ttl %s below one second", ttl)
	}

	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry. Returned errors wrap one of
// domain.ErrTokenMalformed, domain.ErrTokenSignature or domain.ErrTokenExpired.
// A token is expired once exp <= now; there is no leeway.
func (c *Codec) Parse(raw string) (*domain.Claims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("parse token: missing subject: %w", domain.ErrTokenMalformed)
	}

	out := &domain.Claims{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("parse token: %w", domain.ErrTokenSignature)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("parse token: %w", domain.ErrTokenExpired)
	default:
		return fmt.Errorf("parse token: %w", domain.ErrTokenMalformed)
	}
}
