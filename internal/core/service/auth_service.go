package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/credential-service/internal/core/domain"
	"github.com/99minutos/credential-service/internal/core/ports"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 30 * time.Minute

// AuthService implements registration, login and profile lookup.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenCodec
	tokenTTL time.Duration
	audit    ports.AuditPublisher
	cache    ports.ProfileCache
	log      zerolog.Logger
	now      func() time.Time
}

// AuthOption configures optional AuthService collaborators.
type AuthOption func(*AuthService)

// WithAuditPublisher routes register/login outcomes to an audit trail.
func WithAuditPublisher(p ports.AuditPublisher) AuthOption {
	return func(s *AuthService) { s.audit = p }
}

// WithProfileCache enables read-through caching for Profile.
func WithProfileCache(c ports.ProfileCache) AuthOption {
	return func(s *AuthService) { s.cache = c }
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) AuthOption {
	return func(s *AuthService) { s.log = log }
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	tokenTTL time.Duration,
	opts ...AuthOption,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	s := &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account. Username is checked before email, so when
// both are taken the reported conflict is always ErrDuplicateUsername.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.UserProfile, error) {
	profile, err := s.register(ctx, in)
	if err != nil {
		s.publish(domain.EventRegister, in.Username, in.RemoteIP, err)
		return nil, err
	}
	s.publish(domain.EventRegister, in.Username, in.RemoteIP, nil)
	return profile, nil
}

func (s *AuthService) register(ctx context.Context, in ports.RegisterInput) (*ports.UserProfile, error) {
	if err := s.ensureAbsent(ctx, s.users.FindByUsername, in.Username, domain.ErrDuplicateUsername); err != nil {
		return nil, err
	}
	if err := s.ensureAbsent(ctx, s.users.FindByEmail, in.Email, domain.ErrDuplicateEmail); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
		// lost a race against a concurrent registration; the store is authoritative
		return nil, err
	default:
		return nil, fmt.Errorf("register: %w: %w", domain.ErrPersistence, err)
	}

	s.log.Info().Str("username", created.Username).Msg("user registered")
	return &ports.UserProfile{Username: created.Username, Email: created.Email}, nil
}

func (s *AuthService) ensureAbsent(
	ctx context.Context,
	find func(context.Context, string) (*domain.User, error),
	key string,
	conflict error,
) error {
	_, err := find(ctx, key)
	switch {
	case err == nil:
		return conflict
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("register: %w: %w", domain.ErrPersistence, err)
	}
}

// Login verifies credentials and issues a bearer token. An unknown username
// and a wrong password produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AccessToken, error) {
	tok, err := s.login(ctx, in)
	s.publish(domain.EventLogin, in.Username, in.RemoteIP, err)
	return tok, err
}

func (s *AuthService) login(ctx context.Context, in ports.LoginInput) (*ports.AccessToken, error) {
	user, err := s.users.FindByUsername(ctx, in.Username)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("login: %w: %w", domain.ErrPersistence, err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	signed, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	return &ports.AccessToken{AccessToken: signed, TokenType: ports.TokenTypeBearer}, nil
}

// Profile re-reads the identity's record so callers get the stored email.
// A token whose subject no longer exists is treated as an invalid token.
func (s *AuthService) Profile(ctx context.Context, id domain.Identity) (*ports.UserProfile, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, id.Username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", id.Username).Msg("profile cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	user, err := s.users.FindByUsername(ctx, id.Username)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.ErrInvalidToken
	default:
		return nil, fmt.Errorf("profile: %w: %w", domain.ErrPersistence, err)
	}

	profile := &ports.UserProfile{Username: user.Username, Email: user.Email}
	if s.cache != nil {
		if err := s.cache.Set(ctx, profile); err != nil {
			s.log.Warn().Err(err).Str("username", id.Username).Msg("profile cache write failed")
		}
	}
	return profile, nil
}

func (s *AuthService) publish(kind domain.AuthEventKind, username, remoteIP string, err error) {
	if s.audit == nil {
		return
	}
	ev := domain.AuthEvent{
		Username:   username,
		Kind:       kind,
		Outcome:    domain.OutcomeSuccess,
		RemoteIP:   remoteIP,
		OccurredAt: s.now().UTC(),
	}
	if err != nil {
		ev.Outcome = domain.OutcomeFailure
		ev.Reason = failureReason(err)
	}
	s.audit.Publish(ev)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrPasswordTooLong):
		return "password_too_long"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
