// Package memory provides an in-process credential store for development and
// tests. Data does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// UserRepository implements ports.UserRepository. Both uniqueness constraints
// are checked and applied under one lock, so concurrent inserts cannot both win.
type UserRepository struct {
	mu         sync.RWMutex
	byUsername map[string]*domain.User
	byEmail    map[string]string // email -> username
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byUsername: make(map[string]*domain.User),
		byEmail:    make(map[string]string),
	}
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	username, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *r.byUsername[username]
	return &clone, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return nil, domain.ErrDuplicateUsername
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrDuplicateEmail
	}

	stored := *user
	r.byUsername[stored.Username] = &stored
	r.byEmail[stored.Email] = stored.Username

	out := stored
	return &out, nil
}
