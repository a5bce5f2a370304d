package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/99minutos/credential-service/internal/core/domain"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	u, err := repo.FindByUsername(ctx, "alice")
	if err != nil || u.Email != "a@x.com" {
		t.Fatalf("FindByUsername: %+v, %v", u, err)
	}
	u, err = repo.FindByEmail(ctx, "a@x.com")
	if err != nil || u.Username != "alice" {
		t.Fatalf("FindByEmail: %+v, %v", u, err)
	}

	// returned records are copies
	u.Email = "mutated@x.com"
	again, _ := repo.FindByUsername(ctx, "alice")
	if again.Email != "a@x.com" {
		t.Fatalf("store leaked internal pointer")
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository()

	if _, err := repo.FindByUsername(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByEmail(context.Background(), "ghost@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	_, _ = repo.Create(ctx, &domain.User{Username: "alice", Email: "a@x.com"})

	if _, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "a@x.com"}); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{Username: "bob", Email: "a@x.com"}); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserRepository_ConcurrentInsertsSingleWinner(t *testing.T) {
	repo := NewUserRepository()
	const n = 32

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(context.Background(), &domain.User{
				Username: "racer",
				Email:    fmt.Sprintf("r%d@x.com", i),
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrDuplicateUsername) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := storedUsers(repo); winners != 1 || n != 1 {
		t.Fatalf("expected exactly one winner, got %d (len %d)", winners, n)
	}
}

func storedUsers(r *UserRepository) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUsername)
}
