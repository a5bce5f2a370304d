package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/credential-service/internal/core/domain"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "credentials.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(context.Background(), db, "sqlite3"))

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type='table' AND name IN ('users','auth_events') ORDER BY name`))
	assert.Equal(t, []string{"auth_events", "users"}, tables)
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "a@x.com", PasswordHash: "$argon2id$hash", CreatedAt: created})
	require.NoError(t, err)

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byName.Email)
	assert.Equal(t, "$argon2id$hash", byName.PasswordHash)
	assert.True(t, created.Equal(byName.CreatedAt), "created_at %v", byName.CreatedAt)

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", byEmail.Username)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = repo.FindByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "a@x.com", PasswordHash: "h", CreatedAt: now})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "alice", Email: "b@x.com", PasswordHash: "h", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	_, err = repo.Create(ctx, &domain.User{Username: "bob", Email: "a@x.com", PasswordHash: "h", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUniqueViolation_Postgres(t *testing.T) {
	assert.ErrorIs(t, uniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, uniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}), domain.ErrDuplicateUsername)
	assert.NoError(t, uniqueViolation(&pgconn.PgError{Code: "23502", ConstraintName: "users_email_key"}))
	assert.NoError(t, uniqueViolation(errors.New("connection refused")))
}

func TestAuditRepository_InsertAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	events := []domain.AuthEvent{
		{ID: "1", Username: "u", Kind: domain.EventRegister, Outcome: domain.OutcomeSuccess, RemoteIP: "10.0.0.1", OccurredAt: base},
		{ID: "2", Username: "u", Kind: domain.EventLogin, Outcome: domain.OutcomeFailure, Reason: "invalid_credentials", OccurredAt: base.Add(time.Minute)},
		{ID: "3", Username: "other", Kind: domain.EventLogin, Outcome: domain.OutcomeSuccess, OccurredAt: base},
	}
	for i := range events {
		require.NoError(t, repo.InsertEvent(ctx, &events[i]))
	}

	got := eventsFor(t, db, "u")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "10.0.0.1", got[0].RemoteIP)
	assert.Equal(t, domain.OutcomeFailure, got[1].Outcome)
	assert.Equal(t, "invalid_credentials", got[1].Reason)
}

// eventsFor reads a user's audit rows back, oldest first.
func eventsFor(t *testing.T, db *sqlx.DB, username string) []domain.AuthEvent {
	t.Helper()
	var rows []auditRow
	require.NoError(t, db.Select(&rows, db.Rebind(`SELECT id, username, kind, outcome, reason, remote_ip, occurred_at
		FROM auth_events WHERE username = ? ORDER BY occurred_at`), username))

	out := make([]domain.AuthEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AuthEvent{
			ID:         row.ID,
			Username:   row.Username,
			Kind:       domain.AuthEventKind(row.Kind),
			Outcome:    domain.AuthEventOutcome(row.Outcome),
			Reason:     row.Reason,
			RemoteIP:   row.RemoteIP,
			OccurredAt: row.OccurredAt.UTC(),
		})
	}
	return out
}
