package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// AuditRepository implements ports.AuditRepository on the auth_events table.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type auditRow struct {
	ID         string    `db:"id"`
	Username   string    `db:"username"`
	Kind       string    `db:"kind"`
	Outcome    string    `db:"outcome"`
	Reason     string    `db:"reason"`
	RemoteIP   string    `db:"remote_ip"`
	OccurredAt time.Time `db:"occurred_at"`
}

func (r *AuditRepository) InsertEvent(ctx context.Context, ev *domain.AuthEvent) error {
	query := `INSERT INTO auth_events (id, username, kind, outcome, reason, remote_ip, occurred_at)
	          VALUES (:id, :username, :kind, :outcome, :reason, :remote_ip, :occurred_at)`

	_, err := r.db.NamedExecContext(ctx, query, auditRow{
		ID:         ev.ID,
		Username:   ev.Username,
		Kind:       string(ev.Kind),
		Outcome:    string(ev.Outcome),
		Reason:     ev.Reason,
		RemoteIP:   ev.RemoteIP,
		OccurredAt: ev.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
