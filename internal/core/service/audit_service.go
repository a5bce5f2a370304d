package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/credential-service/internal/core/domain"
	"github.com/99minutos/credential-service/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that persists events through repo.
// A nil repo records events to the log only.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record assigns an id when missing, logs the event, and persists it.
func (s *auditService) Record(ctx context.Context, ev domain.AuthEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	s.log.Info().
		Str("event_id", ev.ID).
		Str("username", ev.Username).
		Str("kind", string(ev.Kind)).
		Str("outcome", string(ev.Outcome)).
		Str("reason", ev.Reason).
		Str("remote_ip", ev.RemoteIP).
		Msg("auth event")

	if s.repo == nil {
		return nil
	}
	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		return fmt.Errorf("record auth event: %w", err)
	}
	return nil
}
