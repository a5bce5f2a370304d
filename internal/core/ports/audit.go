package ports

import (
	"context"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// AuditRepository persists auth audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditService records a single audit event.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// AuditPublisher hands audit events off for asynchronous recording. Publish
// must not block the caller.
type AuditPublisher interface {
	Publish(event domain.AuthEvent)
}
