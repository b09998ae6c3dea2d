package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one line of a project's activity log.
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	ProjectID  uuid.UUID      `json:"projectId"`
	ActorID    uuid.UUID      `json:"actorId"`
	Action     string         `json:"action"`   // "task.created", "task.status_changed", ...
	Resource   string         `json:"resource"` // "task", "invitation", "member"
	ResourceID uuid.UUID      `json:"resourceId"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type AuditRepository interface {
	Record(ctx context.Context, entry *AuditEntry) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*AuditEntry, error)
}
