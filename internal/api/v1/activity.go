package v1

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/notify"
)

// Audit actions.
const (
	ActionTaskCreated       = "task.created"
	ActionTaskUpdated       = "task.updated"
	ActionTaskStatusChanged = "task.status_changed"
	ActionTaskDeleted       = "task.deleted"
	ActionProjectUpdated    = "project.updated"
	ActionMemberRemoved     = "member.removed"
	ActionMemberJoined      = "member.joined"
	ActionInvitationSent    = "invitation.sent"
	ActionInvitationRevoked = "invitation.revoked"
	ActionInvitationDecline = "invitation.declined"
)

var taskStatusChanges = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "agileboard",
		Name:      "task_status_changes_total",
		Help:      "Task status changes by source and target status",
	},
	[]string{"from", "to"},
)

// sideEffects performs the best-effort work that follows a mutation:
// activity log, live board event and notifications. Failures are logged and
// never fail the request.
type sideEffects struct {
	store    DataStore
	events   EventPublisher
	notifier Notifier
}

func (s sideEffects) record(ctx context.Context, projectID, actorID uuid.UUID, action, resource string, resourceID uuid.UUID, details map[string]any) {
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		ProjectID:  projectID,
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Audit().Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Str("project_id", projectID.String()).Msg("api: failed to record activity")
	}
}

func (s sideEffects) publish(ctx context.Context, typ domain.BoardEventType, actorID uuid.UUID, projectID, taskID uuid.UUID, task *domain.Task) {
	if s.events == nil {
		return
	}
	ev := domain.BoardEvent{Type: typ, TaskID: taskID, ProjectID: projectID, ActorID: actorID, Task: task}
	if err := s.events.PublishBoardEvent(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", string(typ)).Str("task_id", taskID.String()).Msg("api: failed to publish board event")
	}
}

func (s sideEffects) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil || msg.Recipient == "" {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("api: failed to send notification")
	}
}
