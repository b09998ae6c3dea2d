package domain

import "github.com/google/uuid"

type BoardEventType string

const (
	BoardEventTaskCreated BoardEventType = "task_created"
	BoardEventTaskUpdated BoardEventType = "task_updated"
	BoardEventTaskMoved   BoardEventType = "task_moved"
	BoardEventTaskDeleted BoardEventType = "task_deleted"
)

// BoardEvent represents a real-time kanban board update.
type BoardEvent struct {
	Type      BoardEventType `json:"type"`
	TaskID    uuid.UUID      `json:"taskId"`
	ProjectID uuid.UUID      `json:"projectId"`
	ActorID   uuid.UUID      `json:"actorId"`
	Task      *Task          `json:"task,omitempty"` // nil for deletions
}
