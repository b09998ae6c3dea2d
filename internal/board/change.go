package board

import (
	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

// StatusChange is a pending status mutation. It is captured before the
// optimistic write and discarded once the server confirms it.
type StatusChange struct {
	TaskID   uuid.UUID
	Previous domain.TaskStatus
	Pending  domain.TaskStatus
}

// Noop reports whether applying the change would leave the task untouched.
func (c StatusChange) Noop() bool { return c.Previous == c.Pending }

// Apply writes the pending status onto the matching task. It reports false
// when the task is not in tasks.
func (c StatusChange) Apply(tasks []*domain.Task) bool {
	t := find(tasks, c.TaskID)
	if t == nil {
		return false
	}
	t.Status = c.Pending
	return true
}

// Rollback restores the previous status, but only while the task still shows
// the pending one. Anything else means a newer value arrived in the meantime.
func (c StatusChange) Rollback(tasks []*domain.Task) bool {
	t := find(tasks, c.TaskID)
	if t == nil || t.Status != c.Pending {
		return false
	}
	t.Status = c.Previous
	return true
}

// Commit replaces the local task with the confirmed record. A local copy with
// a newer UpdatedAt is kept.
func (c StatusChange) Commit(tasks []*domain.Task, confirmed *domain.Task) bool {
	if confirmed == nil || confirmed.ID != c.TaskID {
		return false
	}
	for i, t := range tasks {
		if t.ID != c.TaskID {
			continue
		}
		if t.UpdatedAt.After(confirmed.UpdatedAt) {
			return false
		}
		tasks[i] = confirmed.Clone()
		return true
	}
	return false
}

func find(tasks []*domain.Task, id uuid.UUID) *domain.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
