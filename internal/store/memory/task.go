package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type taskRepo struct {
	s *Store
}

func (r *taskRepo) Create(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[t.ID]; ok {
		return fmt.Errorf("taskRepo.Create: %w", domain.ErrConflict)
	}
	if _, ok := r.s.projects[t.ProjectID]; !ok {
		return fmt.Errorf("taskRepo.Create: project: %w", domain.ErrNotFound)
	}
	r.s.seq++
	stored := t.Clone()
	stored.AssignedTo = nil
	r.s.tasks[t.ID] = taskRow{task: *stored, seq: r.s.seq}

	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	return r.viewLocked(row), nil
}

func (r *taskRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	return r.list(func(t *domain.Task) bool { return t.ProjectID == projectID }), nil
}

func (r *taskRepo) ListByStatus(_ context.Context, projectID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error) {
	return r.list(func(t *domain.Task) bool {
		return t.ProjectID == projectID && t.Status == status
	}), nil
}

func (r *taskRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("taskRepo.UpdateStatus: %w", domain.ErrNotFound)
	}
	row.task.Status = status
	row.task.UpdatedAt = time.Now().UTC()
	r.s.tasks[id] = row

	return r.viewLocked(row), nil
}

func (r *taskRepo) Update(_ context.Context, t *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.tasks[t.ID]
	if !ok {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}
	updated := t.Clone()
	updated.AssignedTo = nil
	updated.ProjectID = row.task.ProjectID
	updated.Status = row.task.Status
	updated.CreatedByID = row.task.CreatedByID
	updated.CreatedAt = row.task.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	row.task = *updated
	r.s.tasks[t.ID] = row

	return nil
}

func (r *taskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.tasks, id)

	return nil
}

func (r *taskRepo) list(keep func(*domain.Task) bool) []*domain.Task {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := make([]taskRow, 0, len(r.s.tasks))
	for _, row := range r.s.tasks {
		if keep(&row.task) {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b taskRow) int {
		if c := a.task.CreatedAt.Compare(b.task.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	tasks := make([]*domain.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, r.viewLocked(row))
	}
	return tasks
}

// viewLocked copies a stored task and attaches the assignee summary.
func (r *taskRepo) viewLocked(row taskRow) *domain.Task {
	t := row.task.Clone()
	if t.AssignedToID != nil {
		t.AssignedTo = r.s.summaryLocked(*t.AssignedToID)
	}
	return t
}
