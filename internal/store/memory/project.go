package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type projectRepo struct {
	s *Store
}

func (r *projectRepo) Create(_ context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[p.ID]; ok {
		return fmt.Errorf("projectRepo.Create: %w", domain.ErrConflict)
	}
	r.s.projects[p.ID] = *p

	return nil
}

func (r *projectRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, fmt.Errorf("projectRepo.GetByID: %w", domain.ErrNotFound)
	}
	return &p, nil
}

func (r *projectRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var projects []*domain.Project
	for id, p := range r.s.projects {
		_, member := r.s.members[memberKey{projectID: id, userID: userID}]
		if p.OwnerID == userID || member {
			projects = append(projects, &p)
		}
	}
	slices.SortStableFunc(projects, func(a, b *domain.Project) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return projects, nil
}

func (r *projectRepo) Update(_ context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.projects[p.ID]
	if !ok {
		return fmt.Errorf("projectRepo.Update: %w", domain.ErrNotFound)
	}
	stored.Name = p.Name
	stored.Description = p.Description
	stored.UpdatedAt = time.Now().UTC()
	r.s.projects[p.ID] = stored

	return nil
}

// Delete removes the project and everything scoped to it.
func (r *projectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[id]; !ok {
		return fmt.Errorf("projectRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.projects, id)

	for k := range r.s.members {
		if k.projectID == id {
			delete(r.s.members, k)
		}
	}
	for tid, row := range r.s.tasks {
		if row.task.ProjectID == id {
			delete(r.s.tasks, tid)
		}
	}
	for iid, inv := range r.s.invitations {
		if inv.ProjectID == id {
			delete(r.s.invitations, iid)
		}
	}
	r.s.audit = slices.DeleteFunc(r.s.audit, func(e domain.AuditEntry) bool {
		return e.ProjectID == id
	})

	return nil
}
