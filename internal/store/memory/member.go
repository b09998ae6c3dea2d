package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type memberRepo struct {
	s *Store
}

func (r *memberRepo) Add(_ context.Context, m *domain.ProjectMember) error {
	key := memberKey{projectID: m.ProjectID, userID: m.UserID}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[key]; ok {
		return fmt.Errorf("memberRepo.Add: %w", domain.ErrConflict)
	}
	stored := *m
	stored.User = nil
	r.s.members[key] = stored

	return nil
}

func (r *memberRepo) Get(_ context.Context, projectID, userID uuid.UUID) (*domain.ProjectMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[memberKey{projectID: projectID, userID: userID}]
	if !ok {
		return nil, fmt.Errorf("memberRepo.Get: %w", domain.ErrNotFound)
	}
	m.User = r.s.summaryLocked(m.UserID)
	return &m, nil
}

func (r *memberRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.ProjectMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var members []*domain.ProjectMember
	for k, m := range r.s.members {
		if k.projectID != projectID {
			continue
		}
		m.User = r.s.summaryLocked(m.UserID)
		members = append(members, &m)
	}
	slices.SortStableFunc(members, func(a, b *domain.ProjectMember) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})

	return members, nil
}

func (r *memberRepo) Remove(_ context.Context, projectID, userID uuid.UUID) error {
	key := memberKey{projectID: projectID, userID: userID}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[key]; !ok {
		return fmt.Errorf("memberRepo.Remove: %w", domain.ErrNotFound)
	}
	delete(r.s.members, key)

	return nil
}
