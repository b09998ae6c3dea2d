package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type invitationRepo struct {
	s *Store
}

func (r *invitationRepo) Create(_ context.Context, inv *domain.ProjectInvitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.invitations {
		if existing.ID == inv.ID || existing.Token == inv.Token {
			return fmt.Errorf("invitationRepo.Create: %w", domain.ErrConflict)
		}
	}
	r.s.invitations[inv.ID] = *inv

	return nil
}

func (r *invitationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ProjectInvitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, fmt.Errorf("invitationRepo.GetByID: %w", domain.ErrNotFound)
	}
	return &inv, nil
}

func (r *invitationRepo) GetByToken(_ context.Context, token string) (*domain.ProjectInvitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, inv := range r.s.invitations {
		if inv.Token == token {
			return &inv, nil
		}
	}
	return nil, fmt.Errorf("invitationRepo.GetByToken: %w", domain.ErrNotFound)
}

func (r *invitationRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.ProjectInvitation, error) {
	return r.list(func(inv *domain.ProjectInvitation) bool {
		return inv.ProjectID == projectID
	}), nil
}

func (r *invitationRepo) ListPendingForEmail(_ context.Context, email string) ([]*domain.ProjectInvitation, error) {
	email = domain.NormalizeEmail(email)
	now := time.Now()

	return r.list(func(inv *domain.ProjectInvitation) bool {
		return inv.Email == email && inv.Open(now) == nil
	}), nil
}

func (r *invitationRepo) Accept(_ context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.invitations[id]
	if !ok {
		return fmt.Errorf("invitationRepo.Accept: %w", domain.ErrNotFound)
	}
	if inv.Status != domain.InvitationPending {
		return fmt.Errorf("invitationRepo.Accept: %w", domain.ErrConflict)
	}

	now := time.Now().UTC()
	inv.Status = domain.InvitationAccepted
	inv.RespondedAt = &now
	r.s.invitations[id] = inv

	key := memberKey{projectID: inv.ProjectID, userID: userID}
	if _, exists := r.s.members[key]; !exists {
		r.s.members[key] = domain.ProjectMember{
			ProjectID: inv.ProjectID,
			UserID:    userID,
			Role:      domain.ProjectRoleMember,
			JoinedAt:  now,
		}
	}

	return nil
}

func (r *invitationRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.InvitationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.invitations[id]
	if !ok {
		return fmt.Errorf("invitationRepo.SetStatus: %w", domain.ErrNotFound)
	}
	now := time.Now().UTC()
	inv.Status = status
	inv.RespondedAt = &now
	r.s.invitations[id] = inv

	return nil
}

// list returns matches newest first.
func (r *invitationRepo) list(keep func(*domain.ProjectInvitation) bool) []*domain.ProjectInvitation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.ProjectInvitation
	for _, inv := range r.s.invitations {
		if keep(&inv) {
			out = append(out, &inv)
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.ProjectInvitation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
