package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ResolveProjectRole loads a project and the user's role on it. It returns
// ErrNotFound when the project does not exist and ErrForbidden when the user
// neither owns it nor is a member.
func ResolveProjectRole(ctx context.Context, projects ProjectRepository, members MemberRepository, userID, projectID uuid.UUID) (*Project, ProjectRole, error) {
	p, err := projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("domain.ResolveProjectRole: %w", err)
	}
	if p.OwnerID == userID {
		return p, ProjectRoleOwner, nil
	}

	m, err := members.Get(ctx, projectID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, "", fmt.Errorf("domain.ResolveProjectRole: %w", ErrForbidden)
	}
	if err != nil {
		return nil, "", fmt.Errorf("domain.ResolveProjectRole: %w", err)
	}

	return p, m.Role, nil
}
