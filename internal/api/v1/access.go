package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/server/middleware"
)

func sessionFrom(ctx context.Context) (middleware.Session, error) {
	s, ok := middleware.SessionFromContext(ctx)
	if !ok {
		return middleware.Session{}, huma.Error401Unauthorized("authentication required")
	}
	return s, nil
}

// projectAccess is the caller's standing on one project.
type projectAccess struct {
	session middleware.Session
	project *domain.Project
	role    domain.ProjectRole
}

func (a projectAccess) isOwner() bool { return a.role == domain.ProjectRoleOwner }

// requireProject resolves the caller's role on projectID; non-members get 403.
func requireProject(ctx context.Context, store DataStore, projectID uuid.UUID) (projectAccess, error) {
	s, err := sessionFrom(ctx)
	if err != nil {
		return projectAccess{}, err
	}

	p, role, err := domain.ResolveProjectRole(ctx, store.Projects(), store.Members(), s.UserID, projectID)
	if err != nil {
		return projectAccess{}, storeError(err, "project", "check project access")
	}

	return projectAccess{session: s, project: p, role: role}, nil
}

// requireOwner is requireProject restricted to the project owner.
func requireOwner(ctx context.Context, store DataStore, projectID uuid.UUID) (projectAccess, error) {
	a, err := requireProject(ctx, store, projectID)
	if err != nil {
		return projectAccess{}, err
	}
	if !a.isOwner() {
		return projectAccess{}, huma.Error403Forbidden("only the project owner can do this")
	}
	return a, nil
}

// requireTask loads a task and checks the caller can access its project.
func requireTask(ctx context.Context, store DataStore, taskID uuid.UUID) (*domain.Task, projectAccess, error) {
	t, err := store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, projectAccess{}, storeError(err, "task", "get task")
	}

	a, err := requireProject(ctx, store, t.ProjectID)
	if err != nil {
		return nil, projectAccess{}, err
	}

	return t, a, nil
}

// checkAssignee verifies that assignee, when set, is the owner or a member.
func checkAssignee(ctx context.Context, store DataStore, a projectAccess, assignee *uuid.UUID) error {
	if assignee == nil {
		return nil
	}
	_, _, err := domain.ResolveProjectRole(ctx, store.Projects(), store.Members(), *assignee, a.project.ID)
	if errors.Is(err, domain.ErrForbidden) {
		return huma.Error422UnprocessableEntity("assignee must be the project owner or a member")
	}
	if err != nil {
		return storeError(err, "project", "check assignee")
	}
	return nil
}

// orEmpty keeps list responses as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
