package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type CreateProjectInput struct {
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"255" doc:"Project name"`
		Description string `json:"description,omitempty" maxLength:"5000" doc:"Project description"`
	}
}

type ProjectOutput struct {
	Body *domain.Project
}

type ListProjectsOutput struct {
	Body []*domain.Project
}

type ProjectIDInput struct {
	ID uuid.UUID `path:"id" doc:"Project ID"`
}

type UpdateProjectInput struct {
	ID   uuid.UUID `path:"id" doc:"Project ID"`
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"255" doc:"Project name"`
		Description string `json:"description,omitempty" maxLength:"5000" doc:"Project description"`
	}
}

type ListMembersOutput struct {
	Body []*domain.ProjectMember
}

type RemoveMemberInput struct {
	ID     uuid.UUID `path:"id" doc:"Project ID"`
	UserID uuid.UUID `path:"userId" doc:"Member user ID"`
}

type ListActivityInput struct {
	ID     uuid.UUID `path:"id" doc:"Project ID"`
	Limit  int       `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Page size"`
	Offset int       `query:"offset" minimum:"0" default:"0" doc:"Entries to skip"`
}

type ListActivityOutput struct {
	Body []*domain.AuditEntry
}

func RegisterProjectRoutes(api huma.API, store DataStore) {
	fx := sideEffects{store: store}

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create a new project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		p, err := domain.NewProject(s.UserID, strings.TrimSpace(input.Body.Name), input.Body.Description)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		if createErr := store.Projects().Create(ctx, p); createErr != nil {
			return nil, huma.Error500InternalServerError("failed to create project", createErr)
		}

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects the caller owns or belongs to",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *struct{}) (*ListProjectsOutput, error) {
		s, err := sessionFrom(ctx)
		if err != nil {
			return nil, err
		}

		projects, err := store.Projects().ListForUser(ctx, s.UserID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list projects", err)
		}

		return &ListProjectsOutput{Body: orEmpty(projects)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ProjectOutput, error) {
		a, err := requireProject(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		return &ProjectOutput{Body: a.project}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{id}",
		Summary:     "Update a project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *UpdateProjectInput) (*ProjectOutput, error) {
		a, err := requireOwner(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		p := a.project
		p.Name = strings.TrimSpace(input.Body.Name)
		p.Description = input.Body.Description
		p.UpdatedAt = time.Now().UTC()
		if p.Name == "" {
			return nil, huma.Error422UnprocessableEntity("project name is required")
		}

		if err := store.Projects().Update(ctx, p); err != nil {
			return nil, storeError(err, "project", "update project")
		}
		fx.record(ctx, p.ID, a.session.UserID, ActionProjectUpdated, "project", p.ID, map[string]any{"name": p.Name})

		return &ProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}",
		Summary:     "Delete a project and everything in it",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ProjectIDInput) (*struct{}, error) {
		if _, err := requireOwner(ctx, store, input.ID); err != nil {
			return nil, err
		}

		if err := store.Projects().Delete(ctx, input.ID); err != nil {
			return nil, storeError(err, "project", "delete project")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/members",
		Summary:     "List project members, owner first",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *ProjectIDInput) (*ListMembersOutput, error) {
		a, err := requireProject(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		members, err := store.Members().ListByProject(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list members", err)
		}

		owner := &domain.ProjectMember{
			ProjectID: a.project.ID,
			UserID:    a.project.OwnerID,
			Role:      domain.ProjectRoleOwner,
			JoinedAt:  a.project.CreatedAt,
		}
		if u, uErr := store.Users().GetByID(ctx, a.project.OwnerID); uErr == nil {
			owner.User = u.Summary()
		}

		return &ListMembersOutput{Body: append([]*domain.ProjectMember{owner}, members...)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-member",
		Method:      http.MethodDelete,
		Path:        "/projects/{id}/members/{userId}",
		Summary:     "Remove a member, or leave the project",
		Tags:        []string{"Members"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*struct{}, error) {
		a, err := requireProject(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		self := input.UserID == a.session.UserID
		switch {
		case a.isOwner() && self:
			return nil, huma.Error422UnprocessableEntity("the owner cannot leave the project")
		case !a.isOwner() && !self:
			return nil, huma.Error403Forbidden("only the project owner can remove other members")
		}

		if err := store.Members().Remove(ctx, input.ID, input.UserID); err != nil {
			return nil, storeError(err, "member", "remove member")
		}
		fx.record(ctx, input.ID, a.session.UserID, ActionMemberRemoved, "member", input.UserID, nil)

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/activity",
		Summary:     "List recent project activity, newest first",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *ListActivityInput) (*ListActivityOutput, error) {
		if _, err := requireProject(ctx, store, input.ID); err != nil {
			return nil, err
		}

		entries, err := store.Audit().ListByProject(ctx, input.ID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list activity", err)
		}

		return &ListActivityOutput{Body: orEmpty(entries)}, nil
	})
}
