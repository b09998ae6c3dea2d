package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProjectRole is a user's relationship to a project.
type ProjectRole string

const (
	ProjectRoleOwner  ProjectRole = "owner"
	ProjectRoleMember ProjectRole = "member"
)

// ProjectMember grants a user access to a project without owning it.
type ProjectMember struct {
	ProjectID uuid.UUID    `json:"projectId"`
	UserID    uuid.UUID    `json:"userId"`
	Role      ProjectRole  `json:"role"`
	JoinedAt  time.Time    `json:"joinedAt"`
	User      *UserSummary `json:"user,omitempty"`
}

type MemberRepository interface {
	Add(ctx context.Context, m *ProjectMember) error
	Get(ctx context.Context, projectID, userID uuid.UUID) (*ProjectMember, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*ProjectMember, error)
	Remove(ctx context.Context, projectID, userID uuid.UUID) error
}
