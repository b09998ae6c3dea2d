package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type projectBody struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Client) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	var projects []*domain.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, fmt.Errorf("client.ListProjects: %w", err)
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPost, "/projects", projectBody{Name: name, Description: description}, &p); err != nil {
		return nil, fmt.Errorf("client.CreateProject: %w", err)
	}
	return &p, nil
}

func (c *Client) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodGet, "/projects/"+id.String(), nil, &p); err != nil {
		return nil, fmt.Errorf("client.GetProject: %w", err)
	}
	return &p, nil
}

func (c *Client) UpdateProject(ctx context.Context, id uuid.UUID, name, description string) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPut, "/projects/"+id.String(), projectBody{Name: name, Description: description}, &p); err != nil {
		return nil, fmt.Errorf("client.UpdateProject: %w", err)
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/projects/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteProject: %w", err)
	}
	return nil
}

func (c *Client) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectMember, error) {
	var members []*domain.ProjectMember
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID.String()+"/members", nil, &members); err != nil {
		return nil, fmt.Errorf("client.ListMembers: %w", err)
	}
	return members, nil
}

func (c *Client) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	path := "/projects/" + projectID.String() + "/members/" + userID.String()
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("client.RemoveMember: %w", err)
	}
	return nil
}

// Activity returns a page of the project's audit log, newest first.
func (c *Client) Activity(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/projects/" + projectID.String() + "/activity"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []*domain.AuditEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, fmt.Errorf("client.Activity: %w", err)
	}
	return entries, nil
}

func (c *Client) Invite(ctx context.Context, projectID uuid.UUID, email string) (*domain.ProjectInvitation, error) {
	body := map[string]string{"email": email}
	var inv domain.ProjectInvitation
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID.String()+"/invitations", body, &inv); err != nil {
		return nil, fmt.Errorf("client.Invite: %w", err)
	}
	return &inv, nil
}

func (c *Client) ProjectInvitations(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectInvitation, error) {
	var invs []*domain.ProjectInvitation
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID.String()+"/invitations", nil, &invs); err != nil {
		return nil, fmt.Errorf("client.ProjectInvitations: %w", err)
	}
	return invs, nil
}

func (c *Client) RevokeInvitation(ctx context.Context, projectID, invitationID uuid.UUID) error {
	path := "/projects/" + projectID.String() + "/invitations/" + invitationID.String()
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("client.RevokeInvitation: %w", err)
	}
	return nil
}

// MyInvitations lists open invitations addressed to the caller's email.
func (c *Client) MyInvitations(ctx context.Context) ([]*domain.ProjectInvitation, error) {
	var invs []*domain.ProjectInvitation
	if err := c.do(ctx, http.MethodGet, "/invitations", nil, &invs); err != nil {
		return nil, fmt.Errorf("client.MyInvitations: %w", err)
	}
	return invs, nil
}

func (c *Client) AcceptInvitation(ctx context.Context, token string) (*domain.ProjectMember, error) {
	var m domain.ProjectMember
	if err := c.do(ctx, http.MethodPost, "/invitations/"+url.PathEscape(token)+"/accept", nil, &m); err != nil {
		return nil, fmt.Errorf("client.AcceptInvitation: %w", err)
	}
	return &m, nil
}

func (c *Client) DeclineInvitation(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodPost, "/invitations/"+url.PathEscape(token)+"/decline", nil, nil); err != nil {
		return fmt.Errorf("client.DeclineInvitation: %w", err)
	}
	return nil
}
