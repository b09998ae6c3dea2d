package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

// TaskInput holds the editable task fields. On update it replaces the task's
// fields: a nil DueDate or AssignedToID clears the value, an empty Status
// leaves the stored status untouched.
type TaskInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Priority     domain.TaskPriority `json:"priority,omitempty"`
	DueDate      *domain.Date        `json:"dueDate,omitempty"`
	AssignedToID *uuid.UUID          `json:"assignedToId,omitempty"`
	Status       domain.TaskStatus   `json:"status,omitempty"`
}

// InputFromTask returns the editable fields of t, ready for UpdateTask. Status
// is left empty so an edit built from a stale copy cannot undo a move.
func InputFromTask(t *domain.Task) TaskInput {
	c := t.Clone()
	return TaskInput{
		Title:        c.Title,
		Description:  c.Description,
		Priority:     c.Priority,
		DueDate:      c.DueDate,
		AssignedToID: c.AssignedToID,
	}
}

// Board is the column view served by GET /projects/{id}/board.
type Board struct {
	ToDo       []*domain.Task `json:"to-do"`
	InProgress []*domain.Task `json:"in-progress"`
	Done       []*domain.Task `json:"done"`
}

func (c *Client) ListTasks(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID.String()+"/tasks", nil, &tasks); err != nil {
		return nil, fmt.Errorf("client.ListTasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) ListTasksByStatus(ctx context.Context, projectID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error) {
	q := url.Values{"status": {string(status)}}
	var tasks []*domain.Task
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID.String()+"/tasks?"+q.Encode(), nil, &tasks); err != nil {
		return nil, fmt.Errorf("client.ListTasksByStatus: %w", err)
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, projectID uuid.UUID, in TaskInput) (*domain.Task, error) {
	body := in
	body.Status = ""
	var task domain.Task
	if err := c.do(ctx, http.MethodPost, "/projects/"+projectID.String()+"/tasks", body, &task); err != nil {
		return nil, fmt.Errorf("client.CreateTask: %w", err)
	}
	return &task, nil
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id.String(), nil, &task); err != nil {
		return nil, fmt.Errorf("client.GetTask: %w", err)
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, in TaskInput) (*domain.Task, error) {
	var task domain.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+id.String(), in, &task); err != nil {
		return nil, fmt.Errorf("client.UpdateTask: %w", err)
	}
	return &task, nil
}

// UpdateTaskStatus is the confirmation call of an optimistic move.
func (c *Client) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	body := map[string]domain.TaskStatus{"status": status}
	var task domain.Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+id.String()+"/status", body, &task); err != nil {
		return nil, fmt.Errorf("client.UpdateTaskStatus: %w", err)
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+id.String(), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteTask: %w", err)
	}
	return nil
}

func (c *Client) Board(ctx context.Context, projectID uuid.UUID) (*Board, error) {
	var b Board
	if err := c.do(ctx, http.MethodGet, "/projects/"+projectID.String()+"/board", nil, &b); err != nil {
		return nil, fmt.Errorf("client.Board: %w", err)
	}
	return &b, nil
}
