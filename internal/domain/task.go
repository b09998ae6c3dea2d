package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the Kanban column a task sits in. The set is closed: values
// outside TaskStatuses are rejected when decoded.
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "to-do"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in board column order.
var TaskStatuses = []TaskStatus{TaskStatusToDo, TaskStatusInProgress, TaskStatusDone} //nolint:gochecknoglobals // closed enum

var (
	ErrInvalidStatus   = errors.New("task: invalid status")
	ErrInvalidPriority = errors.New("task: invalid priority")
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusToDo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// ParseTaskStatus converts a raw string into a TaskStatus.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func (s TaskStatus) String() string { return string(s) }

func (s *TaskStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TaskPriority orders the backlog.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskPriorities lists every priority from lowest to highest.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh} //nolint:gochecknoglobals // closed enum

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// Rank returns a sort key where higher priorities rank higher. Unknown values rank 0.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityLow:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityHigh:
		return 3
	default:
		return 0
	}
}

// ParseTaskPriority converts a raw string into a TaskPriority. An empty string
// yields the default priority.
func ParseTaskPriority(raw string) (TaskPriority, error) {
	if raw == "" {
		return TaskPriorityMedium, nil
	}
	p := TaskPriority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return p, nil
}

func (p TaskPriority) String() string { return string(p) }

func (p *TaskPriority) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskPriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type Task struct {
	ID           uuid.UUID    `json:"id"`
	ProjectID    uuid.UUID    `json:"projectId"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	DueDate      *Date        `json:"dueDate"`
	AssignedToID *uuid.UUID   `json:"assignedToId"`
	AssignedTo   *UserSummary `json:"assignedTo,omitempty"` // populated on reads
	CreatedByID  uuid.UUID    `json:"createdById"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy so callers can hand tasks out without sharing pointers.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		c.AssignedToID = &id
	}
	if t.AssignedTo != nil {
		s := *t.AssignedTo
		c.AssignedTo = &s
	}
	return &c
}

// NewTask creates a Task in the to-do column with validated required fields.
func NewTask(projectID, createdBy uuid.UUID, title, description string, priority TaskPriority, due *Date, assignee *uuid.UUID) (*Task, error) {
	if projectID == uuid.Nil {
		return nil, errors.New("task: project ID is required")
	}
	if title == "" {
		return nil, errors.New("task: title is required")
	}
	if priority == "" {
		priority = TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	now := time.Now().UTC()
	return &Task{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Title:        title,
		Description:  description,
		Status:       TaskStatusToDo,
		Priority:     priority,
		DueDate:      due,
		AssignedToID: assignee,
		CreatedByID:  createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Task, error)
	ListByStatus(ctx context.Context, projectID uuid.UUID, status TaskStatus) ([]*Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status TaskStatus) (*Task, error)
	// Update writes the editable fields of t. Status is only written by
	// UpdateStatus.
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}
