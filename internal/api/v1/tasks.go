package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/notify"
)

// TaskFields are the editable fields of a task. On update a missing dueDate
// or assignedToId clears the value.
type TaskFields struct {
	Title        string     `json:"title" minLength:"1" maxLength:"500" doc:"Task title"`
	Description  string     `json:"description,omitempty" maxLength:"10000" doc:"Task description"`
	Priority     string     `json:"priority,omitempty" enum:"low,medium,high" doc:"Task priority, medium when omitted"`
	DueDate      string     `json:"dueDate,omitempty" format:"date" doc:"Due date (YYYY-MM-DD)"`
	AssignedToID *uuid.UUID `json:"assignedToId,omitempty" doc:"Assignee; must be the owner or a member"`
}

func (f TaskFields) parse() (domain.TaskPriority, *domain.Date, error) {
	priority, err := domain.ParseTaskPriority(f.Priority)
	if err != nil {
		return "", nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if f.DueDate == "" {
		return priority, nil, nil
	}
	due, err := domain.ParseDate(f.DueDate)
	if err != nil {
		return "", nil, huma.Error422UnprocessableEntity(err.Error())
	}
	return priority, &due, nil
}

type CreateTaskInput struct {
	ProjectID uuid.UUID `path:"id" doc:"Project ID"`
	Body      TaskFields
}

type TaskOutput struct {
	Body *domain.Task
}

type ListTasksInput struct {
	ProjectID uuid.UUID `path:"id" doc:"Project ID"`
	Status    string    `query:"status" enum:"to-do,in-progress,done" doc:"Only tasks in this status"`
}

type ListTasksOutput struct {
	Body []*domain.Task
}

type TaskIDInput struct {
	ID uuid.UUID `path:"id" doc:"Task ID"`
}

type UpdateTaskInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		TaskFields
		Status string `json:"status,omitempty" enum:"to-do,in-progress,done" doc:"Task status, unchanged when omitted"`
	}
}

type UpdateTaskStatusInput struct {
	ID   uuid.UUID `path:"id" doc:"Task ID"`
	Body struct {
		Status string `json:"status" enum:"to-do,in-progress,done" doc:"Target status"`
	}
}

func RegisterTaskRoutes(api huma.API, store DataStore, events EventPublisher, notifier Notifier, publicURL string) {
	fx := sideEffects{store: store, events: events, notifier: notifier}

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/tasks",
		Summary:     "List a project's tasks",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *ListTasksInput) (*ListTasksOutput, error) {
		if _, err := requireProject(ctx, store, input.ProjectID); err != nil {
			return nil, err
		}

		var (
			tasks []*domain.Task
			err   error
		)
		if input.Status != "" {
			tasks, err = store.Tasks().ListByStatus(ctx, input.ProjectID, domain.TaskStatus(input.Status))
		} else {
			tasks, err = store.Tasks().ListByProject(ctx, input.ProjectID)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tasks", err)
		}

		return &ListTasksOutput{Body: orEmpty(tasks)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/tasks",
		Summary:       "Create a task in the to-do column",
		Tags:          []string{"Tasks"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTaskInput) (*TaskOutput, error) {
		a, err := requireProject(ctx, store, input.ProjectID)
		if err != nil {
			return nil, err
		}

		priority, due, err := input.Body.parse()
		if err != nil {
			return nil, err
		}
		if err := checkAssignee(ctx, store, a, input.Body.AssignedToID); err != nil {
			return nil, err
		}

		t, err := domain.NewTask(a.project.ID, a.session.UserID, input.Body.Title, input.Body.Description, priority, due, input.Body.AssignedToID)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		if err := store.Tasks().Create(ctx, t); err != nil {
			return nil, storeError(err, "task", "create task")
		}

		created, err := store.Tasks().GetByID(ctx, t.ID)
		if err != nil {
			return nil, storeError(err, "task", "load task")
		}

		fx.record(ctx, a.project.ID, a.session.UserID, ActionTaskCreated, "task", t.ID, map[string]any{"title": t.Title})
		fx.publish(ctx, domain.BoardEventTaskCreated, a.session.UserID, a.project.ID, t.ID, created)
		notifyAssignee(ctx, fx, store, a, created, publicURL)

		return &TaskOutput{Body: created}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*TaskOutput, error) {
		t, _, err := requireTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}
		return &TaskOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}",
		Summary:     "Replace a task's editable fields",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskInput) (*TaskOutput, error) {
		current, a, err := requireTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		priority, due, err := input.Body.parse()
		if err != nil {
			return nil, err
		}
		if err := checkAssignee(ctx, store, a, input.Body.AssignedToID); err != nil {
			return nil, err
		}

		next := current.Clone()
		next.Title = input.Body.Title
		next.Description = input.Body.Description
		next.Priority = priority
		next.DueDate = due
		next.AssignedToID = input.Body.AssignedToID

		// Status changes only when the body names one.
		if err := store.Tasks().Update(ctx, next); err != nil {
			return nil, storeError(err, "task", "update task")
		}
		evType := domain.BoardEventTaskUpdated
		if status := domain.TaskStatus(input.Body.Status); status != "" && status != current.Status {
			if _, err := store.Tasks().UpdateStatus(ctx, current.ID, status); err != nil {
				return nil, storeError(err, "task", "update task status")
			}
			evType = domain.BoardEventTaskMoved
			taskStatusChanges.WithLabelValues(string(current.Status), string(status)).Inc()
		}
		updated, err := store.Tasks().GetByID(ctx, current.ID)
		if err != nil {
			return nil, storeError(err, "task", "load task")
		}

		fx.record(ctx, updated.ProjectID, a.session.UserID, ActionTaskUpdated, "task", updated.ID, map[string]any{"title": updated.Title})
		fx.publish(ctx, evType, a.session.UserID, updated.ProjectID, updated.ID, updated)
		if !sameAssignee(current.AssignedToID, updated.AssignedToID) {
			notifyAssignee(ctx, fx, store, a, updated, publicURL)
		}

		return &TaskOutput{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task-status",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/status",
		Summary:     "Move a task to another status",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *UpdateTaskStatusInput) (*TaskOutput, error) {
		current, a, err := requireTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		status, err := domain.ParseTaskStatus(input.Body.Status)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		updated, err := store.Tasks().UpdateStatus(ctx, current.ID, status)
		if err != nil {
			return nil, storeError(err, "task", "update task status")
		}

		if current.Status != updated.Status {
			taskStatusChanges.WithLabelValues(string(current.Status), string(updated.Status)).Inc()
		}
		fx.record(ctx, updated.ProjectID, a.session.UserID, ActionTaskStatusChanged, "task", updated.ID,
			map[string]any{"from": current.Status, "to": updated.Status})
		fx.publish(ctx, domain.BoardEventTaskMoved, a.session.UserID, updated.ProjectID, updated.ID, updated)

		return &TaskOutput{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete a task",
		Tags:        []string{"Tasks"},
	}, func(ctx context.Context, input *TaskIDInput) (*struct{}, error) {
		t, a, err := requireTask(ctx, store, input.ID)
		if err != nil {
			return nil, err
		}

		if err := store.Tasks().Delete(ctx, t.ID); err != nil {
			return nil, storeError(err, "task", "delete task")
		}

		fx.record(ctx, t.ProjectID, a.session.UserID, ActionTaskDeleted, "task", t.ID, map[string]any{"title": t.Title})
		fx.publish(ctx, domain.BoardEventTaskDeleted, a.session.UserID, t.ProjectID, t.ID, nil)

		return nil, nil
	})
}

func sameAssignee(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// notifyAssignee tells a newly assigned user about the task. Self-assignment
// is not announced.
func notifyAssignee(ctx context.Context, fx sideEffects, store DataStore, a projectAccess, t *domain.Task, publicURL string) {
	if t.AssignedToID == nil || *t.AssignedToID == a.session.UserID {
		return
	}
	user, err := store.Users().GetByID(ctx, *t.AssignedToID)
	if err != nil {
		return
	}

	fx.notify(ctx, notify.Message{
		Kind:      notify.KindAssignment,
		Recipient: user.Email,
		Subject:   fmt.Sprintf("Assigned: %s", t.Title),
		Text:      fmt.Sprintf("You were assigned %q in %s.", t.Title, a.project.Name),
		Link:      fmt.Sprintf("%s/projects/%s/board", publicURL, t.ProjectID),
	})
}
