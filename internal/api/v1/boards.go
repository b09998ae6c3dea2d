package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/agileboard/internal/domain"
)

// BoardColumns groups a project's tasks by status.
type BoardColumns struct {
	ToDo       []*domain.Task `json:"to-do"`
	InProgress []*domain.Task `json:"in-progress"`
	Done       []*domain.Task `json:"done"`
}

type BoardOutput struct {
	Body BoardColumns
}

// Columns splits tasks into board columns, keeping their order.
func Columns(tasks []*domain.Task) BoardColumns {
	cols := BoardColumns{
		ToDo:       []*domain.Task{},
		InProgress: []*domain.Task{},
		Done:       []*domain.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskStatusToDo:
			cols.ToDo = append(cols.ToDo, t)
		case domain.TaskStatusInProgress:
			cols.InProgress = append(cols.InProgress, t)
		case domain.TaskStatusDone:
			cols.Done = append(cols.Done, t)
		}
	}
	return cols
}

func RegisterBoardRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/board",
		Summary:     "Get a project's Kanban board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ProjectIDInput) (*BoardOutput, error) {
		if _, err := requireProject(ctx, store, input.ID); err != nil {
			return nil, err
		}

		tasks, err := store.Tasks().ListByProject(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to load board", err)
		}

		return &BoardOutput{Body: Columns(tasks)}, nil
	})
}
