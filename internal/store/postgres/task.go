package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/agileboard/internal/domain"
)

// taskColumns selects a task together with its assignee summary.
const taskColumns = `t.id, t.project_id, t.title, t.description, t.status, t.priority,
	t.due_date, t.assigned_to, t.created_by, t.created_at, t.updated_at,
	u.name, u.email, u.avatar_url`

const taskFrom = `FROM tasks t LEFT JOIN users u ON u.id = t.assigned_to`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, priority, due_date, assigned_to, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.ProjectID, t.Title, t.Description,
		t.Status, t.Priority, dateParam(t.DueDate), t.AssignedToID, t.CreatedByID,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Create: %w", err)
	}

	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` `+taskFrom+` WHERE t.id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taskRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` `+taskFrom+`
		 WHERE t.project_id = $1
		 ORDER BY t.created_at, t.id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByProject")
}

func (r *TaskRepo) ListByStatus(ctx context.Context, projectID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` `+taskFrom+`
		 WHERE t.project_id = $1 AND t.status = $2
		 ORDER BY t.created_at, t.id`,
		projectID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.ListByStatus: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows, "taskRepo.ListByStatus")
}

// UpdateStatus writes only the status column and returns the stored record.
func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("taskRepo.UpdateStatus: %w", domain.ErrNotFound)
	}

	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("taskRepo.UpdateStatus: %w", err)
	}

	return t, nil
}

// Update writes the editable fields and leaves status alone.
func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, priority = $3,
		        due_date = $4, assigned_to = $5, updated_at = now()
		 WHERE id = $6`,
		t.Title, t.Description, t.Priority,
		dateParam(t.DueDate), t.AssignedToID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("taskRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("taskRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t         domain.Task
		due       *time.Time
		name      *string
		email     *string
		avatarURL *string
	)

	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&due, &t.AssignedToID, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt,
		&name, &email, &avatarURL,
	)
	if err != nil {
		return nil, err
	}

	t.DueDate = dateFromColumn(due)
	if t.AssignedToID != nil && name != nil {
		t.AssignedTo = &domain.UserSummary{
			ID:        *t.AssignedToID,
			Name:      *name,
			Email:     derefStr(email),
			AvatarURL: derefStr(avatarURL),
		}
	}

	return &t, nil
}

func scanTasks(rows pgx.Rows, caller string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		tasks = append(tasks, t)
	}
	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return tasks, nil
}
