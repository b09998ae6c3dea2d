// Package board holds the client-side view state of one project's Kanban
// board. Status changes are applied optimistically and rolled back when the
// server rejects them.
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/agileboard/internal/client"
	"github.com/gosuda/agileboard/internal/domain"
)

var (
	ErrInvalidTarget   = errors.New("board: invalid drop target")
	ErrInvalidStatus   = errors.New("board: invalid status")
	ErrMutationPending = errors.New("board: status change already in flight")
	ErrTaskNotFound    = errors.New("board: task not on board")
)

// TaskAPI is the slice of the REST API the board talks to. *client.Client
// implements it.
type TaskAPI interface {
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error)
	CreateTask(ctx context.Context, projectID uuid.UUID, in client.TaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, in client.TaskInput) (*domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeConfirmed
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes how a move ended. Cause is set when the server rejected
// the change; the rollback has already happened by then.
type Result struct {
	Outcome Outcome
	Change  StatusChange
	Task    *domain.Task
	Cause   error
}

type inflight struct {
	change     StatusChange
	superseded bool
}

// Board is safe for concurrent use. The lock is never held across API calls.
type Board struct {
	api       TaskAPI
	projectID uuid.UUID
	log       zerolog.Logger

	mu       sync.Mutex
	tasks    []*domain.Task
	inflight map[uuid.UUID]*inflight
}

func New(api TaskAPI, projectID uuid.UUID, logger zerolog.Logger) *Board {
	return &Board{
		api:       api,
		projectID: projectID,
		log:       logger.With().Str("project_id", projectID.String()).Logger(),
		inflight:  make(map[uuid.UUID]*inflight),
	}
}

func (b *Board) ProjectID() uuid.UUID { return b.projectID }

// Load replaces the local task list with the server's. Status changes still
// in flight are marked superseded so a late failure does not undo fresh data.
func (b *Board) Load(ctx context.Context) error {
	tasks, err := b.api.ListTasks(ctx, b.projectID)
	if err != nil {
		return fmt.Errorf("board.Load: %w", err)
	}
	b.Reset(tasks)
	return nil
}

// Reset seeds the board with tasks without calling the API.
func (b *Board) Reset(tasks []*domain.Task) {
	local := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		local = append(local, t.Clone())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = local
	for _, fl := range b.inflight {
		fl.superseded = true
	}
}

// Snapshot returns a copy of the displayed tasks in list order.
func (b *Board) Snapshot() []*domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneAll(b.tasks)
}

func (b *Board) Task(id uuid.UUID) (*domain.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := find(b.tasks, id)
	return t.Clone(), t != nil
}

// Pending reports whether a status change for the task awaits confirmation.
func (b *Board) Pending(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inflight[id]
	return ok
}

// ResolveTarget maps a drop target to a status. A column id is the status
// literal itself; a task id resolves to that task's current status.
func (b *Board) ResolveTarget(targetID string) (domain.TaskStatus, error) {
	if s := domain.TaskStatus(targetID); s.Valid() {
		return s, nil
	}
	if id, err := uuid.Parse(targetID); err == nil {
		if t, ok := b.Task(id); ok {
			return t.Status, nil
		}
	}
	b.log.Warn().Str("target", targetID).Msg("drop target does not resolve to a column or task")
	return "", fmt.Errorf("%w: %q", ErrInvalidTarget, targetID)
}

// Drop moves a task onto a column or onto another task.
func (b *Board) Drop(ctx context.Context, taskID uuid.UUID, targetID string) (Result, error) {
	status, err := b.ResolveTarget(targetID)
	if err != nil {
		return Result{}, err
	}
	return b.Move(ctx, taskID, status)
}

// Move changes a task's status. The new status is visible immediately; the
// returned error only reports rejected preconditions. A server failure rolls
// the task back and is reported through Result.Cause.
func (b *Board) Move(ctx context.Context, taskID uuid.UUID, status domain.TaskStatus) (Result, error) {
	if !status.Valid() {
		b.log.Warn().Str("task_id", taskID.String()).Str("status", string(status)).Msg("rejected move to unknown status")
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	change, err := b.begin(taskID, status)
	if err != nil {
		b.log.Warn().Err(err).Str("task_id", taskID.String()).Str("status", string(status)).Msg("rejected move")
		return Result{Change: change}, err
	}
	if change.Noop() {
		return Result{Outcome: OutcomeNoop, Change: change}, nil
	}

	confirmed, err := b.api.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		b.fail(change, err)
		return Result{Outcome: OutcomeRolledBack, Change: change, Cause: err}, nil
	}
	return Result{Outcome: OutcomeConfirmed, Change: change, Task: b.confirm(change, confirmed)}, nil
}

func (b *Board) begin(taskID uuid.UUID, status domain.TaskStatus) (StatusChange, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := find(b.tasks, taskID)
	if t == nil {
		return StatusChange{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	// A drop onto the column the task is shown in is a no-op even while an
	// earlier change is in flight.
	change := StatusChange{TaskID: taskID, Previous: t.Status, Pending: status}
	if change.Noop() {
		return change, nil
	}
	if _, busy := b.inflight[taskID]; busy {
		return change, fmt.Errorf("%w: %s", ErrMutationPending, taskID)
	}
	change.Apply(b.tasks)
	b.inflight[taskID] = &inflight{change: change}
	return change, nil
}

func (b *Board) confirm(change StatusChange, confirmed *domain.Task) *domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.inflight[change.TaskID]; !ok {
		// Deleted remotely while the request was out.
		return confirmed.Clone()
	}
	delete(b.inflight, change.TaskID)
	change.Commit(b.tasks, confirmed)
	return find(b.tasks, change.TaskID).Clone()
}

func (b *Board) fail(change StatusChange, cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	event := b.log.Error().Err(cause).
		Str("task_id", change.TaskID.String()).
		Str("from", string(change.Previous)).
		Str("to", string(change.Pending))

	fl, ok := b.inflight[change.TaskID]
	if !ok {
		event.Msg("status change failed for a task no longer on the board")
		return
	}
	delete(b.inflight, change.TaskID)
	if fl.superseded {
		event.Msg("status change failed; keeping newer remote state")
		return
	}
	change.Rollback(b.tasks)
	event.Msg("status change failed; rolled back")
}

// Create posts a new task and inserts the server's record.
func (b *Board) Create(ctx context.Context, in client.TaskInput) (*domain.Task, error) {
	task, err := b.api.CreateTask(ctx, b.projectID, in)
	if err != nil {
		return nil, fmt.Errorf("board.Create: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsert(task)
	return task.Clone(), nil
}

// Update replaces a task's editable fields and stores the server's record.
func (b *Board) Update(ctx context.Context, id uuid.UUID, in client.TaskInput) (*domain.Task, error) {
	task, err := b.api.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("board.Update: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsert(task)
	if fl, ok := b.inflight[id]; ok {
		fl.superseded = true
	}
	return task.Clone(), nil
}

func (b *Board) Delete(ctx context.Context, id uuid.UUID) error {
	if err := b.api.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("board.Delete: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remove(id)
	return nil
}

// ApplyEvent merges a live board event. Events for other projects are ignored.
func (b *Board) ApplyEvent(ev domain.BoardEvent) {
	if ev.ProjectID != b.projectID {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Type {
	case domain.BoardEventTaskCreated:
		if ev.Task == nil || find(b.tasks, ev.Task.ID) != nil {
			return
		}
		b.tasks = append(b.tasks, ev.Task.Clone())
	case domain.BoardEventTaskUpdated, domain.BoardEventTaskMoved:
		if ev.Task == nil {
			b.log.Warn().Str("type", string(ev.Type)).Msg("board event without task")
			return
		}
		if local := find(b.tasks, ev.Task.ID); local != nil && local.UpdatedAt.After(ev.Task.UpdatedAt) {
			return
		}
		b.upsert(ev.Task)
		if fl, ok := b.inflight[ev.Task.ID]; ok {
			fl.superseded = true
		}
	case domain.BoardEventTaskDeleted:
		b.remove(ev.TaskID)
	default:
		b.log.Debug().Str("type", string(ev.Type)).Msg("ignoring unknown board event")
	}
}

// Column is one Kanban column.
type Column struct {
	Status domain.TaskStatus
	Tasks  []*domain.Task
}

// Columns groups the displayed tasks by status in column order.
func (b *Board) Columns() []Column {
	tasks := b.Snapshot()
	cols := make([]Column, len(domain.TaskStatuses))
	for i, s := range domain.TaskStatuses {
		cols[i] = Column{Status: s, Tasks: []*domain.Task{}}
	}
	for _, t := range tasks {
		if i := slices.Index(domain.TaskStatuses, t.Status); i >= 0 {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

// Backlog lists every task by priority (high first), then due date (undated
// last), then creation time.
func (b *Board) Backlog() []*domain.Task {
	tasks := b.Snapshot()
	slices.SortStableFunc(tasks, compareBacklog)
	return tasks
}

func compareBacklog(a, c *domain.Task) int {
	if d := c.Priority.Rank() - a.Priority.Rank(); d != 0 {
		return d
	}
	switch {
	case a.DueDate != nil && c.DueDate == nil:
		return -1
	case a.DueDate == nil && c.DueDate != nil:
		return 1
	case a.DueDate != nil && c.DueDate != nil:
		if cmp := a.DueDate.Time().Compare(c.DueDate.Time()); cmp != 0 {
			return cmp
		}
	}
	return a.CreatedAt.Compare(c.CreatedAt)
}

func (b *Board) upsert(task *domain.Task) {
	for i, t := range b.tasks {
		if t.ID == task.ID {
			b.tasks[i] = task.Clone()
			return
		}
	}
	b.tasks = append(b.tasks, task.Clone())
}

func (b *Board) remove(id uuid.UUID) {
	b.tasks = slices.DeleteFunc(b.tasks, func(t *domain.Task) bool { return t.ID == id })
	delete(b.inflight, id)
}

func cloneAll(tasks []*domain.Task) []*domain.Task {
	out := make([]*domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
