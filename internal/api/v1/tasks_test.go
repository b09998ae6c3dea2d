package v1_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/agileboard/internal/api/v1"
	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/notify"
)

func setupTaskAPI(t *testing.T, store v1.DataStore) (humatest.TestAPI, *recordingPublisher, *recordingNotifier) {
	t.Helper()

	api := newAPI(t)
	events := &recordingPublisher{}
	notifier := &recordingNotifier{}
	v1.RegisterTaskRoutes(api, store, events, notifier, "https://board.example.com")
	return api, events, notifier
}

// ---------------------------------------------------------------------------
// TestCreateTask
// ---------------------------------------------------------------------------

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, events, notifier := setupTaskAPI(t, f.store)

		resp := api.PostCtx(sessionCtx(f.owner), "/projects/"+f.project.ID.String()+"/tasks", map[string]any{
			"title":        "Write release notes",
			"description":  "Summarize the sprint",
			"priority":     "high",
			"dueDate":      "2026-11-01",
			"assignedToId": f.member.ID.String(),
		})

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		body := decode[domain.Task](t, resp)
		assert.Equal(t, "Write release notes", body.Title)
		assert.Equal(t, domain.TaskStatusToDo, body.Status)
		assert.Equal(t, domain.TaskPriorityHigh, body.Priority)
		require.NotNil(t, body.DueDate)
		assert.Equal(t, domain.Date("2026-11-01"), *body.DueDate)
		require.NotNil(t, body.AssignedTo)
		assert.Equal(t, "Max Member", body.AssignedTo.Name)
		assert.Equal(t, f.owner.ID, body.CreatedByID)

		evs := events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, domain.BoardEventTaskCreated, evs[0].Type)
		assert.Equal(t, body.ID, evs[0].TaskID)

		sent := notifier.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, notify.KindAssignment, sent[0].Kind)
		assert.Equal(t, "member@example.com", sent[0].Recipient)

		activity := f.activity(t)
		require.Len(t, activity, 1)
		assert.Equal(t, v1.ActionTaskCreated, activity[0].Action)
	})

	t.Run("defaults_to_medium_priority", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, _, notifier := setupTaskAPI(t, f.store)

		resp := api.PostCtx(sessionCtx(f.member), "/projects/"+f.project.ID.String()+"/tasks", map[string]any{
			"title": "Triage bugs",
		})

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		body := decode[domain.Task](t, resp)
		assert.Equal(t, domain.TaskPriorityMedium, body.Priority)
		assert.Nil(t, body.DueDate)
		assert.Nil(t, body.AssignedToID)
		assert.Empty(t, notifier.Sent())
	})

	t.Run("self_assignment_is_not_announced", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, _, notifier := setupTaskAPI(t, f.store)

		resp := api.PostCtx(sessionCtx(f.member), "/projects/"+f.project.ID.String()+"/tasks", map[string]any{
			"title":        "Mine",
			"assignedToId": f.member.ID.String(),
		})

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		assert.Empty(t, notifier.Sent())
	})

	t.Run("assignee_outside_project", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, events, _ := setupTaskAPI(t, f.store)

		resp := api.PostCtx(sessionCtx(f.owner), "/projects/"+f.project.ID.String()+"/tasks", map[string]any{
			"title":        "Outsourced",
			"assignedToId": f.stranger.ID.String(),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Contains(t, errorMessage(t, resp), "assignee")
		assert.Empty(t, events.Events())
	})

	t.Run("invalid_body", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, _, _ := setupTaskAPI(t, f.store)
		path := "/projects/" + f.project.ID.String() + "/tasks"

		tests := []struct {
			name string
			body map[string]any
		}{
			{"missing title", map[string]any{"description": "no title"}},
			{"empty title", map[string]any{"title": ""}},
			{"unknown priority", map[string]any{"title": "x", "priority": "urgent"}},
			{"bad due date", map[string]any{"title": "x", "dueDate": "next tuesday"}},
		}
		for _, tt := range tests {
			resp := api.PostCtx(sessionCtx(f.owner), path, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, tt.name)
		}
	})

	t.Run("stranger_forbidden", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, _, _ := setupTaskAPI(t, f.store)

		resp := api.PostCtx(sessionCtx(f.stranger), "/projects/"+f.project.ID.String()+"/tasks", map[string]any{
			"title": "Sneaky",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("unknown_project", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, _, _ := setupTaskAPI(t, f.store)

		resp := api.PostCtx(sessionCtx(f.owner), "/projects/"+uuid.NewString()+"/tasks", map[string]any{
			"title": "Lost",
		})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("no_session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		api, _, _ := setupTaskAPI(t, f.store)

		resp := api.PostCtx(context.Background(), "/projects/"+f.project.ID.String()+"/tasks", map[string]any{
			"title": "Anonymous",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "authentication required", errorMessage(t, resp))
	})
}

// ---------------------------------------------------------------------------
// TestListTasks
// ---------------------------------------------------------------------------

func TestListTasks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.addTask(t, "First", domain.TaskStatusToDo)
	second := f.addTask(t, "Second", domain.TaskStatusDone)
	third := f.addTask(t, "Third", domain.TaskStatusToDo)
	api, _, _ := setupTaskAPI(t, f.store)
	path := "/projects/" + f.project.ID.String() + "/tasks"

	t.Run("all_in_creation_order", func(t *testing.T) {
		t.Parallel()

		resp := api.GetCtx(sessionCtx(f.member), path)
		require.Equal(t, http.StatusOK, resp.Code)

		body := decode[[]domain.Task](t, resp)
		require.Len(t, body, 3)
		assert.Equal(t, first.ID, body[0].ID)
		assert.Equal(t, second.ID, body[1].ID)
		assert.Equal(t, third.ID, body[2].ID)
	})

	t.Run("filter_by_status", func(t *testing.T) {
		t.Parallel()

		resp := api.GetCtx(sessionCtx(f.owner), path+"?status=to-do")
		require.Equal(t, http.StatusOK, resp.Code)

		body := decode[[]domain.Task](t, resp)
		require.Len(t, body, 2)
		for _, task := range body {
			assert.Equal(t, domain.TaskStatusToDo, task.Status)
		}
	})

	t.Run("unknown_status_rejected", func(t *testing.T) {
		t.Parallel()

		resp := api.GetCtx(sessionCtx(f.owner), path+"?status=archived")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("empty_project_returns_array", func(t *testing.T) {
		t.Parallel()

		other, err := domain.NewProject(f.owner.ID, "Empty", "")
		require.NoError(t, err)
		require.NoError(t, f.store.Projects().Create(context.Background(), other))

		resp := api.GetCtx(sessionCtx(f.owner), "/projects/"+other.ID.String()+"/tasks")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `[]`, resp.Body.String())
	})

	t.Run("stranger_forbidden", func(t *testing.T) {
		t.Parallel()

		resp := api.GetCtx(sessionCtx(f.stranger), path)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestGetTask
// ---------------------------------------------------------------------------

func TestGetTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.addTask(t, "Read me", domain.TaskStatusInProgress)
	api, _, _ := setupTaskAPI(t, f.store)

	resp := api.GetCtx(sessionCtx(f.member), "/tasks/"+task.ID.String())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Read me", decode[domain.Task](t, resp).Title)

	resp = api.GetCtx(sessionCtx(f.stranger), "/tasks/"+task.ID.String())
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = api.GetCtx(sessionCtx(f.owner), "/tasks/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "task not found", errorMessage(t, resp))

	resp = api.GetCtx(sessionCtx(f.owner), "/tasks/not-a-uuid")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

// ---------------------------------------------------------------------------
// TestUpdateTask
// ---------------------------------------------------------------------------

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	t.Run("full_replacement", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		due := domain.Date("2026-12-24")
		task, err := domain.NewTask(f.project.ID, f.owner.ID, "Old", "old desc", domain.TaskPriorityLow, &due, &f.member.ID)
		require.NoError(t, err)
		require.NoError(t, f.store.Tasks().Create(context.Background(), task))
		api, events, notifier := setupTaskAPI(t, f.store)

		resp := api.PutCtx(sessionCtx(f.member), "/tasks/"+task.ID.String(), map[string]any{
			"title":    "New",
			"priority": "high",
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		body := decode[domain.Task](t, resp)
		assert.Equal(t, "New", body.Title)
		assert.Empty(t, body.Description)
		assert.Equal(t, domain.TaskPriorityHigh, body.Priority)
		assert.Nil(t, body.DueDate, "omitted due date clears it")
		assert.Nil(t, body.AssignedToID, "omitted assignee clears it")
		assert.Equal(t, domain.TaskStatusToDo, body.Status, "omitted status is kept")

		evs := events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, domain.BoardEventTaskUpdated, evs[0].Type)
		assert.Empty(t, notifier.Sent(), "unassigning notifies nobody")
	})

	t.Run("status_change_is_a_move", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Move me", domain.TaskStatusToDo)
		api, events, _ := setupTaskAPI(t, f.store)

		resp := api.PutCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String(), map[string]any{
			"title":  "Move me",
			"status": "done",
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, domain.TaskStatusDone, decode[domain.Task](t, resp).Status)
		evs := events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, domain.BoardEventTaskMoved, evs[0].Type)
	})

	t.Run("same_status_is_not_a_move", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Stay", domain.TaskStatusInProgress)
		api, events, _ := setupTaskAPI(t, f.store)

		resp := api.PutCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String(), map[string]any{
			"title":  "Stay put",
			"status": "in-progress",
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, domain.TaskStatusInProgress, decode[domain.Task](t, resp).Status)
		evs := events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, domain.BoardEventTaskUpdated, evs[0].Type)
	})

	t.Run("new_assignee_notified", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Hand over", domain.TaskStatusToDo)
		api, _, notifier := setupTaskAPI(t, f.store)

		resp := api.PutCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String(), map[string]any{
			"title":        "Hand over",
			"assignedToId": f.member.ID.String(),
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		sent := notifier.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "member@example.com", sent[0].Recipient)
		assert.Contains(t, sent[0].Link, f.project.ID.String())
	})

	t.Run("store_failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Stuck", domain.TaskStatusToDo)
		api, events, _ := setupTaskAPI(t, brokenTaskStore{f.store})

		resp := api.PutCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String(), map[string]any{"title": "Nope"})

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Equal(t, "failed to update task", errorMessage(t, resp))
		assert.Empty(t, events.Events())
	})
}

// ---------------------------------------------------------------------------
// TestUpdateTaskStatus
// ---------------------------------------------------------------------------

func TestUpdateTaskStatus(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Progress", domain.TaskStatusToDo)
		api, events, _ := setupTaskAPI(t, f.store)

		resp := api.PatchCtx(sessionCtx(f.member), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "in-progress",
		})

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		body := decode[domain.Task](t, resp)
		assert.Equal(t, domain.TaskStatusInProgress, body.Status)
		assert.Equal(t, task.ID, body.ID)

		stored, err := f.store.Tasks().GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, stored.Status)

		evs := events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, domain.BoardEventTaskMoved, evs[0].Type)
		assert.Equal(t, f.member.ID, evs[0].ActorID)

		activity := f.activity(t)
		require.Len(t, activity, 1)
		assert.Equal(t, v1.ActionTaskStatusChanged, activity[0].Action)
		assert.EqualValues(t, "to-do", activity[0].Details["from"])
		assert.EqualValues(t, "in-progress", activity[0].Details["to"])
	})

	t.Run("same_status_is_accepted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Still", domain.TaskStatusDone)
		api, _, _ := setupTaskAPI(t, f.store)

		resp := api.PatchCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "done",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, domain.TaskStatusDone, decode[domain.Task](t, resp).Status)
	})

	t.Run("invalid_status", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Odd", domain.TaskStatusToDo)
		api, events, _ := setupTaskAPI(t, f.store)

		for _, status := range []string{"review", "", "DONE"} {
			resp := api.PatchCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String()+"/status", map[string]any{
				"status": status,
			})
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, status)
		}

		stored, err := f.store.Tasks().GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusToDo, stored.Status)
		assert.Empty(t, events.Events())
	})

	t.Run("store_failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Flaky", domain.TaskStatusToDo)
		api, events, _ := setupTaskAPI(t, brokenTaskStore{f.store})

		resp := api.PatchCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String()+"/status", map[string]any{
			"status": "done",
		})

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		msg := errorMessage(t, resp)
		assert.Equal(t, "failed to update task status", msg)
		assert.NotContains(t, msg, errDatabase.Error())
		assert.Empty(t, events.Events())
	})

	t.Run("not_found_and_forbidden", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Private", domain.TaskStatusToDo)
		api, _, _ := setupTaskAPI(t, f.store)
		body := map[string]any{"status": "done"}

		resp := api.PatchCtx(sessionCtx(f.owner), "/tasks/"+uuid.NewString()+"/status", body)
		assert.Equal(t, http.StatusNotFound, resp.Code)

		resp = api.PatchCtx(sessionCtx(f.stranger), "/tasks/"+task.ID.String()+"/status", body)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestDeleteTask
// ---------------------------------------------------------------------------

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Obsolete", domain.TaskStatusToDo)
		api, events, _ := setupTaskAPI(t, f.store)

		resp := api.DeleteCtx(sessionCtx(f.member), "/tasks/"+task.ID.String())
		require.Equal(t, http.StatusNoContent, resp.Code)

		_, err := f.store.Tasks().GetByID(context.Background(), task.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)

		evs := events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, domain.BoardEventTaskDeleted, evs[0].Type)
		assert.Nil(t, evs[0].Task)

		resp = api.DeleteCtx(sessionCtx(f.member), "/tasks/"+task.ID.String())
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("store_failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Sticky", domain.TaskStatusToDo)
		api, _, _ := setupTaskAPI(t, brokenTaskStore{f.store})

		resp := api.DeleteCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String())
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	t.Run("publish_failure_does_not_fail_request", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		task := f.addTask(t, "Gone", domain.TaskStatusToDo)
		api := newAPI(t)
		v1.RegisterTaskRoutes(api, f.store, &recordingPublisher{err: errDatabase}, nil, "")

		resp := api.DeleteCtx(sessionCtx(f.owner), "/tasks/"+task.ID.String())
		assert.Equal(t, http.StatusNoContent, resp.Code)
	})
}
